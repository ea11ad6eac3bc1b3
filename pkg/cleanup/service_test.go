package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/gateway/pkg/config"
)

type fakePurger struct {
	cutoffs []time.Time
	count   int64
	err     error
}

func (f *fakePurger) PurgeTerminalBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.count, f.err
}

func testConfig() *config.RetentionConfig {
	return &config.RetentionConfig{
		JobRetentionDays:     90,
		SessionRetentionDays: 30,
		EventTTL:             1 * time.Hour,
		CleanupInterval:      1 * time.Hour,
	}
}

func TestServiceRunAllPurgesJobsSessionsAndEvents(t *testing.T) {
	jobs := &fakePurger{count: 3}
	sessions := &fakePurger{count: 2}

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("DELETE FROM events").WillReturnResult(sqlmock.NewResult(0, 5))

	svc := NewService(testConfig(), jobs, sessions, db)
	svc.runAll(context.Background())

	require.Len(t, jobs.cutoffs, 1)
	require.Len(t, sessions.cutoffs, 1)
	assert.True(t, jobs.cutoffs[0].Before(time.Now().Add(-89*24*time.Hour)))
	assert.True(t, sessions.cutoffs[0].Before(time.Now().Add(-29*24*time.Hour)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRunAllContinuesAfterJobPurgeError(t *testing.T) {
	jobs := &fakePurger{err: assertError("boom")}
	sessions := &fakePurger{count: 1}

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("DELETE FROM events").WillReturnResult(sqlmock.NewResult(0, 0))

	svc := NewService(testConfig(), jobs, sessions, db)
	svc.runAll(context.Background())

	assert.Len(t, sessions.cutoffs, 1, "session purge should still run after job purge fails")
	require.NoError(t, mock.ExpectationsWereMet())
}

type assertError string

func (e assertError) Error() string { return string(e) }
