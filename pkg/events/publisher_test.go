package events

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/gateway/pkg/jobqueue"
)

type fakeJobLookup struct {
	job *jobqueue.Job
	err error
}

func (f *fakeJobLookup) Get(ctx context.Context, tenantID string, jobID uuid.UUID) (*jobqueue.Job, error) {
	return f.job, f.err
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPublishJobStatusCompletedPersistsAndNotifies(t *testing.T) {
	db, mock := newMockDB(t)
	jobID := uuid.New()
	job := &jobqueue.Job{
		JobID:    jobID,
		TenantID: "t1",
		UserID:   "u1",
		TopicID:  "niche_review",
		Status:   jobqueue.StatusCompleted,
		Result:   []byte(`{"assessment":"clear"}`),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO events`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(`SELECT pg_notify`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	pub := NewPublisher(db, &fakeJobLookup{job: job}, "dev")
	err := pub.PublishJobStatus(context.Background(), "t1", jobID, jobqueue.StatusCompleted)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishJobStatusIgnoresNonTerminalStatus(t *testing.T) {
	db, mock := newMockDB(t)
	pub := NewPublisher(db, &fakeJobLookup{}, "dev")

	err := pub.PublishJobStatus(context.Background(), "t1", uuid.New(), jobqueue.StatusProcessing)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet()) // no queries expected
}

func TestPublishJobStatusFailedBuildsErrorEnvelope(t *testing.T) {
	db, mock := newMockDB(t)
	jobID := uuid.New()
	job := &jobqueue.Job{
		JobID:     jobID,
		TenantID:  "t1",
		UserID:    "u1",
		TopicID:   "niche_review",
		Status:    jobqueue.StatusFailed,
		Error:     "provider unavailable",
		ErrorCode: jobqueue.ErrorCodeProviderUnavailable,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO events`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectExec(`SELECT pg_notify`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	pub := NewPublisher(db, &fakeJobLookup{job: job}, "dev")
	err := pub.PublishJobStatus(context.Background(), "t1", jobID, jobqueue.StatusFailed)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncateIfNeededPassesThroughSmallPayload(t *testing.T) {
	out, err := truncateIfNeeded(`{"event_type":"ai.job.completed","job_id":"x"}`)
	require.NoError(t, err)
	require.Contains(t, out, "ai.job.completed")
}
