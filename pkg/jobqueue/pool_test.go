package jobqueue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPoolRegisterAndCancelJob(t *testing.T) {
	pool := &WorkerPool{
		activeJobs: make(map[uuid.UUID]context.CancelFunc),
	}

	jobID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	pool.RegisterJob(jobID, cancel)

	assert.True(t, pool.CancelJob(jobID))
	assert.Error(t, ctx.Err())

	assert.False(t, pool.CancelJob(uuid.New()))
}

func TestPoolUnregisterJob(t *testing.T) {
	pool := &WorkerPool{
		activeJobs: make(map[uuid.UUID]context.CancelFunc),
	}

	jobID := uuid.New()
	_, cancel := context.WithCancel(context.Background())
	pool.RegisterJob(jobID, cancel)

	assert.True(t, pool.CancelJob(jobID))

	pool.UnregisterJob(jobID)

	assert.False(t, pool.CancelJob(jobID))
}

func TestPoolGetActiveJobIDs(t *testing.T) {
	pool := &WorkerPool{
		activeJobs: make(map[uuid.UUID]context.CancelFunc),
	}

	assert.Empty(t, pool.getActiveJobIDs())

	id1, id2 := uuid.New(), uuid.New()
	_, cancel1 := context.WithCancel(context.Background())
	_, cancel2 := context.WithCancel(context.Background())
	defer cancel1()
	defer cancel2()

	pool.RegisterJob(id1, cancel1)
	pool.RegisterJob(id2, cancel2)

	ids := pool.getActiveJobIDs()
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, id1)
	assert.Contains(t, ids, id2)
}
