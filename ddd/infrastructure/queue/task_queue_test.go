package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/vo"
	"stem-service/pkg/errno"
)

func newTask(id string) *entity.PipelineTask {
	return entity.NewPipelineTask(id, vo.NewUploadAcquisition("/tmp/"+id+".mp3"), vo.StemCountTwo)
}

func TestEnqueueDequeueOrder(t *testing.T) {
	q := NewMemoryTaskQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, newTask("a")))
	require.NoError(t, q.Enqueue(ctx, newTask("b")))
	assert.Equal(t, 2, q.Size())

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.JobID())
	got, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", got.JobID())

	m := q.GetMetrics()
	assert.Equal(t, uint64(2), m.EnqueueCount)
	assert.Equal(t, uint64(2), m.DequeueCount)
}

func TestEnqueueFullQueue(t *testing.T) {
	q := NewMemoryTaskQueue(1)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, newTask("a")))

	err := q.Enqueue(ctx, newTask("b"))
	assert.True(t, errors.Is(err, errno.ErrQueueFull))
	assert.Equal(t, uint64(1), q.GetMetrics().RejectCount)
	assert.Error(t, q.Enqueue(ctx, nil))
}

func TestCloseUnblocksDequeue(t *testing.T) {
	q := NewMemoryTaskQueue(1)
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, errno.ErrQueueClosed))
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after close")
	}
	assert.True(t, errors.Is(q.Enqueue(context.Background(), newTask("c")), errno.ErrQueueClosed))
}

func TestDequeueHonoursContext(t *testing.T) {
	q := NewMemoryTaskQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
