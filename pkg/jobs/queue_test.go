package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "1"}))
	require.Error(t, q.TryEnqueue(Job{ID: "1"}))
}

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, j Job) error {
		done <- j
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "app-1", Kind: "outcome", Payload: 42}))
	select {
	case j := <-done:
		assert.Equal(t, "app-1", j.ID)
		assert.Equal(t, 42, j.Payload)
		assert.False(t, j.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("test", func(_ context.Context, j Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.TryEnqueue(Job{ID: "retry"}))
	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestTryEnqueueReportsFullBuffer(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(context.Context, Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	var full bool
	for i := 0; i < 5; i++ {
		if err := q.TryEnqueue(Job{ID: "x"}); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	assert.True(t, full)
}

func TestQueueStopsWhileJobsKeepFailing(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var calls int32
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("always")
	}, QueueConfig{Workers: 4, BufferSize: 64, MaxRetries: 1000, RetryDelay: time.Millisecond, Logger: zap.New(core)})
	q.Start(context.Background())

	for i := 0; i < 32; i++ {
		require.NoError(t, q.TryEnqueue(Job{ID: fmt.Sprintf("job-%d", i)}))
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) > 64 }, 2*time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return while retries were pending")
	}

	before := logs.FilterMessage("job failed, retrying").Len()
	q.handleFailure(Job{ID: "late"}, errors.New("after stop"))
	assert.Equal(t, before, logs.FilterMessage("job failed, retrying").Len(), "no retry is scheduled after stop")
	assert.Equal(t, 1, logs.FilterMessage("job dropped, queue stopping").FilterField(zap.String("job_id", "late")).Len())
}
