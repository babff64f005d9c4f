package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobs(t *testing.T) {
	queue := NewQueue("test", QueueConfig{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		err := queue.Enqueue(Job{
			ID:   "job",
			Type: "count",
			Run: func(context.Context) error {
				ran.Add(1)
				return nil
			},
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return ran.Load() == 5
	}, 2*time.Second, 5*time.Millisecond)
}

func TestQueueRejectsWhenNotStarted(t *testing.T) {
	queue := NewQueue("idle", QueueConfig{})
	err := queue.Enqueue(Job{ID: "early", Run: func(context.Context) error { return nil }})
	require.Error(t, err)
}

func TestQueueStopWaitsForWorkers(t *testing.T) {
	queue := NewQueue("stop", QueueConfig{Workers: 1})
	queue.Start(context.Background())

	done := make(chan struct{})
	err := queue.Enqueue(Job{
		ID: "slow",
		Run: func(context.Context) error {
			time.Sleep(20 * time.Millisecond)
			close(done)
			return nil
		},
	})
	require.NoError(t, err)

	// give the worker a moment to pick the job up before stopping
	time.Sleep(5 * time.Millisecond)
	queue.Stop()

	select {
	case <-done:
	default:
		t.Fatal("queue stopped before the running job finished")
	}
}
