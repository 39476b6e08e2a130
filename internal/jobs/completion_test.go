package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedCompletionFirstCompleteWins(t *testing.T) {
	c := NewSharedCompletion[int]()

	assert.True(t, c.Complete(42, nil))
	assert.False(t, c.Complete(99, errors.New("late")))

	v, err := c.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSharedCompletionReleasesAllWaiters(t *testing.T) {
	c := NewSharedCompletion[string]()

	const waiters = 10
	results := make([]string, waiters)
	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func(idx int) {
			defer wg.Done()
			v, err := c.Wait(context.Background())
			if err == nil {
				results[idx] = v
			}
		}(i)
	}

	c.Complete("done", nil)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		assert.Equal(t, "done", results[i])
	}
}

func TestSharedCompletionLateWaiterSeesResult(t *testing.T) {
	c := NewSharedCompletion[int]()
	c.Complete(7, nil)

	v, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestSharedCompletionWaitHonorsCancellation(t *testing.T) {
	c := NewSharedCompletion[int]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSharedCompletionCompletedBeatsCancellation(t *testing.T) {
	c := NewSharedCompletion[int]()
	c.Complete(5, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := c.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestSharedCompletionErrorPropagates(t *testing.T) {
	c := NewSharedCompletion[int]()
	boom := errors.New("boom")
	c.Complete(0, boom)

	_, err := c.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSharedCompletionResultBeforeCompletion(t *testing.T) {
	c := NewSharedCompletion[int]()

	v, err := c.Result()
	assert.Zero(t, v)
	assert.NoError(t, err)
	assert.False(t, c.IsDone())
}

func TestSharedCompletionDoneIsLevelTriggered(t *testing.T) {
	c := NewSharedCompletion[int]()
	c.Complete(1, nil)

	for i := 0; i < 3; i++ {
		select {
		case <-c.Done():
		case <-time.After(time.Second):
			t.Fatal("Done channel not closed after completion")
		}
	}
}
