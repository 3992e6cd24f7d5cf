package async

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_AllSucceed(t *testing.T) {
	t.Parallel()
	var count atomic.Int32
	tasks := []Task{
		{Name: "a", Func: func(context.Context) error { count.Add(1); return nil }},
		{Name: "b", Func: func(context.Context) error { count.Add(1); return nil }},
		{Name: "c", Func: func(context.Context) error { count.Add(1); return nil }},
	}

	failures := Run(context.Background(), 2, tasks)

	assert.Nil(t, failures)
	assert.Equal(t, int32(3), count.Load())
}

func TestRun_SiblingFailureDoesNotCancelOthers(t *testing.T) {
	t.Parallel()
	var completed atomic.Int32
	tasks := []Task{
		{Name: "fails", Func: func(context.Context) error { return fmt.Errorf("boom") }},
		{Name: "slow", Func: func(context.Context) error {
			time.Sleep(20 * time.Millisecond)
			completed.Add(1)
			return nil
		}},
	}

	failures := Run(context.Background(), 0, tasks)

	require.Len(t, failures, 1)
	assert.Equal(t, "fails", failures[0].Name)
	assert.Equal(t, int32(1), completed.Load(), "sibling must run to completion")
}

func TestRun_FailuresInDeclarationOrder(t *testing.T) {
	t.Parallel()
	tasks := []Task{
		{Name: "first", Func: func(context.Context) error { time.Sleep(10 * time.Millisecond); return fmt.Errorf("e1") }},
		{Name: "second", Func: func(context.Context) error { return fmt.Errorf("e2") }},
		{Name: "ok", Func: func(context.Context) error { return nil }},
		{Name: "third", Func: func(context.Context) error { return fmt.Errorf("e3") }},
	}

	failures := Run(context.Background(), 0, tasks)

	require.Len(t, failures, 3)
	assert.Equal(t, "first", failures[0].Name)
	assert.Equal(t, "second", failures[1].Name)
	assert.Equal(t, "third", failures[2].Name)
}

func TestRun_RespectsLimit(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	running, peak := 0, 0

	task := func(context.Context) error {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	}

	tasks := make([]Task, 6)
	for i := range tasks {
		tasks[i] = Task{Name: fmt.Sprintf("t%d", i), Func: task}
	}

	failures := Run(context.Background(), 2, tasks)

	assert.Nil(t, failures)
	assert.LessOrEqual(t, peak, 2)
}

func TestRun_EmptyTaskList(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Run(context.Background(), 1, nil))
}

func TestTaskError_Unwrap(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("cause")
	err := TaskError{Name: "host", Err: cause}

	assert.Equal(t, "host: cause", err.Error())
	assert.ErrorIs(t, err, cause)
}
