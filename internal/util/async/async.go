// Package async provides helpers for fanning out work across multiple
// remote hosts concurrently.
package async

import (
	"context"
)

// Task is a named unit of concurrent work.
type Task struct {
	Name string
	Func func(context.Context) error
}

// TaskError records the failure of a single task. Independent tasks are not
// cancelled when a sibling fails; every task runs to completion so each
// failure can be attributed to its task.
type TaskError struct {
	Name string
	Err  error
}

func (e TaskError) Error() string { return e.Name + ": " + e.Err.Error() }

func (e TaskError) Unwrap() error { return e.Err }

// Run executes all tasks concurrently, at most limit at a time (unlimited if
// limit <= 0), and waits for every task to finish. It returns the failures in
// task declaration order, or nil if all tasks succeeded.
func Run(ctx context.Context, limit int, tasks []Task) []TaskError {
	if len(tasks) == 0 {
		return nil
	}

	var sem chan struct{}
	if limit > 0 {
		sem = make(chan struct{}, limit)
	}

	errs := make([]error, len(tasks))
	done := make(chan int, len(tasks))

	for i, task := range tasks {
		go func(i int, task Task) {
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			errs[i] = task.Func(ctx)
			done <- i
		}(i, task)
	}

	for range tasks {
		<-done
	}

	var failures []TaskError
	for i, task := range tasks {
		if errs[i] != nil {
			failures = append(failures, TaskError{Name: task.Name, Err: errs[i]})
		}
	}
	return failures
}
