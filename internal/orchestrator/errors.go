package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

// RemoteExecutionError reports a remote task failure attributed to one
// host and phase.
type RemoteExecutionError struct {
	Host  string
	Phase string
	Err   error
}

func (e *RemoteExecutionError) Error() string {
	return fmt.Sprintf("remote execution on %s failed during %s: %v", e.Host, e.Phase, e.Err)
}

func (e *RemoteExecutionError) Unwrap() error { return e.Err }

// TimeoutError reports a remote task that exceeded its time budget.
type TimeoutError struct {
	Host   string
	Phase  string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task on %s exceeded %v budget during %s", e.Host, e.Budget, e.Phase)
}

// TokenUnavailableError reports a control plane that initialized but did
// not yield a join token.
type TokenUnavailableError struct {
	Host string
}

func (e *TokenUnavailableError) Error() string {
	return fmt.Sprintf("control plane %s did not yield a join token", e.Host)
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var timeout *TimeoutError
	return errors.As(err, &timeout)
}
