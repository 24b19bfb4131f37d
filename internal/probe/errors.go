package probe

import (
	"errors"
	"fmt"
)

var (
	ErrProbeNotStarted = errors.New("probe not started")
	ErrProbeInProgress = errors.New("probe in progress")
	ErrTimeout         = errors.New("probe timed out")
)

// InvocationError means the probe command could not be run to completion:
// the binary is missing, could not be started or was killed on timeout.
// A command which exits with a non-zero code is not an InvocationError.
type InvocationError struct {
	Path string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoking %s: %v", e.Path, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
