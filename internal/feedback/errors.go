package feedback

import (
	"errors"
	"fmt"
)

// ErrLockTimeout is returned when the log lock could not be acquired within the configured timeout.
var ErrLockTimeout = errors.New("feedback log lock timeout")

// WriteError reports feedback that could not be durably appended. Retrieval is unaffected;
// callers may retry or surface the failure.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("feedback write failed: %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
