package gateway

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the target task does not exist or is not
// owned by the calling user. The two cases share one error so that task
// existence never leaks across users.
var ErrNotFound = errors.New("task not found")

// ValidationError reports malformed input (empty title, title too
// long). It is recoverable: the orchestrator turns it into a correction
// request, never a 5xx.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ToolError wraps an underlying store failure (unavailable, timed out).
// Full detail is logged server-side; callers surface a generic message.
type ToolError struct {
	Op  string
	Err error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Op, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
