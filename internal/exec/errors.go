package exec

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes execution failures.
type ErrorKind string

const (
	// KindTimeout means the wall-clock budget elapsed before any row
	// was produced. A budget elapsing after rows exist is a truncated
	// success, not this error.
	KindTimeout ErrorKind = "TIMEOUT"

	// KindResultTooLarge means the serialized payload would exceed the
	// byte ceiling even though the row count is within limits.
	KindResultTooLarge ErrorKind = "RESULT_TOO_LARGE"

	// KindAdapterUnavailable means the host could not serve reads.
	KindAdapterUnavailable ErrorKind = "ADAPTER_UNAVAILABLE"

	// KindCycleDepthExceeded means a plan's traversal depth exceeds the
	// runtime limit. Cycles inside an expected traversal are handled
	// silently; this error indicates a bind/execute limit mismatch.
	KindCycleDepthExceeded ErrorKind = "CYCLE_DEPTH_EXCEEDED"
)

// Error reports a failed execution. The result set accompanying an
// Error is always nil: no partial payload travels with a failure.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

// IsTimeout reports whether err is a Timeout execution error.
func IsTimeout(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == KindTimeout
}

// IsAdapterUnavailable reports whether err is an AdapterUnavailable
// execution error.
func IsAdapterUnavailable(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == KindAdapterUnavailable
}
