package exec

import (
	"errors"
	"time"
)

// Limits are the per-query execution bounds. All fields are required;
// the engine's contract keeps every bound visible to the caller, so
// there are no implicit defaults here.
type Limits struct {
	// MaxRows caps the result row count. Hitting it truncates the
	// result (success), never errors.
	MaxRows int

	// MaxRelationshipDepth bounds relationship hops per field path.
	// The binder enforces it statically; the executor re-checks it so a
	// plan bound under a looser limit cannot run under a tighter one.
	MaxRelationshipDepth int

	// Timeout is the wall-clock budget for the whole execution, checked
	// at scan and expand boundaries. Not preemptive: a single adapter
	// call cannot be interrupted mid-call.
	Timeout time.Duration

	// MaxPayloadBytes caps the serialized payload size. Exceeding it is
	// an error, not a truncation: oversized results must be visible to
	// the caller, not silently clipped.
	MaxPayloadBytes int
}

// Validate rejects limits with missing or non-positive bounds.
func (l Limits) Validate() error {
	if l.MaxRows <= 0 {
		return errors.New("limits: MaxRows must be positive")
	}
	if l.MaxRelationshipDepth <= 0 {
		return errors.New("limits: MaxRelationshipDepth must be positive")
	}
	if l.Timeout <= 0 {
		return errors.New("limits: Timeout must be positive")
	}
	if l.MaxPayloadBytes <= 0 {
		return errors.New("limits: MaxPayloadBytes must be positive")
	}
	return nil
}

// Clock abstracts wall-clock reads so tests can drive deadlines
// deterministically. Production uses Wall.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Wall is the real-time clock.
var Wall Clock = wallClock{}
