// Package result holds the engine's output type and its serializers.
//
// A Set is owned by the caller once the engine returns it; the engine
// keeps no reference. The JSON form is the transport payload handed to
// the AI consumer; the table and CSV forms exist for the CLI.
package result

import "github.com/perch3d/sceneql/internal/scene"

// Row is one result row: values aligned with the Set's field names.
type Row []scene.Value

// Set is a bounded, ordered result set.
type Set struct {
	// Fields are the projected column names, in projection order. Row
	// values index against this slice.
	Fields []string

	Rows []Row

	// Truncated marks a result that stopped early at a row, time or
	// size limit. Truncation is not an error; the marker tells the
	// consumer the set is incomplete.
	Truncated bool

	// Cancelled marks a result cut short by caller cancellation.
	// Like truncation, not an error.
	Cancelled bool
}

// Empty returns a non-truncated empty set over the given fields.
func Empty(fields []string) *Set {
	return &Set{Fields: fields}
}

// Len returns the row count.
func (s *Set) Len() int { return len(s.Rows) }
