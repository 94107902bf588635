package scene

import "github.com/perch3d/sceneql/internal/schema"

// ID is the stable opaque identifier of a scene graph node. The host
// guarantees an ID is not reused while the node exists. The engine treats
// IDs as the unit of identity for cycle detection; it never holds direct
// references into the host graph across queries.
type ID string

// EntityRef names one live entity: identifier plus kind. Everything the
// engine carries between adapter calls is an EntityRef, never host state.
type EntityRef struct {
	ID   ID
	Kind string
}

// Cursor is a lazy, finite sequence of entities of one kind. Cursors are
// not restartable: once Next returns false the cursor is exhausted.
// Cursors must be consumed on the thread that created them.
type Cursor interface {
	// Next returns the next entity, or ok=false when the sequence ends.
	Next() (ref EntityRef, ok bool)
}

// Adapter is the read-only abstraction over the host application's live
// object graph. All methods must be side-effect free and safe to invoke
// repeatedly. The adapter is not safe for concurrent use; the executor
// serializes all access within a single query execution.
//
// Methods return ErrUnavailable (wrapped) when the host cannot serve
// reads, e.g. during a file load. The executor maps that to its
// AdapterUnavailable failure.
type Adapter interface {
	// EntitiesOfKind returns a lazy cursor over all entities of the kind,
	// in the host's discovery order. That order is the tie-break order for
	// sorted results, so it must be stable for an unchanged scene.
	EntitiesOfKind(kind string) (Cursor, error)

	// Field reads a non-relation field. A missing or unset field reads as
	// Null, never an error.
	Field(ent EntityRef, name string) (Value, error)

	// Relationship resolves a relation field to its current targets.
	// Single-valued relations yield zero or one element; nil means the
	// reference is unset (NULL).
	Relationship(ent EntityRef, name string) ([]EntityRef, error)

	// Schema returns the catalog describing the kinds and fields this
	// adapter serves. Immutable for the adapter's lifetime.
	Schema() *schema.Catalog
}
