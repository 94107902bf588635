package scene

import (
	"errors"
	"fmt"
	"sort"

	"github.com/perch3d/sceneql/internal/schema"
)

// ErrUnavailable signals that the adapter cannot currently serve reads.
// Adapters wrap it; the executor tests for it with errors.Is.
var ErrUnavailable = errors.New("scene adapter unavailable")

// MemScene is an in-memory Adapter implementation. It backs the CLI
// (scene snapshots), the test harness and unit tests; a production
// deployment implements Adapter against the host application instead.
//
// Entity order within a kind is insertion order, which makes scans
// deterministic for an unchanged scene.
type MemScene struct {
	catalog *schema.Catalog
	byKind  map[string][]EntityRef
	fields  map[ID]map[string]Value
	rels    map[ID]map[string][]EntityRef

	// unavailable simulates a host that cannot serve reads (tests).
	unavailable bool
}

// NewMemScene creates an empty scene over the given catalog.
func NewMemScene(catalog *schema.Catalog) *MemScene {
	return &MemScene{
		catalog: catalog,
		byKind:  make(map[string][]EntityRef),
		fields:  make(map[ID]map[string]Value),
		rels:    make(map[ID]map[string][]EntityRef),
	}
}

// AddEntity registers an entity of the given kind. IDs must be unique
// across the whole scene.
func (m *MemScene) AddEntity(id ID, kind string) (EntityRef, error) {
	if _, ok := m.catalog.Kind(kind); !ok {
		return EntityRef{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	if _, dup := m.fields[id]; dup {
		return EntityRef{}, fmt.Errorf("duplicate entity id %q", id)
	}
	ref := EntityRef{ID: id, Kind: kind}
	m.byKind[kind] = append(m.byKind[kind], ref)
	m.fields[id] = make(map[string]Value)
	m.rels[id] = make(map[string][]EntityRef)
	return ref, nil
}

// SetField sets a non-relation field value. The value must match the
// catalog's declared type for the field.
func (m *MemScene) SetField(ref EntityRef, name string, v Value) error {
	f, err := m.declaredField(ref, name)
	if err != nil {
		return err
	}
	if f.Type.Kind == schema.TypeRelation {
		return fmt.Errorf("%s.%s: relation fields are set with SetRelationship", ref.Kind, name)
	}
	if err := checkValueType(v, f.Type); err != nil {
		return fmt.Errorf("%s.%s: %w", ref.Kind, name, err)
	}
	m.fields[ref.ID][name] = v
	return nil
}

// SetRelationship sets a relation field's targets. Single-valued relations
// accept at most one target.
func (m *MemScene) SetRelationship(ref EntityRef, name string, targets ...EntityRef) error {
	f, err := m.declaredField(ref, name)
	if err != nil {
		return err
	}
	if f.Type.Kind != schema.TypeRelation {
		return fmt.Errorf("%s.%s: not a relation field", ref.Kind, name)
	}
	if !f.Type.Many && len(targets) > 1 {
		return fmt.Errorf("%s.%s: single-valued relation given %d targets", ref.Kind, name, len(targets))
	}
	for _, t := range targets {
		if t.Kind != f.Type.Target {
			return fmt.Errorf("%s.%s: target %q has kind %q, want %q", ref.Kind, name, t.ID, t.Kind, f.Type.Target)
		}
		if _, ok := m.fields[t.ID]; !ok {
			return fmt.Errorf("%s.%s: target %q does not exist", ref.Kind, name, t.ID)
		}
	}
	m.rels[ref.ID][name] = append([]EntityRef(nil), targets...)
	return nil
}

// SetUnavailable toggles simulated host unavailability.
func (m *MemScene) SetUnavailable(down bool) { m.unavailable = down }

// memCursor iterates a snapshot of the kind's entity slice.
type memCursor struct {
	refs []EntityRef
	pos  int
}

func (c *memCursor) Next() (EntityRef, bool) {
	if c.pos >= len(c.refs) {
		return EntityRef{}, false
	}
	ref := c.refs[c.pos]
	c.pos++
	return ref, true
}

// EntitiesOfKind implements Adapter.
func (m *MemScene) EntitiesOfKind(kind string) (Cursor, error) {
	if m.unavailable {
		return nil, fmt.Errorf("entities of %q: %w", kind, ErrUnavailable)
	}
	return &memCursor{refs: m.byKind[kind]}, nil
}

// Field implements Adapter. Unset fields read as Null.
func (m *MemScene) Field(ent EntityRef, name string) (Value, error) {
	if m.unavailable {
		return nil, fmt.Errorf("field %s.%s: %w", ent.Kind, name, ErrUnavailable)
	}
	fields, ok := m.fields[ent.ID]
	if !ok {
		return Null{}, nil
	}
	v, ok := fields[name]
	if !ok {
		return Null{}, nil
	}
	return v, nil
}

// Relationship implements Adapter. Unset relations read as nil (NULL).
func (m *MemScene) Relationship(ent EntityRef, name string) ([]EntityRef, error) {
	if m.unavailable {
		return nil, fmt.Errorf("relationship %s.%s: %w", ent.Kind, name, ErrUnavailable)
	}
	rels, ok := m.rels[ent.ID]
	if !ok {
		return nil, nil
	}
	return rels[name], nil
}

// Schema implements Adapter.
func (m *MemScene) Schema() *schema.Catalog { return m.catalog }

// Len returns the number of entities of a kind. Test helper.
func (m *MemScene) Len(kind string) int { return len(m.byKind[kind]) }

// Kinds returns the kinds that have at least one entity, sorted.
func (m *MemScene) Kinds() []string {
	out := make([]string, 0, len(m.byKind))
	for k, refs := range m.byKind {
		if len(refs) > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (m *MemScene) declaredField(ref EntityRef, name string) (schema.Field, error) {
	kind, ok := m.catalog.Kind(ref.Kind)
	if !ok {
		return schema.Field{}, fmt.Errorf("unknown entity kind %q", ref.Kind)
	}
	f, ok := kind.Field(name)
	if !ok {
		return schema.Field{}, fmt.Errorf("kind %q has no field %q", ref.Kind, name)
	}
	if _, exists := m.fields[ref.ID]; !exists {
		return schema.Field{}, fmt.Errorf("entity %q does not exist", ref.ID)
	}
	return f, nil
}

// checkValueType verifies a Value against a declared FieldType.
func checkValueType(v Value, ft schema.FieldType) error {
	if IsNull(v) {
		return nil
	}
	switch ft.Kind {
	case schema.TypeString:
		if _, ok := v.(String); !ok {
			return fmt.Errorf("want string, got %T", v)
		}
	case schema.TypeNumber:
		if _, ok := v.(Number); !ok {
			return fmt.Errorf("want number, got %T", v)
		}
	case schema.TypeBool:
		if _, ok := v.(Bool); !ok {
			return fmt.Errorf("want bool, got %T", v)
		}
	case schema.TypeEnum:
		e, ok := v.(Enum)
		if !ok {
			return fmt.Errorf("want enum, got %T", v)
		}
		for _, allowed := range ft.Values {
			if string(e) == allowed {
				return nil
			}
		}
		return fmt.Errorf("enum value %q not in declared set", string(e))
	case schema.TypeVector:
		if _, ok := v.(Vector); !ok {
			return fmt.Errorf("want vector, got %T", v)
		}
	case schema.TypeColor:
		if _, ok := v.(Color); !ok {
			return fmt.Errorf("want color, got %T", v)
		}
	case schema.TypeMatrix:
		if _, ok := v.(Matrix); !ok {
			return fmt.Errorf("want matrix, got %T", v)
		}
	case schema.TypeRelation:
		return fmt.Errorf("relation fields hold references, not values")
	}
	return nil
}
