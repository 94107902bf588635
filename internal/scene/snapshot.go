package scene

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/perch3d/sceneql/internal/schema"
)

// Snapshot is the YAML form of a scene: the offline stand-in for a live
// host used by the CLI and the test harness. Field values are checked
// against the catalog while loading, so a snapshot can never put an
// ill-typed value behind the adapter.
type Snapshot struct {
	Entities []SnapshotEntity `yaml:"entities"`
}

// SnapshotEntity is one entity in a snapshot file. Relationship targets
// are entity IDs; forward references are allowed.
type SnapshotEntity struct {
	ID     string         `yaml:"id"`
	Kind   string         `yaml:"kind"`
	Fields map[string]any `yaml:"fields,omitempty"`
	Rels   map[string]any `yaml:"rels,omitempty"`
}

// LoadSnapshotFile reads a YAML snapshot from disk and materializes it as
// a MemScene over the given catalog.
func LoadSnapshotFile(path string, catalog *schema.Catalog) (*MemScene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	m, err := LoadSnapshot(data, catalog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadSnapshot parses YAML snapshot bytes into a MemScene.
func LoadSnapshot(data []byte, catalog *schema.Catalog) (*MemScene, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	m := NewMemScene(catalog)

	// First pass creates every entity so relationships can point forward.
	refs := make(map[string]EntityRef, len(snap.Entities))
	for i, ent := range snap.Entities {
		if ent.ID == "" || ent.Kind == "" {
			return nil, fmt.Errorf("entity %d: id and kind are required", i)
		}
		ref, err := m.AddEntity(ID(ent.ID), ent.Kind)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", ent.ID, err)
		}
		refs[ent.ID] = ref
	}

	for _, ent := range snap.Entities {
		ref := refs[ent.ID]
		kind, _ := catalog.Kind(ent.Kind)

		for name, raw := range ent.Fields {
			f, ok := kind.Field(name)
			if !ok {
				return nil, fmt.Errorf("entity %q: kind %q has no field %q", ent.ID, ent.Kind, name)
			}
			v, err := yamlValue(raw, f.Type)
			if err != nil {
				return nil, fmt.Errorf("entity %q field %q: %w", ent.ID, name, err)
			}
			if err := m.SetField(ref, name, v); err != nil {
				return nil, fmt.Errorf("entity %q: %w", ent.ID, err)
			}
		}

		for name, raw := range ent.Rels {
			f, ok := kind.Field(name)
			if !ok {
				return nil, fmt.Errorf("entity %q: kind %q has no field %q", ent.ID, ent.Kind, name)
			}
			if f.Type.Kind != schema.TypeRelation {
				return nil, fmt.Errorf("entity %q: field %q is not a relation", ent.ID, name)
			}
			ids, err := yamlRelTargets(raw)
			if err != nil {
				return nil, fmt.Errorf("entity %q rel %q: %w", ent.ID, name, err)
			}
			targets := make([]EntityRef, 0, len(ids))
			for _, id := range ids {
				target, ok := refs[id]
				if !ok {
					return nil, fmt.Errorf("entity %q rel %q: no entity with id %q", ent.ID, name, id)
				}
				targets = append(targets, target)
			}
			if err := m.SetRelationship(ref, name, targets...); err != nil {
				return nil, fmt.Errorf("entity %q: %w", ent.ID, err)
			}
		}
	}
	return m, nil
}

// yamlValue converts a decoded YAML scalar/sequence into a typed Value
// per the declared field type.
func yamlValue(raw any, ft schema.FieldType) (Value, error) {
	if raw == nil {
		return Null{}, nil
	}
	switch ft.Kind {
	case schema.TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", raw)
		}
		return String(s), nil
	case schema.TypeEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("want enum string, got %T", raw)
		}
		return Enum(s), nil
	case schema.TypeNumber:
		f, err := yamlFloat(raw)
		if err != nil {
			return nil, err
		}
		return Number(f), nil
	case schema.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, got %T", raw)
		}
		return Bool(b), nil
	case schema.TypeVector:
		fs, err := yamlFloats(raw)
		if err != nil {
			return nil, err
		}
		return Vector(fs), nil
	case schema.TypeColor:
		fs, err := yamlFloats(raw)
		if err != nil {
			return nil, err
		}
		if len(fs) != 4 {
			return nil, fmt.Errorf("color wants 4 components, got %d", len(fs))
		}
		var c Color
		copy(c[:], fs)
		return c, nil
	case schema.TypeMatrix:
		fs, err := yamlFloats(raw)
		if err != nil {
			return nil, err
		}
		if len(fs) != 16 {
			return nil, fmt.Errorf("matrix wants 16 components, got %d", len(fs))
		}
		var mx Matrix
		copy(mx[:], fs)
		return mx, nil
	case schema.TypeRelation:
		return nil, fmt.Errorf("relation fields belong under rels, not fields")
	default:
		return nil, fmt.Errorf("unsupported field type %v", ft.Kind)
	}
}

func yamlFloat(raw any) (float64, error) {
	switch n := raw.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("want number, got %T", raw)
	}
}

func yamlFloats(raw any) ([]float64, error) {
	seq, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("want sequence of numbers, got %T", raw)
	}
	out := make([]float64, len(seq))
	for i, elem := range seq {
		f, err := yamlFloat(elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

// yamlRelTargets accepts either a single ID string or a sequence of IDs.
func yamlRelTargets(raw any) ([]string, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, len(t))
		for i, elem := range t {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: want id string, got %T", i, elem)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want id or sequence of ids, got %T", raw)
	}
}
