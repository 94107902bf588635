package schema

import (
	"fmt"
	"sort"
)

// Type identifies the declared type of an entity field.
type Type int

const (
	// TypeString is a UTF-8 string scalar.
	TypeString Type = iota + 1
	// TypeNumber is a numeric scalar (stored as float64).
	TypeNumber
	// TypeBool is a boolean scalar.
	TypeBool
	// TypeEnum is a string scalar restricted to a declared value set.
	TypeEnum
	// TypeVector is a fixed-length ordered sequence of numbers.
	TypeVector
	// TypeColor is an RGBA color (four numbers).
	TypeColor
	// TypeMatrix is a 4x4 transform matrix (sixteen numbers, row-major).
	TypeMatrix
	// TypeRelation is a reference (or ordered sequence of references)
	// to entities of a declared target kind.
	TypeRelation
)

// String returns the catalog spelling of the type.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeEnum:
		return "enum"
	case TypeVector:
		return "vector"
	case TypeColor:
		return "color"
	case TypeMatrix:
		return "matrix"
	case TypeRelation:
		return "relation"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Scalar reports whether the type is a comparable scalar
// (string, number, bool, enum).
func (t Type) Scalar() bool {
	switch t {
	case TypeString, TypeNumber, TypeBool, TypeEnum:
		return true
	default:
		return false
	}
}

// FieldType is the full declared type of a field, including relation
// target and multiplicity for TypeRelation and the value set for TypeEnum.
type FieldType struct {
	Kind Type

	// Target is the entity kind a relation points at. Empty unless
	// Kind == TypeRelation.
	Target string

	// Many marks an ordered-sequence-of-reference relation (e.g. the
	// modifiers of an object). Only meaningful for TypeRelation.
	Many bool

	// Values is the allowed value set for TypeEnum fields.
	Values []string
}

// String renders the type the way the catalog declares it.
func (ft FieldType) String() string {
	if ft.Kind == TypeRelation {
		if ft.Many {
			return fmt.Sprintf("relation([]%s)", ft.Target)
		}
		return fmt.Sprintf("relation(%s)", ft.Target)
	}
	return ft.Kind.String()
}

// Field is one declared field of an entity kind.
type Field struct {
	Name string
	Type FieldType
	Doc  string
}

// Kind is one entity kind in the catalog: a named field table.
type Kind struct {
	Name   string
	Doc    string
	fields map[string]Field
}

// Field looks up a declared field by name (case-sensitive).
func (k *Kind) Field(name string) (Field, bool) {
	f, ok := k.fields[name]
	return f, ok
}

// Fields returns all declared fields sorted by name.
func (k *Kind) Fields() []Field {
	out := make([]Field, 0, len(k.fields))
	for _, f := range k.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Catalog is the process-wide schema: a versioned, immutable mapping from
// entity kind to field table. Built once at engine start; all accessors
// are read-only and safe for concurrent use.
type Catalog struct {
	Version string
	kinds   map[string]*Kind
}

// NewCatalog builds a catalog from kind definitions and verifies internal
// consistency: kind names unique, relation targets declared, enum value
// sets non-empty.
func NewCatalog(version string, kinds ...*Kind) (*Catalog, error) {
	c := &Catalog{
		Version: version,
		kinds:   make(map[string]*Kind, len(kinds)),
	}
	for _, k := range kinds {
		if _, dup := c.kinds[k.Name]; dup {
			return nil, fmt.Errorf("duplicate entity kind %q", k.Name)
		}
		c.kinds[k.Name] = k
	}
	for _, k := range kinds {
		for _, f := range k.Fields() {
			switch f.Type.Kind {
			case TypeRelation:
				if _, ok := c.kinds[f.Type.Target]; !ok {
					return nil, fmt.Errorf("kind %q field %q: relation target %q is not a declared kind",
						k.Name, f.Name, f.Type.Target)
				}
			case TypeEnum:
				if len(f.Type.Values) == 0 {
					return nil, fmt.Errorf("kind %q field %q: enum declares no values", k.Name, f.Name)
				}
			}
		}
	}
	return c, nil
}

// NewKind builds a kind definition. A duplicate field name overwrites the
// earlier declaration; catalogs authored in CUE cannot produce duplicates.
func NewKind(name, doc string, fields ...Field) *Kind {
	k := &Kind{
		Name:   name,
		Doc:    doc,
		fields: make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		k.fields[f.Name] = f
	}
	return k
}

// Kind looks up an entity kind by name (case-sensitive).
func (c *Catalog) Kind(name string) (*Kind, bool) {
	k, ok := c.kinds[name]
	return k, ok
}

// Kinds returns all entity kind names, sorted.
func (c *Catalog) Kinds() []string {
	names := make([]string, 0, len(c.kinds))
	for name := range c.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
