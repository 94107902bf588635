package scene

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed interface over the typed values a scene field can
// hold. Only types in this package implement it; the marker method keeps
// type switches in the binder, executor and serializer exhaustive.
//
// Scalars: String, Number, Bool, Enum. Compounds: Vector, Color, Matrix.
// Relations: Ref, RefList. Null stands in for a missing value or a
// relationship hop that resolved to nothing.
type Value interface {
	sceneValue() // Marker method - seals interface to this package
}

// Null represents an absent value. Using an explicit type (rather than a
// nil interface) keeps every field read a valid Value.
type Null struct{}

func (Null) sceneValue() {}

// String is a UTF-8 string scalar.
type String string

func (String) sceneValue() {}

// Number is a numeric scalar. The scene domain is geometric (locations,
// focal lengths, energies), so numbers are float64 throughout; integer
// literals are exact within float64 range.
type Number float64

func (Number) sceneValue() {}

// Bool is a boolean scalar.
type Bool bool

func (Bool) sceneValue() {}

// Enum is a string scalar whose value set is closed by the catalog.
// Enums compare and order as strings.
type Enum string

func (Enum) sceneValue() {}

// Vector is an ordered sequence of numbers (location, rotation, scale).
type Vector []float64

func (Vector) sceneValue() {}

// Color is an RGBA color.
type Color [4]float64

func (Color) sceneValue() {}

// Matrix is a 4x4 transform, row-major.
type Matrix [16]float64

func (Matrix) sceneValue() {}

// Ref is a reference to another entity: stable opaque identifier plus
// entity kind. References never embed the target entity.
type Ref EntityRef

func (Ref) sceneValue() {}

// RefList is an ordered sequence of references (material slots, the
// modifier stack).
type RefList []EntityRef

func (RefList) sceneValue() {}

// IsNull reports whether v is the Null value.
func IsNull(v Value) bool {
	_, ok := v.(Null)
	return v == nil || ok
}

// FormatNumber renders a float64 the way every serializer in the engine
// must: shortest round-trip form, so identical scenes always produce
// byte-identical payloads.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Display renders a value for human-facing output (table cells, logs).
// Not the transport encoding; see the result package for that.
func Display(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "NULL"
	case String:
		return string(val)
	case Enum:
		return string(val)
	case Number:
		return FormatNumber(float64(val))
	case Bool:
		return strconv.FormatBool(bool(val))
	case Vector:
		parts := make([]string, len(val))
		for i, f := range val {
			parts[i] = FormatNumber(f)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case Color:
		parts := make([]string, len(val))
		for i, f := range val {
			parts[i] = FormatNumber(f)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case Matrix:
		parts := make([]string, len(val))
		for i, f := range val {
			parts[i] = FormatNumber(f)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case Ref:
		return fmt.Sprintf("%s:%s", val.Kind, val.ID)
	case RefList:
		parts := make([]string, len(val))
		for i, r := range val {
			parts[i] = fmt.Sprintf("%s:%s", r.Kind, r.ID)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
