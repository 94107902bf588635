// Package bind resolves and types a parsed query against the schema
// catalog. The bound query is the planner's input: every field path is
// resolved hop by hop, every comparison is statically typed, and nothing
// unresolved survives past this package.
package bind

import (
	"regexp"

	"github.com/perch3d/sceneql/internal/ast"
	"github.com/perch3d/sceneql/internal/scene"
	"github.com/perch3d/sceneql/internal/schema"
)

// Hop is one resolved relationship traversal step.
type Hop struct {
	// Field is the relation field name on the kind in scope.
	Field string
	// Target is the entity kind the relation points at.
	Target string
	// Many marks an ordered-sequence relation; traversal fans out one
	// row per leaf.
	Many bool
}

// Path is a fully resolved field path: zero or more relationship hops
// followed by a terminal field read on the final kind in scope.
type Path struct {
	// Raw is the source spelling ("material.name").
	Raw string
	// Hops are the relationship traversals, in source order.
	Hops []Hop
	// Terminal is the resolved field the path finally reads. It may
	// itself be a relation, in which case the path projects a reference.
	Terminal schema.Field
}

// HasHops reports whether the path traverses any relationship.
func (p Path) HasHops() bool { return len(p.Hops) > 0 }

// Field is one projected output column.
type Field struct {
	// Name is the row key: the AS alias if given, the raw path otherwise.
	Name string
	Path Path
}

// OrderKey is one resolved ORDER BY key.
type OrderKey struct {
	Path Path
	Desc bool
}

// Expr is the sealed interface over bound WHERE expression nodes.
type Expr interface {
	boundExpr() // Marker method - seals interface to this package
}

// Compare is a typed `path op value` predicate. For OpLike, Pattern holds
// the wildcard pattern compiled once at bind time.
type Compare struct {
	Path    Path
	Op      ast.CompareOp
	Value   scene.Value
	Pattern *regexp.Regexp
}

func (*Compare) boundExpr() {}

// In is a typed `path [NOT] IN (...)` predicate.
type In struct {
	Path   Path
	Values []scene.Value
	Negate bool
}

func (*In) boundExpr() {}

// Between is a typed `path [NOT] BETWEEN lo AND hi` predicate, inclusive.
type Between struct {
	Path   Path
	Lo, Hi scene.Value
	Negate bool
}

func (*Between) boundExpr() {}

// IsNull is `path IS [NOT] NULL`.
type IsNull struct {
	Path   Path
	Negate bool
}

func (*IsNull) boundExpr() {}

// And is a bound conjunction.
type And struct {
	Exprs []Expr
}

func (*And) boundExpr() {}

// Or is a bound disjunction.
type Or struct {
	Exprs []Expr
}

func (*Or) boundExpr() {}

// Not negates its operand.
type Not struct {
	Expr Expr
}

func (*Not) boundExpr() {}

// Query is the bound form of one SELECT statement. Owned by the binder,
// consumed by the planner, discarded after planning.
type Query struct {
	Distinct bool
	From     *schema.Kind
	Fields   []Field
	// Where is nil when the query has no WHERE clause.
	Where   Expr
	OrderBy []OrderKey
	// Limit is nil when the query has no LIMIT clause.
	Limit *int
}
