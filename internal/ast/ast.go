// Package ast defines the abstract syntax tree produced by the parser.
//
// AST nodes are owned by the compile pipeline: created by the parser,
// consumed by the binder, discarded after planning. They carry source
// positions but no schema knowledge; name resolution and typing happen
// in the bind package.
package ast

import "strings"

// Pos is a 1-based source position within the query text.
type Pos struct {
	Line   int
	Column int
}

// FieldPath is a dotted field reference. All segments before the last
// traverse relationship fields ("material.name" follows material, then
// reads name). A single segment is a direct field access.
type FieldPath struct {
	Segments []string
	Pos      Pos
}

// String renders the path in source form.
func (p FieldPath) String() string {
	return strings.Join(p.Segments, ".")
}

// Query is one parsed SELECT statement.
type Query struct {
	Distinct bool

	// Star is set for SELECT *; Fields is empty in that case.
	Star   bool
	Fields []SelectField

	From    string
	FromPos Pos

	// Where is nil when the query has no WHERE clause.
	Where Expr

	OrderBy []OrderKey

	// Limit is nil when the query has no LIMIT clause.
	Limit *int
}

// SelectField is one projected field, optionally aliased with AS.
type SelectField struct {
	Path  FieldPath
	Alias string
}

// OrderKey is one ORDER BY key.
type OrderKey struct {
	Path FieldPath
	Desc bool
}

// Expr is a sealed interface over WHERE expression nodes. Only types in
// this package implement it, which keeps binder and executor type
// switches exhaustive.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// CompareOp enumerates binary comparison operators.
type CompareOp int

const (
	OpEq CompareOp = iota + 1 // =
	OpNe                      // != or <>
	OpLt                      // <
	OpLe                      // <=
	OpGt                      // >
	OpGe                      // >=
	OpLike                    // LIKE
)

// String returns the source spelling of the operator.
func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpLike:
		return "LIKE"
	default:
		return "?"
	}
}

// LiteralKind tags the type of a parsed literal.
type LiteralKind int

const (
	LitString LiteralKind = iota + 1
	LitNumber
	LitBool
	LitNull
)

// Literal is a parsed literal value. Exactly one of the value fields is
// meaningful, selected by Kind.
type Literal struct {
	Kind LiteralKind
	Str  string
	Num  float64
	Bool bool
	Pos  Pos
}

// Compare is `path op literal`.
type Compare struct {
	Path  FieldPath
	Op    CompareOp
	Value Literal
}

func (*Compare) exprNode() {}

// In is `path [NOT] IN (literal, ...)`.
type In struct {
	Path   FieldPath
	Values []Literal
	Negate bool
}

func (*In) exprNode() {}

// Between is `path [NOT] BETWEEN lo AND hi`, inclusive on both ends.
type Between struct {
	Path   FieldPath
	Lo, Hi Literal
	Negate bool
}

func (*Between) exprNode() {}

// IsNull is `path IS [NOT] NULL`.
type IsNull struct {
	Path   FieldPath
	Negate bool
}

func (*IsNull) exprNode() {}

// And is a conjunction. Binds tighter than Or.
type And struct {
	Exprs []Expr
}

func (*And) exprNode() {}

// Or is a disjunction.
type Or struct {
	Exprs []Expr
}

func (*Or) exprNode() {}

// Not negates its operand. Binds tighter than And.
type Not struct {
	Expr Expr
}

func (*Not) exprNode() {}
