package bind

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/perch3d/sceneql/internal/ast"
	"github.com/perch3d/sceneql/internal/scene"
	"github.com/perch3d/sceneql/internal/schema"
)

// Bind resolves an AST against the catalog and assigns static types.
// maxDepth bounds the relationship hops of any single field path; it is
// the same limit the executor later enforces dynamically against cycles.
//
// Failure is always a *SemanticError; a query that binds cleanly cannot
// fail planning.
func Bind(q *ast.Query, catalog *schema.Catalog, maxDepth int) (*Query, error) {
	from, ok := catalog.Kind(q.From)
	if !ok {
		return nil, &SemanticError{
			Kind:   KindUnknownEntityKind,
			Path:   q.From,
			Detail: fmt.Sprintf("known kinds: %s", strings.Join(catalog.Kinds(), ", ")),
		}
	}

	b := &binder{catalog: catalog, from: from, maxDepth: maxDepth}

	bq := &Query{
		Distinct: q.Distinct,
		From:     from,
		Limit:    q.Limit,
	}

	if q.Star {
		for _, f := range from.Fields() {
			bq.Fields = append(bq.Fields, Field{
				Name: f.Name,
				Path: Path{Raw: f.Name, Terminal: f},
			})
		}
	} else {
		for _, sf := range q.Fields {
			path, err := b.resolvePath(sf.Path)
			if err != nil {
				return nil, err
			}
			name := sf.Alias
			if name == "" {
				name = path.Raw
			}
			bq.Fields = append(bq.Fields, Field{Name: name, Path: path})
		}
	}

	if q.Where != nil {
		where, err := b.bindExpr(q.Where)
		if err != nil {
			return nil, err
		}
		bq.Where = where
	}

	for _, key := range q.OrderBy {
		path, err := b.resolvePath(key.Path)
		if err != nil {
			return nil, err
		}
		if !path.Terminal.Type.Kind.Scalar() {
			return nil, &SemanticError{
				Kind:   KindInvalidOperatorForType,
				Path:   path.Raw,
				Detail: fmt.Sprintf("ORDER BY wants a scalar field, %s is %s", path.Raw, path.Terminal.Type),
			}
		}
		bq.OrderBy = append(bq.OrderBy, OrderKey{Path: path, Desc: key.Desc})
	}

	return bq, nil
}

type binder struct {
	catalog  *schema.Catalog
	from     *schema.Kind
	maxDepth int
}

// resolvePath walks a dotted path from the FROM kind, hop by hop. Every
// segment but the last must be a relation; the kind in scope advances
// across each hop.
func (b *binder) resolvePath(p ast.FieldPath) (Path, error) {
	raw := p.String()
	current := b.from
	var hops []Hop

	for i, seg := range p.Segments {
		f, ok := current.Field(seg)
		if !ok {
			return Path{}, &SemanticError{
				Kind:   KindUnknownField,
				Path:   raw,
				Detail: fmt.Sprintf("kind %q has no field %q", current.Name, seg),
			}
		}
		last := i == len(p.Segments)-1
		if last {
			if len(hops) > b.maxDepth {
				return Path{}, depthError(raw, len(hops), b.maxDepth)
			}
			return Path{Raw: raw, Hops: hops, Terminal: f}, nil
		}
		if f.Type.Kind != schema.TypeRelation {
			return Path{}, &SemanticError{
				Kind:   KindTypeMismatch,
				Path:   raw,
				Detail: fmt.Sprintf("%q is %s, not a relation; only relations can be traversed", seg, f.Type),
			}
		}
		hops = append(hops, Hop{Field: seg, Target: f.Type.Target, Many: f.Type.Many})
		if len(hops) > b.maxDepth {
			return Path{}, depthError(raw, len(hops), b.maxDepth)
		}
		next, ok := b.catalog.Kind(f.Type.Target)
		if !ok {
			// NewCatalog verifies targets; a miss here is a corrupted catalog.
			return Path{}, &SemanticError{
				Kind:   KindUnknownEntityKind,
				Path:   raw,
				Detail: fmt.Sprintf("relation target %q missing from catalog", f.Type.Target),
			}
		}
		current = next
	}
	// Unreachable: the parser never produces an empty path.
	return Path{}, &SemanticError{Kind: KindUnknownField, Path: raw, Detail: "empty field path"}
}

func depthError(raw string, hops, max int) *SemanticError {
	return &SemanticError{
		Kind:   KindRelationshipDepthExceeded,
		Path:   raw,
		Detail: fmt.Sprintf("path traverses %d relationship hops, limit is %d", hops, max),
	}
}

func (b *binder) bindExpr(e ast.Expr) (Expr, error) {
	switch expr := e.(type) {
	case *ast.Compare:
		return b.bindCompare(expr)
	case *ast.In:
		return b.bindIn(expr)
	case *ast.Between:
		return b.bindBetween(expr)
	case *ast.IsNull:
		path, err := b.resolvePath(expr.Path)
		if err != nil {
			return nil, err
		}
		return &IsNull{Path: path, Negate: expr.Negate}, nil
	case *ast.And:
		exprs, err := b.bindAll(expr.Exprs)
		if err != nil {
			return nil, err
		}
		return &And{Exprs: exprs}, nil
	case *ast.Or:
		exprs, err := b.bindAll(expr.Exprs)
		if err != nil {
			return nil, err
		}
		return &Or{Exprs: exprs}, nil
	case *ast.Not:
		inner, err := b.bindExpr(expr.Expr)
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	default:
		// The ast.Expr interface is sealed; this cannot happen.
		return nil, &SemanticError{Kind: KindTypeMismatch, Path: "", Detail: fmt.Sprintf("unknown expression %T", e)}
	}
}

func (b *binder) bindAll(exprs []ast.Expr) ([]Expr, error) {
	out := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		be, err := b.bindExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, be)
	}
	return out, nil
}

func (b *binder) bindCompare(c *ast.Compare) (Expr, error) {
	path, err := b.resolvePath(c.Path)
	if err != nil {
		return nil, err
	}
	ft := path.Terminal.Type

	if err := checkOperator(path, c.Op); err != nil {
		return nil, err
	}

	if c.Op == ast.OpLike {
		if c.Value.Kind != ast.LitString {
			return nil, &SemanticError{
				Kind:   KindTypeMismatch,
				Path:   path.Raw,
				Detail: "LIKE wants a string pattern",
			}
		}
		return &Compare{
			Path:    path,
			Op:      ast.OpLike,
			Value:   scene.String(c.Value.Str),
			Pattern: compileLike(c.Value.Str),
		}, nil
	}

	v, err := literalValue(c.Value, ft, path.Raw)
	if err != nil {
		return nil, err
	}
	return &Compare{Path: path, Op: c.Op, Value: v}, nil
}

func (b *binder) bindIn(in *ast.In) (Expr, error) {
	path, err := b.resolvePath(in.Path)
	if err != nil {
		return nil, err
	}
	if !path.Terminal.Type.Kind.Scalar() {
		return nil, invalidOp(path, "IN")
	}
	values := make([]scene.Value, 0, len(in.Values))
	for _, lit := range in.Values {
		v, err := literalValue(lit, path.Terminal.Type, path.Raw)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return &In{Path: path, Values: values, Negate: in.Negate}, nil
}

func (b *binder) bindBetween(bt *ast.Between) (Expr, error) {
	path, err := b.resolvePath(bt.Path)
	if err != nil {
		return nil, err
	}
	switch path.Terminal.Type.Kind {
	case schema.TypeNumber, schema.TypeString:
	default:
		return nil, invalidOp(path, "BETWEEN")
	}
	lo, err := literalValue(bt.Lo, path.Terminal.Type, path.Raw)
	if err != nil {
		return nil, err
	}
	hi, err := literalValue(bt.Hi, path.Terminal.Type, path.Raw)
	if err != nil {
		return nil, err
	}
	return &Between{Path: path, Lo: lo, Hi: hi, Negate: bt.Negate}, nil
}

// checkOperator rejects operators undefined for the field's type:
// ordering on booleans or enums, anything but IS NULL on compounds and
// relations, LIKE on non-strings.
func checkOperator(path Path, op ast.CompareOp) error {
	ft := path.Terminal.Type.Kind
	if !ft.Scalar() {
		return invalidOp(path, op.String())
	}
	switch op {
	case ast.OpEq, ast.OpNe:
		return nil
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if ft == schema.TypeNumber || ft == schema.TypeString {
			return nil
		}
		return invalidOp(path, op.String())
	case ast.OpLike:
		if ft == schema.TypeString {
			return nil
		}
		return invalidOp(path, "LIKE")
	default:
		return invalidOp(path, op.String())
	}
}

func invalidOp(path Path, op string) *SemanticError {
	return &SemanticError{
		Kind:   KindInvalidOperatorForType,
		Path:   path.Raw,
		Detail: fmt.Sprintf("%s is not defined for %s field %s", op, path.Terminal.Type, path.Raw),
	}
}

// literalValue types a literal against the declared field type. There is
// no implicit coercion: a number literal only matches a number field, a
// string literal a string or enum field, a bool literal a bool field.
// NULL literals never appear in comparisons; IS NULL covers them.
func literalValue(lit ast.Literal, ft schema.FieldType, path string) (scene.Value, error) {
	mismatch := func(want string) *SemanticError {
		return &SemanticError{
			Kind:   KindTypeMismatch,
			Path:   path,
			Detail: fmt.Sprintf("field is %s, literal is %s", ft, want),
		}
	}
	switch lit.Kind {
	case ast.LitString:
		switch ft.Kind {
		case schema.TypeString:
			return scene.String(lit.Str), nil
		case schema.TypeEnum:
			return scene.Enum(lit.Str), nil
		}
		return nil, mismatch("string")
	case ast.LitNumber:
		if ft.Kind == schema.TypeNumber {
			return scene.Number(lit.Num), nil
		}
		return nil, mismatch("number")
	case ast.LitBool:
		if ft.Kind == schema.TypeBool {
			return scene.Bool(lit.Bool), nil
		}
		return nil, mismatch("boolean")
	case ast.LitNull:
		return nil, &SemanticError{
			Kind:   KindTypeMismatch,
			Path:   path,
			Detail: "NULL is not a comparison operand; use IS NULL or IS NOT NULL",
		}
	default:
		return nil, mismatch("unknown")
	}
}

// compileLike translates a SQL LIKE pattern to an anchored regexp:
// '%' matches any run, '_' any single character, everything else is
// literal. Compiled once at bind time, never per row.
func compileLike(pattern string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}
