// Package plan lowers a bound query into an ordered sequence of execution
// steps. Planning is infallible: every name and type question was settled
// by the binder, so the planner only decides step order and predicate
// placement.
package plan

import (
	"fmt"
	"strings"

	"github.com/perch3d/sceneql/internal/bind"
)

// Step is the sealed interface over plan steps. The executor interprets
// steps in order; the step sequence is consumed once, then discarded.
type Step interface {
	planStep() // Marker method - seals interface to this package
}

// Scan produces the candidate entities of the FROM kind, lazily, in the
// adapter's discovery order.
type Scan struct {
	Kind string
}

func (*Scan) planStep() {}

// Filter applies a predicate. A pushed-down filter references only direct
// fields and runs per entity during the scan, before any relationship
// expansion; a residual filter runs per expanded row.
type Filter struct {
	Expr     bind.Expr
	Residual bool
}

func (*Filter) planStep() {}

// Expand traverses one relationship path, fanning out one row per leaf
// for many-valued relations and propagating NULL for missing targets.
type Expand struct {
	Path bind.Path
}

func (*Expand) planStep() {}

// Distinct removes duplicate projected rows, keeping first occurrence.
type Distinct struct{}

func (*Distinct) planStep() {}

// Sort orders rows by the keys, stably: equal keys preserve scan-discovery
// order. Numbers order by value, strings and enums by code point, booleans
// false before true; NULL sorts before every non-null value.
type Sort struct {
	Keys []bind.OrderKey
}

func (*Sort) planStep() {}

// Limit caps the row count. Always the final step.
type Limit struct {
	N int
}

func (*Limit) planStep() {}

// Plan is the ordered step sequence plus the projection the executor
// materializes rows against.
type Plan struct {
	Steps  []Step
	Fields []bind.Field
}

// Explain renders the plan as deterministic text, one step per line.
// Used by the CLI explain command and golden tests.
func (p *Plan) Explain() string {
	var sb strings.Builder
	for i, step := range p.Steps {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch s := step.(type) {
		case *Scan:
			fmt.Fprintf(&sb, "scan %s", s.Kind)
		case *Filter:
			if s.Residual {
				fmt.Fprintf(&sb, "filter (residual) %s", ExplainExpr(s.Expr))
			} else {
				fmt.Fprintf(&sb, "filter (pushdown) %s", ExplainExpr(s.Expr))
			}
		case *Expand:
			fmt.Fprintf(&sb, "expand %s", s.Path.Raw)
		case *Distinct:
			sb.WriteString("distinct")
		case *Sort:
			keys := make([]string, len(s.Keys))
			for i, k := range s.Keys {
				dir := "asc"
				if k.Desc {
					dir = "desc"
				}
				keys[i] = k.Path.Raw + " " + dir
			}
			fmt.Fprintf(&sb, "sort %s", strings.Join(keys, ", "))
		case *Limit:
			fmt.Fprintf(&sb, "limit %d", s.N)
		}
	}
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.Name
	}
	fmt.Fprintf(&sb, "\nproject %s", strings.Join(names, ", "))
	return sb.String()
}

// ExplainExpr renders a bound predicate compactly for explain output.
func ExplainExpr(e bind.Expr) string {
	switch expr := e.(type) {
	case *bind.Compare:
		return fmt.Sprintf("%s %s …", expr.Path.Raw, expr.Op)
	case *bind.In:
		if expr.Negate {
			return fmt.Sprintf("%s not in (%d values)", expr.Path.Raw, len(expr.Values))
		}
		return fmt.Sprintf("%s in (%d values)", expr.Path.Raw, len(expr.Values))
	case *bind.Between:
		if expr.Negate {
			return expr.Path.Raw + " not between"
		}
		return expr.Path.Raw + " between"
	case *bind.IsNull:
		if expr.Negate {
			return expr.Path.Raw + " is not null"
		}
		return expr.Path.Raw + " is null"
	case *bind.And:
		parts := make([]string, len(expr.Exprs))
		for i, sub := range expr.Exprs {
			parts[i] = ExplainExpr(sub)
		}
		return "(" + strings.Join(parts, " and ") + ")"
	case *bind.Or:
		parts := make([]string, len(expr.Exprs))
		for i, sub := range expr.Exprs {
			parts[i] = ExplainExpr(sub)
		}
		return "(" + strings.Join(parts, " or ") + ")"
	case *bind.Not:
		return "not " + ExplainExpr(expr.Expr)
	default:
		return "?"
	}
}
