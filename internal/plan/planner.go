package plan

import "github.com/perch3d/sceneql/internal/bind"

// Build lowers a bound query into a plan.
//
// Step order is fixed: scan, pushed-down filter, relationship expansion
// in hop order, residual filter, distinct, sort, limit. A predicate is
// pushed down when it references only direct fields, so entities that
// will be discarded are filtered before any relationship traversal
// materializes rows for them.
func Build(bq *bind.Query) *Plan {
	p := &Plan{Fields: bq.Fields}
	p.Steps = append(p.Steps, &Scan{Kind: bq.From.Name})

	pushdown, residual := splitWhere(bq.Where)
	if pushdown != nil {
		p.Steps = append(p.Steps, &Filter{Expr: pushdown})
	}

	for _, path := range expandPaths(bq) {
		p.Steps = append(p.Steps, &Expand{Path: path})
	}

	if residual != nil {
		p.Steps = append(p.Steps, &Filter{Expr: residual, Residual: true})
	}
	if bq.Distinct {
		p.Steps = append(p.Steps, &Distinct{})
	}
	if len(bq.OrderBy) > 0 {
		p.Steps = append(p.Steps, &Sort{Keys: bq.OrderBy})
	}
	if bq.Limit != nil {
		p.Steps = append(p.Steps, &Limit{N: *bq.Limit})
	}
	return p
}

// splitWhere partitions a predicate into a pushdown part (direct fields
// only) and a residual part (references relationship paths). Top-level
// conjuncts split independently; any other shape is all-or-nothing.
func splitWhere(e bind.Expr) (pushdown, residual bind.Expr) {
	if e == nil {
		return nil, nil
	}
	if and, ok := e.(*bind.And); ok {
		var direct, deferred []bind.Expr
		for _, sub := range and.Exprs {
			if referencesHops(sub) {
				deferred = append(deferred, sub)
			} else {
				direct = append(direct, sub)
			}
		}
		return regroup(direct), regroup(deferred)
	}
	if referencesHops(e) {
		return nil, e
	}
	return e, nil
}

func regroup(exprs []bind.Expr) bind.Expr {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	default:
		return &bind.And{Exprs: exprs}
	}
}

// referencesHops reports whether any path under the expression traverses
// a relationship.
func referencesHops(e bind.Expr) bool {
	switch expr := e.(type) {
	case *bind.Compare:
		return expr.Path.HasHops()
	case *bind.In:
		return expr.Path.HasHops()
	case *bind.Between:
		return expr.Path.HasHops()
	case *bind.IsNull:
		return expr.Path.HasHops()
	case *bind.And:
		for _, sub := range expr.Exprs {
			if referencesHops(sub) {
				return true
			}
		}
		return false
	case *bind.Or:
		for _, sub := range expr.Exprs {
			if referencesHops(sub) {
				return true
			}
		}
		return false
	case *bind.Not:
		return referencesHops(expr.Expr)
	default:
		return false
	}
}

// expandPaths collects the distinct relationship paths the query needs,
// projection first, then residual predicate paths, deduplicated by
// source spelling in first-appearance order.
func expandPaths(bq *bind.Query) []bind.Path {
	seen := make(map[string]bool)
	var out []bind.Path
	add := func(p bind.Path) {
		if !p.HasHops() || seen[p.Raw] {
			return
		}
		seen[p.Raw] = true
		out = append(out, p)
	}
	for _, f := range bq.Fields {
		add(f.Path)
	}
	collectPaths(bq.Where, add)
	for _, k := range bq.OrderBy {
		add(k.Path)
	}
	return out
}

func collectPaths(e bind.Expr, add func(bind.Path)) {
	switch expr := e.(type) {
	case nil:
	case *bind.Compare:
		add(expr.Path)
	case *bind.In:
		add(expr.Path)
	case *bind.Between:
		add(expr.Path)
	case *bind.IsNull:
		add(expr.Path)
	case *bind.And:
		for _, sub := range expr.Exprs {
			collectPaths(sub, add)
		}
	case *bind.Or:
		for _, sub := range expr.Exprs {
			collectPaths(sub, add)
		}
	case *bind.Not:
		collectPaths(expr.Expr, add)
	}
}
