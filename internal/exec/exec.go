// Package exec interprets a plan against the Scene Model Adapter.
//
// Execution is synchronous and single-threaded: the adapter lives on the
// host's main thread, so the executor never parallelizes steps. It walks
// entities lazily, enforces the wall-clock budget and the row ceiling
// between steps and the byte ceiling on the rows the final payload
// carries, guards relationship traversals against cycles with per-path
// visited sets, and propagates NULL through missing relationship
// targets instead of dropping rows.
package exec

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/perch3d/sceneql/internal/ast"
	"github.com/perch3d/sceneql/internal/bind"
	"github.com/perch3d/sceneql/internal/plan"
	"github.com/perch3d/sceneql/internal/result"
	"github.com/perch3d/sceneql/internal/scene"
	"github.com/perch3d/sceneql/internal/schema"
)

// Run executes a plan with the real-time clock.
func Run(ctx context.Context, p *plan.Plan, ad scene.Adapter, lim Limits) (*result.Set, error) {
	return (&Executor{Clock: Wall}).Run(ctx, p, ad, lim)
}

// Executor runs plans. The zero value uses the real-time clock; tests
// inject a fake clock to drive deadlines.
type Executor struct {
	Clock Clock
}

// Run executes one plan. The returned set is owned by the caller; the
// executor retains nothing. On error the set is always nil.
func (e *Executor) Run(ctx context.Context, p *plan.Plan, ad scene.Adapter, lim Limits) (*result.Set, error) {
	// Misconfigured limits are a caller bug, not a query failure, so
	// they stay outside the execution error taxonomy.
	if err := lim.Validate(); err != nil {
		return nil, fmt.Errorf("invalid execution limits: %w", err)
	}
	clock := e.Clock
	if clock == nil {
		clock = Wall
	}

	r := &run{
		ctx:      ctx,
		adapter:  ad,
		lim:      lim,
		clock:    clock,
		deadline: clock.Now().Add(lim.Timeout),
		fields:   fieldNames(p.Fields),
	}
	if err := r.decompose(p); err != nil {
		return nil, err
	}
	return r.execute(p)
}

// rowData is one accumulated row plus what post-processing needs: the
// deterministic encoding (size metering, DISTINCT keys) and precomputed
// sort keys.
type rowData struct {
	values   result.Row
	encoded  []byte
	sortKeys []scene.Value
}

type run struct {
	ctx      context.Context
	adapter  scene.Adapter
	lim      Limits
	clock    Clock
	deadline time.Time

	fields []string

	scan     *plan.Scan
	pushdown bind.Expr
	expands  []bind.Path
	residual bind.Expr
	distinct bool
	sort     *plan.Sort
	limit    int // query LIMIT, -1 when absent

	rows      []rowData
	truncated bool
	cancelled bool
}

func fieldNames(fields []bind.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// decompose splits the plan's step list into the fixed shape the
// interpreter walks. Step order is guaranteed by the planner.
func (r *run) decompose(p *plan.Plan) error {
	r.limit = -1
	for _, step := range p.Steps {
		switch s := step.(type) {
		case *plan.Scan:
			r.scan = s
		case *plan.Filter:
			if s.Residual {
				r.residual = s.Expr
			} else {
				r.pushdown = s.Expr
			}
		case *plan.Expand:
			if len(s.Path.Hops) > r.lim.MaxRelationshipDepth {
				return &Error{
					Kind: KindCycleDepthExceeded,
					Detail: fmt.Sprintf("path %s traverses %d hops, execution limit is %d",
						s.Path.Raw, len(s.Path.Hops), r.lim.MaxRelationshipDepth),
				}
			}
			r.expands = append(r.expands, s.Path)
		case *plan.Distinct:
			r.distinct = true
		case *plan.Sort:
			r.sort = s
		case *plan.Limit:
			r.limit = s.N
		}
	}
	if r.scan == nil {
		return &Error{Kind: KindAdapterUnavailable, Detail: "plan has no scan step"}
	}
	return nil
}

func (r *run) execute(p *plan.Plan) (*result.Set, error) {
	cursor, err := r.adapter.EntitiesOfKind(r.scan.Kind)
	if err != nil {
		return nil, &Error{Kind: KindAdapterUnavailable, Detail: err.Error()}
	}

	seen := make(map[string]bool) // distinct keys

	// earlyStop is the row count at which scanning can end. The query
	// LIMIT only stops the scan when no sort follows: with ORDER BY the
	// limit applies to sorted rows, so the scan runs to MaxRows.
	// Stopping at a satisfied LIMIT is a complete result; stopping at
	// MaxRows truncates.
	earlyStop, stopIsLimit := r.lim.MaxRows, false
	if r.limit >= 0 && r.sort == nil && r.limit <= earlyStop {
		earlyStop, stopIsLimit = r.limit, true
	}
	if earlyStop == 0 {
		return r.finish()
	}

scan:
	for {
		if done, err := r.checkpoint(); err != nil {
			return nil, err
		} else if done {
			break scan
		}

		ent, ok := cursor.Next()
		if !ok {
			break
		}

		if r.pushdown != nil {
			keep, err := r.evalExpr(rowCtx{ent: ent}, r.pushdown)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
		}

		combos, err := r.expandEntity(ent)
		if err != nil {
			return nil, err
		}

		for ci, ctx := range combos {
			if r.residual != nil {
				keep, err := r.evalExpr(ctx, r.residual)
				if err != nil {
					return nil, err
				}
				if !keep {
					continue
				}
			}

			row, err := r.project(ctx, p.Fields)
			if err != nil {
				return nil, err
			}
			encoded := result.EncodeRow(r.fields, row)

			if r.distinct {
				key := string(encoded)
				if seen[key] {
					continue
				}
				seen[key] = true
			}

			if err := r.checkRowSize(encoded, row); err != nil {
				return nil, err
			}

			rd := rowData{values: row, encoded: encoded}
			if r.sort != nil {
				rd.sortKeys, err = r.sortKeys(ctx)
				if err != nil {
					return nil, err
				}
			}
			r.rows = append(r.rows, rd)

			if len(r.rows) >= earlyStop {
				if !stopIsLimit {
					// A cap met exactly as the input runs out is a
					// complete result: only flag truncation when the
					// current fan-out or the cursor has more to give.
					if ci+1 < len(combos) {
						r.truncated = true
					} else if _, more := cursor.Next(); more {
						r.truncated = true
					}
				}
				break scan
			}
		}
	}

	return r.finish()
}

// checkpoint runs the per-step-boundary checks: caller cancellation and
// the wall-clock budget. Cancellation and a post-first-row deadline are
// non-error terminations; a deadline with nothing produced is a Timeout.
func (r *run) checkpoint() (done bool, err error) {
	if r.ctx != nil && r.ctx.Err() != nil {
		r.cancelled = true
		return true, nil
	}
	if r.clock.Now().After(r.deadline) {
		if len(r.rows) == 0 {
			return false, &Error{Kind: KindTimeout, Detail: fmt.Sprintf("budget %s elapsed", r.lim.Timeout)}
		}
		r.truncated = true
		return true, nil
	}
	return false, nil
}

// checkRowSize rejects a single row larger than the whole byte budget,
// reported against its widest field so oversized compound values
// surface by name. The cumulative ceiling is enforced in finish, after
// sort and limit have pruned the rows the payload actually carries.
func (r *run) checkRowSize(encoded []byte, row result.Row) error {
	if len(encoded) > r.lim.MaxPayloadBytes {
		return &Error{
			Kind: KindResultTooLarge,
			Detail: fmt.Sprintf("row of %d bytes exceeds payload ceiling %d (largest field: %s)",
				len(encoded), r.lim.MaxPayloadBytes, r.widestField(row)),
		}
	}
	return nil
}

func (r *run) widestField(row result.Row) string {
	widest, size := "", -1
	for i, name := range r.fields {
		if i >= len(row) {
			break
		}
		if n := len(result.EncodeValue(row[i])); n > size {
			widest, size = name, n
		}
	}
	return widest
}

func (r *run) finish() (*result.Set, error) {
	if r.sort != nil {
		r.applySort()
	}
	if r.limit >= 0 && len(r.rows) > r.limit {
		r.rows = r.rows[:r.limit]
	}
	total := 0
	for _, rd := range r.rows {
		total += len(rd.encoded) + 1
	}
	if total > r.lim.MaxPayloadBytes {
		return nil, &Error{
			Kind: KindResultTooLarge,
			Detail: fmt.Sprintf("payload of %d bytes over %d rows exceeds ceiling %d",
				total, len(r.rows), r.lim.MaxPayloadBytes),
		}
	}
	set := &result.Set{
		Fields:    r.fields,
		Rows:      make([]result.Row, len(r.rows)),
		Truncated: r.truncated,
		Cancelled: r.cancelled,
	}
	for i, rd := range r.rows {
		set.Rows[i] = rd.values
	}
	return set, nil
}

// applySort orders rows by the precomputed sort keys. The sort is
// stable, so rows equal under every key keep their scan-discovery
// order. NULL orders before every non-null value.
func (r *run) applySort() {
	keys := r.sort.Keys
	sort.SliceStable(r.rows, func(i, j int) bool {
		a, b := r.rows[i].sortKeys, r.rows[j].sortKeys
		for k := range keys {
			c := compareForSort(a[k], b[k])
			if c == 0 {
				continue
			}
			if keys[k].Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareForSort is the total order used by ORDER BY: NULL first, then
// the scalar order. The binder guarantees both values share a scalar
// type, so the incomparable case only arises when one side is NULL.
func compareForSort(a, b scene.Value) int {
	an, bn := valueIsEmpty(a), valueIsEmpty(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	c, ok := compareValues(a, b)
	if !ok {
		return 0
	}
	return c
}

// rowCtx is one candidate row during execution: the scanned entity plus
// the leaf value chosen for every expanded relationship path.
type rowCtx struct {
	ent    scene.EntityRef
	leaves map[string]scene.Value
}

// expandEntity resolves every relationship path for one entity and
// returns the row contexts it fans out to: the cartesian product of the
// paths' leaf sets. Entities with no relationship paths yield exactly
// one context.
func (r *run) expandEntity(ent scene.EntityRef) ([]rowCtx, error) {
	if len(r.expands) == 0 {
		return []rowCtx{{ent: ent}}, nil
	}

	leafSets := make([][]scene.Value, len(r.expands))
	for i, path := range r.expands {
		if done, err := r.checkpoint(); err != nil {
			return nil, err
		} else if done {
			return nil, nil
		}
		leaves, err := r.pathLeaves(ent, path)
		if err != nil {
			return nil, err
		}
		leafSets[i] = leaves
	}

	combos := []rowCtx{{ent: ent, leaves: map[string]scene.Value{}}}
	for i, path := range r.expands {
		next := make([]rowCtx, 0, len(combos)*len(leafSets[i]))
		for _, c := range combos {
			for _, leaf := range leafSets[i] {
				leaves := make(map[string]scene.Value, len(c.leaves)+1)
				for k, v := range c.leaves {
					leaves[k] = v
				}
				leaves[path.Raw] = leaf
				next = append(next, rowCtx{ent: ent, leaves: leaves})
			}
		}
		combos = next
	}
	return combos, nil
}

// pathLeaves walks one relationship path depth-first from the entity and
// collects the terminal values at its leaves. A visited set of entity
// IDs per traversal branch halts cycles silently: revisiting an entity
// on the same branch ends that branch, it does not error, because cycles
// via parenting are expected in real scene graphs. A path whose every
// branch dead-ends yields a single NULL so the row survives.
func (r *run) pathLeaves(root scene.EntityRef, path bind.Path) ([]scene.Value, error) {
	var leaves []scene.Value
	visited := map[scene.ID]bool{root.ID: true}

	var walk func(ent scene.EntityRef, hop int) error
	walk = func(ent scene.EntityRef, hop int) error {
		if hop == len(path.Hops) {
			v, err := r.terminalValue(ent, path.Terminal)
			if err != nil {
				return err
			}
			leaves = append(leaves, v)
			return nil
		}
		targets, err := r.adapter.Relationship(ent, path.Hops[hop].Field)
		if err != nil {
			return &Error{Kind: KindAdapterUnavailable, Detail: err.Error()}
		}
		if len(targets) == 0 {
			// Missing target: NULL propagates to dependent fields.
			leaves = append(leaves, scene.Null{})
			return nil
		}
		for _, t := range targets {
			if visited[t.ID] {
				continue // cycle: halt this branch
			}
			visited[t.ID] = true
			err := walk(t, hop+1)
			delete(visited, t.ID)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return nil, err
	}
	if len(leaves) == 0 {
		leaves = []scene.Value{scene.Null{}}
	}
	return leaves, nil
}

// terminalValue reads the path's final field on the leaf entity. A
// terminal relation projects as a reference, never the nested entity.
func (r *run) terminalValue(ent scene.EntityRef, f schema.Field) (scene.Value, error) {
	if f.Type.Kind == schema.TypeRelation {
		targets, err := r.adapter.Relationship(ent, f.Name)
		if err != nil {
			return nil, &Error{Kind: KindAdapterUnavailable, Detail: err.Error()}
		}
		if f.Type.Many {
			if targets == nil {
				return scene.RefList{}, nil
			}
			return scene.RefList(targets), nil
		}
		if len(targets) == 0 {
			return scene.Null{}, nil
		}
		return scene.Ref(targets[0]), nil
	}
	v, err := r.adapter.Field(ent, f.Name)
	if err != nil {
		return nil, &Error{Kind: KindAdapterUnavailable, Detail: err.Error()}
	}
	if v == nil {
		v = scene.Null{}
	}
	return v, nil
}

// pathValue resolves a bound path within a row context: expanded paths
// read their chosen leaf, direct paths read the scanned entity.
func (r *run) pathValue(ctx rowCtx, p bind.Path) (scene.Value, error) {
	if p.HasHops() {
		if v, ok := ctx.leaves[p.Raw]; ok {
			return v, nil
		}
		// Pushdown predicates never reference hop paths; the planner
		// collected every hop path into an expand step.
		return scene.Null{}, nil
	}
	return r.terminalValue(ctx.ent, p.Terminal)
}

func (r *run) project(ctx rowCtx, fields []bind.Field) (result.Row, error) {
	row := make(result.Row, len(fields))
	for i, f := range fields {
		v, err := r.pathValue(ctx, f.Path)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

func (r *run) sortKeys(ctx rowCtx) ([]scene.Value, error) {
	keys := make([]scene.Value, len(r.sort.Keys))
	for i, k := range r.sort.Keys {
		v, err := r.pathValue(ctx, k.Path)
		if err != nil {
			return nil, err
		}
		keys[i] = v
	}
	return keys, nil
}

// evalExpr evaluates a bound predicate for one row context. Comparisons
// against NULL are false; IS NULL is the explicit null test. Logic is
// two-valued.
func (r *run) evalExpr(ctx rowCtx, e bind.Expr) (bool, error) {
	switch expr := e.(type) {
	case *bind.Compare:
		v, err := r.pathValue(ctx, expr.Path)
		if err != nil {
			return false, err
		}
		return evalCompare(v, expr), nil
	case *bind.In:
		v, err := r.pathValue(ctx, expr.Path)
		if err != nil {
			return false, err
		}
		if scene.IsNull(v) {
			return false, nil
		}
		for _, member := range expr.Values {
			if equalValues(v, member) {
				return !expr.Negate, nil
			}
		}
		return expr.Negate, nil
	case *bind.Between:
		v, err := r.pathValue(ctx, expr.Path)
		if err != nil {
			return false, err
		}
		if scene.IsNull(v) {
			return false, nil
		}
		lo, okLo := compareValues(v, expr.Lo)
		hi, okHi := compareValues(v, expr.Hi)
		in := okLo && okHi && lo >= 0 && hi <= 0
		if expr.Negate {
			return !in, nil
		}
		return in, nil
	case *bind.IsNull:
		v, err := r.pathValue(ctx, expr.Path)
		if err != nil {
			return false, err
		}
		isNull := valueIsEmpty(v)
		if expr.Negate {
			return !isNull, nil
		}
		return isNull, nil
	case *bind.And:
		for _, sub := range expr.Exprs {
			ok, err := r.evalExpr(ctx, sub)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *bind.Or:
		for _, sub := range expr.Exprs {
			ok, err := r.evalExpr(ctx, sub)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case *bind.Not:
		ok, err := r.evalExpr(ctx, expr.Expr)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, nil
	}
}

func evalCompare(v scene.Value, expr *bind.Compare) bool {
	if scene.IsNull(v) {
		return false
	}
	if expr.Op == ast.OpLike {
		s, ok := v.(scene.String)
		if !ok {
			return false
		}
		return expr.Pattern.MatchString(string(s))
	}
	cmp, ok := compareValues(v, expr.Value)
	if !ok {
		return false
	}
	switch expr.Op {
	case ast.OpEq:
		return cmp == 0
	case ast.OpNe:
		return cmp != 0
	case ast.OpLt:
		return cmp < 0
	case ast.OpLe:
		return cmp <= 0
	case ast.OpGt:
		return cmp > 0
	case ast.OpGe:
		return cmp >= 0
	default:
		return false
	}
}

// valueIsEmpty treats Null and an empty reference list as null for
// IS NULL: a many-valued relation with no targets reads as absent.
func valueIsEmpty(v scene.Value) bool {
	if scene.IsNull(v) {
		return true
	}
	if list, ok := v.(scene.RefList); ok {
		return len(list) == 0
	}
	return false
}

// equalValues compares two scalars for equality across the scalar types
// the binder admits into IN lists.
func equalValues(a, b scene.Value) bool {
	cmp, ok := compareValues(a, b)
	return ok && cmp == 0
}

// compareValues orders two values of the same scalar type: numbers by
// value, strings and enums by code point, booleans false before true.
// ok is false for incomparable pairings.
func compareValues(a, b scene.Value) (int, bool) {
	switch av := a.(type) {
	case scene.Number:
		bv, ok := b.(scene.Number)
		if !ok {
			return 0, false
		}
		switch {
		case float64(av) < float64(bv):
			return -1, true
		case float64(av) > float64(bv):
			return 1, true
		default:
			return 0, true
		}
	case scene.String:
		bv, ok := b.(scene.String)
		if !ok {
			return 0, false
		}
		return stringCompare(string(av), string(bv)), true
	case scene.Enum:
		bv, ok := b.(scene.Enum)
		if !ok {
			return 0, false
		}
		return stringCompare(string(av), string(bv)), true
	case scene.Bool:
		bv, ok := b.(scene.Bool)
		if !ok {
			return 0, false
		}
		switch {
		case !bool(av) && bool(bv):
			return -1, true
		case bool(av) && !bool(bv):
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

func stringCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
