package plan

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch3d/sceneql/internal/bind"
	"github.com/perch3d/sceneql/internal/parser"
	"github.com/perch3d/sceneql/internal/schema"
)

func build(t *testing.T, src string) *Plan {
	t.Helper()
	q, err := parser.Parse(src)
	require.NoError(t, err)
	bq, err := bind.Bind(q, schema.Default(), 3)
	require.NoError(t, err)
	return Build(bq)
}

func TestBuild_ScanOnly(t *testing.T) {
	p := build(t, "SELECT name FROM object")

	require.Len(t, p.Steps, 1)
	scan, ok := p.Steps[0].(*Scan)
	require.True(t, ok)
	assert.Equal(t, "object", scan.Kind)
}

func TestBuild_StepOrder(t *testing.T) {
	p := build(t, `SELECT DISTINCT material.name FROM object
		WHERE visible = true AND material.name LIKE 'M%'
		ORDER BY material.name LIMIT 5`)

	require.Len(t, p.Steps, 7)
	_, ok := p.Steps[0].(*Scan)
	assert.True(t, ok, "step 0 scan")
	f1, ok := p.Steps[1].(*Filter)
	require.True(t, ok, "step 1 pushdown filter")
	assert.False(t, f1.Residual)
	_, ok = p.Steps[2].(*Expand)
	assert.True(t, ok, "step 2 expand")
	f2, ok := p.Steps[3].(*Filter)
	require.True(t, ok, "step 3 residual filter")
	assert.True(t, f2.Residual)
	_, ok = p.Steps[4].(*Distinct)
	assert.True(t, ok, "step 4 distinct")
	_, ok = p.Steps[5].(*Sort)
	assert.True(t, ok, "step 5 sort")
	lim, ok := p.Steps[6].(*Limit)
	require.True(t, ok, "step 6 limit")
	assert.Equal(t, 5, lim.N)
}

func TestBuild_PushdownSplitsConjunction(t *testing.T) {
	p := build(t, "SELECT name FROM object WHERE visible = true AND material.name = 'Metal'")

	var pushdown, residual *Filter
	for _, step := range p.Steps {
		if f, ok := step.(*Filter); ok {
			if f.Residual {
				residual = f
			} else {
				pushdown = f
			}
		}
	}
	require.NotNil(t, pushdown, "direct conjunct should push down")
	require.NotNil(t, residual, "hop conjunct should stay residual")

	cmp, ok := pushdown.Expr.(*bind.Compare)
	require.True(t, ok)
	assert.Equal(t, "visible", cmp.Path.Raw)
}

func TestBuild_DisjunctionWithHopsStaysResidual(t *testing.T) {
	// OR cannot be split: either arm alone would change semantics.
	p := build(t, "SELECT name FROM object WHERE visible = true OR material.name = 'Metal'")

	var filters []*Filter
	for _, step := range p.Steps {
		if f, ok := step.(*Filter); ok {
			filters = append(filters, f)
		}
	}
	require.Len(t, filters, 1)
	assert.True(t, filters[0].Residual)
}

func TestBuild_ExpandPathsDeduplicated(t *testing.T) {
	p := build(t, `SELECT material.name FROM object
		WHERE material.name != 'Metal' ORDER BY material.name`)

	var expands []*Expand
	for _, step := range p.Steps {
		if e, ok := step.(*Expand); ok {
			expands = append(expands, e)
		}
	}
	require.Len(t, expands, 1, "the same path expands once")
	assert.Equal(t, "material.name", expands[0].Path.Raw)
}

func TestBuild_ExpandOrderIsDeterministic(t *testing.T) {
	p := build(t, "SELECT material.name, parent.name FROM object WHERE mesh.vertices > 0")

	var raws []string
	for _, step := range p.Steps {
		if e, ok := step.(*Expand); ok {
			raws = append(raws, e.Path.Raw)
		}
	}
	// Projection paths first in projection order, then predicate paths.
	assert.Equal(t, []string{"material.name", "parent.name", "mesh.vertices"}, raws)
}

func TestExplain_Golden(t *testing.T) {
	g := goldie.New(t, goldie.WithNameSuffix(".golden"))

	cases := []struct {
		name string
		src  string
	}{
		{"scan_filter_sort_limit", "SELECT name FROM object WHERE visible = true ORDER BY name LIMIT 10"},
		{"distinct_expand_residual", `SELECT DISTINCT material.name AS mat FROM object
			WHERE visible = true AND material.name LIKE 'M%' ORDER BY material.name`},
		{"in_between_not", "SELECT name FROM object WHERE type IN ('MESH', 'LIGHT') AND vertices NOT BETWEEN 1 AND 9 AND NOT selected = true"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := build(t, tc.src)
			g.Assert(t, tc.name, []byte(p.Explain()))
		})
	}
}

func TestExplain_IsStable(t *testing.T) {
	src := "SELECT name, material.name FROM object WHERE visible = true ORDER BY name DESC"
	first := build(t, src).Explain()
	second := build(t, src).Explain()
	assert.Equal(t, first, second)
}
