package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch3d/sceneql/internal/engine"
)

func TestScenario_Core(t *testing.T) {
	s, err := Load("testdata/scenarios/core.yaml")
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, s))
}

func TestScenario_Limits(t *testing.T) {
	s, err := Load("testdata/scenarios/limits.yaml")
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, s))
}

func TestLoad_Validation(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	_, err := Load(write("noname.yaml", "scene: s.yaml\nqueries:\n  - name: q\n    query: SELECT name FROM object\n"))
	assert.ErrorContains(t, err, "name is required")

	_, err = Load(write("noscene.yaml", "name: x\nqueries:\n  - name: q\n    query: SELECT name FROM object\n"))
	assert.ErrorContains(t, err, "scene is required")

	_, err = Load(write("noqueries.yaml", "name: x\nscene: s.yaml\n"))
	assert.ErrorContains(t, err, "at least one query")

	// Unknown keys are rejected so typos in scenario files fail loudly.
	_, err = Load(write("typo.yaml", "name: x\nscene: s.yaml\nqueris:\n  - name: q\n    query: SELECT name FROM object\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRun_ExpectationMismatch(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(scenePath, []byte(`
entities:
  - id: obj-1
    kind: object
    fields:
      name: Cube
`), 0o644))

	write := func(name, content string) *Scenario {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		s, err := Load(path)
		require.NoError(t, err)
		return s
	}

	// Step succeeds but declares an expected error.
	s := write("wants-error.yaml", `
name: wants-error
scene: scene.yaml
queries:
  - name: q
    query: SELECT name FROM object
    expect_error: semantic
`)
	_, err := Run(s)
	assert.ErrorContains(t, err, "query succeeded")

	// Step fails but no error was declared.
	s = write("unexpected.yaml", `
name: unexpected
scene: scene.yaml
queries:
  - name: q
    query: SELECT bogus FROM object
`)
	_, err = Run(s)
	assert.ErrorContains(t, err, "unexpected semantic error")

	// Step fails with a different class than declared.
	s = write("wrong-class.yaml", `
name: wrong-class
scene: scene.yaml
queries:
  - name: q
    query: SELECT bogus FROM object
    expect_error: syntax
`)
	_, err = Run(s)
	assert.ErrorContains(t, err, "expected syntax error")
}

func TestRun_BadLimits(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(scenePath, []byte("entities: []\n"), 0o644))
	path := filepath.Join(dir, "bad-limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: bad-limits
scene: scene.yaml
limits:
  timeout: soon
queries:
  - name: q
    query: SELECT name FROM object
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	_, err = Run(s)
	assert.ErrorContains(t, err, "limits.timeout")
}

func TestRender(t *testing.T) {
	r := &Result{Outputs: []QueryOutput{
		{Name: "ok", Payload: []byte(`{"fields":[],"count":0,"truncated":false,"rows":[]}`)},
		{Name: "bad", Class: engine.ClassSemantic, Err: "UNKNOWN_FIELD: bogus"},
	}}
	want := "== ok\n" +
		`{"fields":[],"count":0,"truncated":false,"rows":[]}` + "\n" +
		"== bad\nerror (semantic): UNKNOWN_FIELD: bogus\n"
	assert.Equal(t, want, string(Render(r)))
}
