package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch3d/sceneql/internal/bind"
	"github.com/perch3d/sceneql/internal/exec"
	"github.com/perch3d/sceneql/internal/parser"
	"github.com/perch3d/sceneql/internal/scene"
	"github.com/perch3d/sceneql/internal/schema"
	"github.com/perch3d/sceneql/internal/testutil"
)

func demoScene(t *testing.T) *scene.MemScene {
	t.Helper()
	ms := scene.NewMemScene(schema.Default())
	for _, obj := range []struct {
		id, name string
		visible  bool
	}{
		{"obj-cube", "Cube", true},
		{"obj-sphere", "Sphere", false},
		{"obj-cone", "Cone", true},
	} {
		ref, err := ms.AddEntity(scene.ID(obj.id), "object")
		require.NoError(t, err)
		require.NoError(t, ms.SetField(ref, "name", scene.String(obj.name)))
		require.NoError(t, ms.SetField(ref, "visible", scene.Bool(obj.visible)))
	}
	return ms
}

func TestExecute_EndToEnd(t *testing.T) {
	eng := New(demoScene(t), WithIDGenerator(NewFixedGenerator("q-1")))

	out, err := eng.Execute(context.Background(),
		"SELECT name FROM object WHERE visible = true ORDER BY name LIMIT 10")
	require.NoError(t, err)

	assert.Equal(t, "q-1", out.QueryID)
	assert.Equal(t, 2, out.RowCount)
	assert.False(t, out.Truncated)
	want := `{"fields":["name"],"count":2,"truncated":false,"rows":[{"name":"Cone"},{"name":"Cube"}]}`
	assert.Equal(t, want, string(out.Payload))
}

func TestExecute_IdempotentPayload(t *testing.T) {
	eng := New(demoScene(t))
	src := "SELECT name, visible FROM object ORDER BY name"

	first, err := eng.Execute(context.Background(), src)
	require.NoError(t, err)
	second, err := eng.Execute(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, first.Payload, second.Payload,
		"unchanged scene must produce byte-identical payloads")
}

func TestExecute_EmptyScene(t *testing.T) {
	eng := New(scene.NewMemScene(schema.Default()))

	out, err := eng.Execute(context.Background(), "SELECT name FROM object")
	require.NoError(t, err)
	assert.Equal(t, 0, out.RowCount)
	assert.Equal(t, `{"fields":["name"],"count":0,"truncated":false,"rows":[]}`, string(out.Payload))
}

func TestExecute_SyntaxError(t *testing.T) {
	eng := New(demoScene(t))

	// FRM parses as a field name, so the missing FROM is a grammar
	// failure, never a schema one.
	_, err := eng.Execute(context.Background(), "SELECT FRM object")
	require.Error(t, err)
	var syn *parser.SyntaxError
	assert.ErrorAs(t, err, &syn)
	assert.Equal(t, ClassSyntax, Classify(err))
}

func TestExecute_SemanticError(t *testing.T) {
	eng := New(demoScene(t))

	_, err := eng.Execute(context.Background(), "SELECT bogus FROM object")
	require.Error(t, err)
	var sem *bind.SemanticError
	require.ErrorAs(t, err, &sem)
	assert.Equal(t, bind.KindUnknownField, sem.Kind)
	assert.Equal(t, ClassSemantic, Classify(err))
}

func TestExecute_ExecutionError(t *testing.T) {
	ms := demoScene(t)
	ms.SetUnavailable(true)
	eng := New(ms)

	_, err := eng.Execute(context.Background(), "SELECT name FROM object")
	require.Error(t, err)
	assert.True(t, exec.IsAdapterUnavailable(err))
	assert.Equal(t, ClassExecution, Classify(err))
}

func TestExecute_TimeoutClassification(t *testing.T) {
	clock := testutil.NewFakeClock()
	clock.Step = time.Second
	eng := New(demoScene(t),
		WithClock(clock),
		WithLimits(exec.Limits{
			MaxRows:              10,
			MaxRelationshipDepth: 3,
			Timeout:              time.Millisecond,
			MaxPayloadBytes:      1 << 20,
		}))

	_, err := eng.Execute(context.Background(), "SELECT name FROM object")
	require.Error(t, err)
	assert.True(t, exec.IsTimeout(err))
}

func TestExecute_RecordsHistory(t *testing.T) {
	rec := &captureRecorder{}
	eng := New(demoScene(t), WithRecorder(rec), WithIDGenerator(NewFixedGenerator("q-1", "q-2")))

	_, err := eng.Execute(context.Background(), "SELECT name FROM object")
	require.NoError(t, err)
	_, err = eng.Execute(context.Background(), "SELECT bogus FROM object")
	require.Error(t, err)

	require.Len(t, rec.entries, 2)
	ok := rec.entries[0]
	assert.Equal(t, "q-1", ok.QueryID)
	assert.Equal(t, ClassNone, ok.Class)
	assert.Equal(t, 3, ok.RowCount)

	failed := rec.entries[1]
	assert.Equal(t, "q-2", failed.QueryID)
	assert.Equal(t, ClassSemantic, failed.Class)
	assert.NotEmpty(t, failed.Error)
}

func TestExecute_CancelledQueryIsRecorded(t *testing.T) {
	rec := &captureRecorder{}
	eng := New(demoScene(t), WithRecorder(rec), WithIDGenerator(NewFixedGenerator("q-1")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := eng.Execute(ctx, "SELECT name FROM object")
	require.NoError(t, err)
	assert.True(t, out.Cancelled)

	require.Len(t, rec.entries, 1)
	assert.True(t, rec.entries[0].Cancelled)
	assert.NoError(t, rec.ctxErrs[0], "the audit write must not inherit the query's cancellation")
}

func TestExecute_RecorderFailureDoesNotFailQuery(t *testing.T) {
	eng := New(demoScene(t), WithRecorder(&captureRecorder{err: errors.New("disk full")}))

	_, err := eng.Execute(context.Background(), "SELECT name FROM object")
	assert.NoError(t, err, "recording is best-effort")
}

func TestExplain(t *testing.T) {
	eng := New(demoScene(t))

	text, err := eng.Explain("SELECT name FROM object WHERE visible = true ORDER BY name")
	require.NoError(t, err)
	assert.Contains(t, text, "scan object")
	assert.Contains(t, text, "sort name asc")
	assert.Contains(t, text, "project name")

	_, err = eng.Explain("SELECT bogus FROM object")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	eng := New(demoScene(t))

	assert.NoError(t, eng.Validate("SELECT name FROM object"))
	assert.Error(t, eng.Validate("SELECT name FRM object"))
	assert.Error(t, eng.Validate("SELECT name FROM objects"))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassNone, Classify(nil))
	assert.Equal(t, ClassSyntax, Classify(&parser.SyntaxError{Line: 1, Column: 1}))
	assert.Equal(t, ClassSemantic, Classify(&bind.SemanticError{Kind: bind.KindUnknownField}))
	assert.Equal(t, ClassExecution, Classify(&exec.Error{Kind: exec.KindTimeout}))
	assert.Equal(t, ClassInternal, Classify(errors.New("boom")))
	assert.Equal(t, ClassInternal, Classify(ErrQueueFull))
}

func TestErrorClass_String(t *testing.T) {
	assert.Equal(t, "ok", ClassNone.String())
	assert.Equal(t, "syntax", ClassSyntax.String())
	assert.Equal(t, "semantic", ClassSemantic.String())
	assert.Equal(t, "execution", ClassExecution.String())
	assert.Equal(t, "internal", ClassInternal.String())
}

type captureRecorder struct {
	entries []Entry
	ctxErrs []error
	err     error
}

func (r *captureRecorder) Record(ctx context.Context, e Entry) error {
	if r.err != nil {
		return r.err
	}
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	r.entries = append(r.entries, e)
	return nil
}
