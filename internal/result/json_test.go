package result

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch3d/sceneql/internal/scene"
)

func TestSerialize_Shape(t *testing.T) {
	s := &Set{
		Fields: []string{"name", "vertices"},
		Rows: []Row{
			{scene.String("Cube"), scene.Number(8)},
			{scene.String("Cone"), scene.Null{}},
		},
	}

	got := string(Serialize(s))
	want := `{"fields":["name","vertices"],"count":2,"truncated":false,"rows":[{"name":"Cube","vertices":8},{"name":"Cone","vertices":null}]}`
	assert.Equal(t, want, got)
}

func TestSerialize_TruncatedAndCancelled(t *testing.T) {
	s := &Set{Fields: []string{"name"}, Truncated: true, Cancelled: true}
	got := string(Serialize(s))
	assert.Equal(t, `{"fields":["name"],"count":0,"truncated":true,"cancelled":true,"rows":[]}`, got)
}

func TestSerialize_IsValidJSON(t *testing.T) {
	s := &Set{
		Fields: []string{"name", "location", "base_color", "parent", "materials"},
		Rows: []Row{{
			scene.String("Cube \"one\"\n"),
			scene.Vector{1, 2.5, -3},
			scene.Color{0.8, 0.1, 0.1, 1},
			scene.Ref{ID: "obj-1", Kind: "object"},
			scene.RefList{{ID: "mat-1", Kind: "material"}, {ID: "mat-2", Kind: "material"}},
		}},
	}

	var doc map[string]any
	require.NoError(t, json.Unmarshal(Serialize(s), &doc))
	assert.Equal(t, float64(1), doc["count"])

	rows := doc["rows"].([]any)
	row := rows[0].(map[string]any)
	assert.Equal(t, "Cube \"one\"\n", row["name"])
	assert.Equal(t, []any{1.0, 2.5, -3.0}, row["location"])

	parent := row["parent"].(map[string]any)
	assert.Equal(t, "obj-1", parent["id"])
	assert.Equal(t, "object", parent["kind"])

	mats := row["materials"].([]any)
	require.Len(t, mats, 2)
	assert.Equal(t, "mat-1", mats[0].(map[string]any)["id"])
}

func TestEncodeValue_Numbers(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{8, "8"},
		{-3.5, "-3.5"},
		{0.1, "0.1"},
		{1e21, "1e+21"},
		{1.0000000000000002, "1.0000000000000002"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, string(EncodeValue(scene.Number(tc.in))))
	}
}

func TestEncodeValue_NonFiniteNumbersAreNull(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	assert.Equal(t, "null", string(EncodeValue(scene.Number(nan))))

	inf := 1.0
	inf = inf / 0.0
	assert.Equal(t, "null", string(EncodeValue(scene.Number(inf))))
}

func TestEncodeValue_NoHTMLEscaping(t *testing.T) {
	got := string(EncodeValue(scene.String("<b> & </b>")))
	assert.Equal(t, `"<b> & </b>"`, got)
}

func TestEncodeValue_NFCNormalization(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed form.
	decomposed := "Café"
	precomposed := "Café"
	assert.Equal(t, string(EncodeValue(scene.String(precomposed))), string(EncodeValue(scene.String(decomposed))))
}

func TestEncodeValue_ControlCharacters(t *testing.T) {
	got := string(EncodeValue(scene.String("a\nb\tc\x01")))
	assert.Equal(t, `"a\nb\tc\u0001"`, got)
}

func TestEncodeRow_KeysInProjectionOrder(t *testing.T) {
	fields := []string{"z", "a", "m"}
	row := Row{scene.Number(1), scene.Number(2), scene.Number(3)}

	got := string(EncodeRow(fields, row))
	assert.Equal(t, `{"z":1,"a":2,"m":3}`, got)
}

func TestSerialize_Idempotent(t *testing.T) {
	s := &Set{
		Fields: []string{"name", "color"},
		Rows:   []Row{{scene.String("Café"), scene.Color{0.5, 0.25, 0, 1}}},
	}
	assert.Equal(t, Serialize(s), Serialize(s))
}

func TestRenderTable(t *testing.T) {
	s := &Set{
		Fields: []string{"name", "vertices"},
		Rows: []Row{
			{scene.String("Cube"), scene.Number(8)},
			{scene.String("Cone"), scene.Null{}},
		},
	}
	got := RenderTable(s)
	assert.Contains(t, got, "name")
	assert.Contains(t, got, "Cube")
	assert.Contains(t, got, "NULL")

	assert.Equal(t, "no rows", RenderTable(Empty([]string{"name"})))
}

func TestRenderCSV(t *testing.T) {
	s := &Set{
		Fields: []string{"name", "vertices"},
		Rows: []Row{
			{scene.String("Cu,be"), scene.Number(8)},
			{scene.String("Cone"), scene.Null{}},
		},
	}
	got, err := RenderCSV(s)
	require.NoError(t, err)
	assert.Equal(t, "name,vertices\n\"Cu,be\",8\nCone,\n", got)
}
