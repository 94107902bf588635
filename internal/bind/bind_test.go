package bind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch3d/sceneql/internal/parser"
	"github.com/perch3d/sceneql/internal/scene"
	"github.com/perch3d/sceneql/internal/schema"
)

func mustBind(t *testing.T, src string) *Query {
	t.Helper()
	q, err := parser.Parse(src)
	require.NoError(t, err)
	bq, err := Bind(q, schema.Default(), 3)
	require.NoError(t, err)
	return bq
}

func bindErr(t *testing.T, src string) *SemanticError {
	t.Helper()
	q, err := parser.Parse(src)
	require.NoError(t, err, "query must parse; binding is under test")
	_, err = Bind(q, schema.Default(), 3)
	require.Error(t, err)
	var sem *SemanticError
	require.ErrorAs(t, err, &sem)
	return sem
}

func TestBind_DirectFields(t *testing.T) {
	bq := mustBind(t, "SELECT name, visible FROM object")

	require.Len(t, bq.Fields, 2)
	assert.Equal(t, "name", bq.Fields[0].Name)
	assert.False(t, bq.Fields[0].Path.HasHops())
	assert.Equal(t, schema.TypeString, bq.Fields[0].Path.Terminal.Type.Kind)
	assert.Equal(t, schema.TypeBool, bq.Fields[1].Path.Terminal.Type.Kind)
}

func TestBind_StarExpandsToDeclaredFields(t *testing.T) {
	bq := mustBind(t, "SELECT * FROM material")

	kind, _ := schema.Default().Kind("material")
	require.Len(t, bq.Fields, len(kind.Fields()))
	for i, f := range kind.Fields() {
		assert.Equal(t, f.Name, bq.Fields[i].Name)
	}
}

func TestBind_RelationshipPath(t *testing.T) {
	bq := mustBind(t, "SELECT material.name FROM object")

	path := bq.Fields[0].Path
	require.Len(t, path.Hops, 1)
	assert.Equal(t, "material", path.Hops[0].Field)
	assert.Equal(t, "material", path.Hops[0].Target)
	assert.False(t, path.Hops[0].Many)
	assert.Equal(t, "name", path.Terminal.Name)
	assert.Equal(t, "material.name", path.Raw)
}

func TestBind_ManyRelationHop(t *testing.T) {
	bq := mustBind(t, "SELECT materials.name FROM object")

	path := bq.Fields[0].Path
	require.Len(t, path.Hops, 1)
	assert.True(t, path.Hops[0].Many)
}

func TestBind_AliasNamesColumn(t *testing.T) {
	bq := mustBind(t, "SELECT material.name AS mat FROM object")
	assert.Equal(t, "mat", bq.Fields[0].Name)
}

func TestBind_UnknownKind(t *testing.T) {
	sem := bindErr(t, "SELECT name FROM objects")
	assert.Equal(t, KindUnknownEntityKind, sem.Kind)
	assert.Contains(t, sem.Detail, "known kinds")
}

func TestBind_UnknownField(t *testing.T) {
	sem := bindErr(t, "SELECT nam FROM object")
	assert.Equal(t, KindUnknownField, sem.Kind)
}

func TestBind_UnknownFieldAfterHop(t *testing.T) {
	sem := bindErr(t, "SELECT material.color FROM object")
	assert.Equal(t, KindUnknownField, sem.Kind)
	assert.Contains(t, sem.Detail, `"material"`)
}

func TestBind_TraverseNonRelation(t *testing.T) {
	sem := bindErr(t, "SELECT name.length FROM object")
	assert.Equal(t, KindTypeMismatch, sem.Kind)
}

func TestBind_DepthLimit(t *testing.T) {
	// parent.parent.parent.name is 3 hops: allowed at maxDepth 3.
	mustBind(t, "SELECT parent.parent.parent.name FROM object")

	// 4 hops exceeds it.
	sem := bindErr(t, "SELECT parent.parent.parent.parent.name FROM object")
	assert.Equal(t, KindRelationshipDepthExceeded, sem.Kind)
}

func TestBind_NoImplicitCoercion(t *testing.T) {
	sem := bindErr(t, "SELECT name FROM object WHERE name = 3")
	assert.Equal(t, KindTypeMismatch, sem.Kind)

	sem = bindErr(t, "SELECT name FROM object WHERE vertices = '3'")
	assert.Equal(t, KindTypeMismatch, sem.Kind)

	sem = bindErr(t, "SELECT name FROM object WHERE visible = 1")
	assert.Equal(t, KindTypeMismatch, sem.Kind)
}

func TestBind_EnumAcceptsStringLiteral(t *testing.T) {
	bq := mustBind(t, "SELECT name FROM object WHERE type = 'MESH'")
	cmp := bq.Where.(*Compare)
	assert.Equal(t, scene.Enum("MESH"), cmp.Value)
}

func TestBind_LikeOnlyOnStrings(t *testing.T) {
	sem := bindErr(t, "SELECT name FROM object WHERE vertices LIKE '1%'")
	assert.Equal(t, KindInvalidOperatorForType, sem.Kind)

	sem = bindErr(t, "SELECT name FROM object WHERE type LIKE 'MESH%'")
	assert.Equal(t, KindInvalidOperatorForType, sem.Kind, "LIKE is undefined for enums")
}

func TestBind_LikeCompilesPattern(t *testing.T) {
	bq := mustBind(t, "SELECT name FROM object WHERE name LIKE 'Cu_e%'")
	cmp := bq.Where.(*Compare)
	require.NotNil(t, cmp.Pattern)
	assert.True(t, cmp.Pattern.MatchString("Cube"))
	assert.True(t, cmp.Pattern.MatchString("Cute.001"))
	assert.False(t, cmp.Pattern.MatchString("Sphere"))
	assert.False(t, cmp.Pattern.MatchString("xCube"), "pattern must be anchored")
}

func TestBind_LikePatternEscapesRegexMeta(t *testing.T) {
	bq := mustBind(t, `SELECT name FROM object WHERE name LIKE 'a.b%'`)
	cmp := bq.Where.(*Compare)
	assert.True(t, cmp.Pattern.MatchString("a.b-suffix"))
	assert.False(t, cmp.Pattern.MatchString("axb"), "'.' must match literally")
}

func TestBind_OrderingOnBoolRejected(t *testing.T) {
	sem := bindErr(t, "SELECT name FROM object WHERE visible < true")
	assert.Equal(t, KindInvalidOperatorForType, sem.Kind)
}

func TestBind_CompoundFieldsOnlyIsNull(t *testing.T) {
	sem := bindErr(t, "SELECT name FROM object WHERE location = 3")
	assert.Equal(t, KindInvalidOperatorForType, sem.Kind)

	// IS NULL is fine on compound and relation fields.
	mustBind(t, "SELECT name FROM object WHERE location IS NULL")
	mustBind(t, "SELECT name FROM object WHERE parent IS NOT NULL")
}

func TestBind_NullLiteralInComparisonRejected(t *testing.T) {
	sem := bindErr(t, "SELECT name FROM object WHERE name = NULL")
	assert.Equal(t, KindTypeMismatch, sem.Kind)
	assert.Contains(t, sem.Detail, "IS NULL")
}

func TestBind_BetweenOnNumbersAndStrings(t *testing.T) {
	mustBind(t, "SELECT name FROM object WHERE vertices BETWEEN 10 AND 100")
	mustBind(t, "SELECT name FROM object WHERE name BETWEEN 'A' AND 'M'")

	sem := bindErr(t, "SELECT name FROM object WHERE visible BETWEEN false AND true")
	assert.Equal(t, KindInvalidOperatorForType, sem.Kind)
}

func TestBind_InTypesEveryMember(t *testing.T) {
	bq := mustBind(t, "SELECT name FROM object WHERE type IN ('MESH', 'LIGHT')")
	in := bq.Where.(*In)
	require.Len(t, in.Values, 2)

	sem := bindErr(t, "SELECT name FROM object WHERE type IN ('MESH', 3)")
	assert.Equal(t, KindTypeMismatch, sem.Kind)
}

func TestBind_OrderByRequiresScalar(t *testing.T) {
	sem := bindErr(t, "SELECT name FROM object ORDER BY location")
	assert.Equal(t, KindInvalidOperatorForType, sem.Kind)

	mustBind(t, "SELECT name FROM object ORDER BY material.name DESC")
}

func TestBind_TerminalRelationProjects(t *testing.T) {
	// A relation as the terminal segment projects a reference.
	bq := mustBind(t, "SELECT parent FROM object")
	assert.Equal(t, schema.TypeRelation, bq.Fields[0].Path.Terminal.Type.Kind)
	assert.Empty(t, bq.Fields[0].Path.Hops)
}

func TestBind_SemanticErrorMessage(t *testing.T) {
	sem := bindErr(t, "SELECT bogus FROM object")
	assert.Contains(t, sem.Error(), "UNKNOWN_FIELD")
	assert.Contains(t, sem.Error(), "bogus")
}
