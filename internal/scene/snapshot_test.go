package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch3d/sceneql/internal/schema"
)

const basicSnapshot = `
entities:
  - id: obj-cube
    kind: object
    fields:
      name: Cube
      type: MESH
      visible: true
      vertices: 8
      location: [1, 2, 3.5]
    rels:
      material: mat-metal
      materials: [mat-metal]
      parent: obj-root
  - id: obj-root
    kind: object
    fields:
      name: Root
      type: EMPTY
      visible: true
  - id: mat-metal
    kind: material
    fields:
      name: Metal
      base_color: [0.8, 0.8, 0.8, 1]
      roughness: 0.4
`

func TestLoadSnapshot_Basic(t *testing.T) {
	ms, err := LoadSnapshot([]byte(basicSnapshot), schema.Default())
	require.NoError(t, err)

	assert.Equal(t, 2, ms.Len("object"))
	assert.Equal(t, 1, ms.Len("material"))
	assert.Equal(t, []string{"material", "object"}, ms.Kinds())

	cube := EntityRef{ID: "obj-cube", Kind: "object"}
	v, err := ms.Field(cube, "name")
	require.NoError(t, err)
	assert.Equal(t, String("Cube"), v)

	v, err = ms.Field(cube, "location")
	require.NoError(t, err)
	assert.Equal(t, Vector{1, 2, 3.5}, v)

	targets, err := ms.Relationship(cube, "material")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, ID("mat-metal"), targets[0].ID)
}

func TestLoadSnapshot_ForwardReferences(t *testing.T) {
	// obj-cube references obj-root, declared after it.
	ms, err := LoadSnapshot([]byte(basicSnapshot), schema.Default())
	require.NoError(t, err)

	targets, err := ms.Relationship(EntityRef{ID: "obj-cube", Kind: "object"}, "parent")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, ID("obj-root"), targets[0].ID)
}

func TestLoadSnapshot_RejectsUnknownRelTarget(t *testing.T) {
	_, err := LoadSnapshot([]byte(`
entities:
  - id: obj-1
    kind: object
    rels:
      parent: ghost
`), schema.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestLoadSnapshot_RejectsIllTypedField(t *testing.T) {
	_, err := LoadSnapshot([]byte(`
entities:
  - id: obj-1
    kind: object
    fields:
      vertices: eight
`), schema.Default())
	assert.Error(t, err)
}

func TestLoadSnapshot_RejectsMissingID(t *testing.T) {
	_, err := LoadSnapshot([]byte(`
entities:
  - kind: object
`), schema.Default())
	assert.Error(t, err)
}

func TestLoadSnapshot_RejectsRelationUnderFields(t *testing.T) {
	_, err := LoadSnapshot([]byte(`
entities:
  - id: obj-1
    kind: object
    fields:
      parent: obj-1
`), schema.Default())
	assert.Error(t, err)
}

func TestLoadSnapshotFile_MissingFile(t *testing.T) {
	_, err := LoadSnapshotFile("does/not/exist.yaml", schema.Default())
	assert.Error(t, err)
}
