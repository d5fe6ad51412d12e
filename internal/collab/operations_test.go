package collab

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/sculpt/internal/document"
	"github.com/inamate/sculpt/internal/engine"
)

func testDocument() *document.Document {
	doc := document.NewEmptyDocument("proj_test", "Test")
	for id, x := range map[string]float64{"a": 0, "b": 2, "c": 10} {
		obj := document.NewObject(id, document.ObjectTypeBox)
		obj.Position = mgl64.Vec3{x, 0, 0}
		doc.Objects[id] = obj
	}
	return doc
}

func boolPtr(b bool) *bool { return &b }

func TestApplyOperationSequence(t *testing.T) {
	ds := NewDocumentState(testDocument())

	seq, _, err := ds.ApplyOperation(Operation{ID: "op1", Type: OpSelectionSet, ObjectIDs: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	_, _, err = ds.ApplyOperation(Operation{ID: "op2", Type: OpObjectsAlign, Axis: engine.AxisNameX, Edge: engine.EdgeMax})
	require.NoError(t, err)
	doc := ds.GetDocument()
	assert.InDelta(t, 2, doc.Objects["a"].Position[0], 1e-9)

	seq, _, err = ds.ApplyOperation(Operation{ID: "op3", Type: OpHistoryUndo})
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq)
	assert.InDelta(t, 0, ds.GetDocument().Objects["a"].Position[0], 1e-9)

	sync := ds.SyncPayload()
	assert.True(t, sync.CanUndo)
	assert.True(t, sync.CanRedo)
	assert.Equal(t, int64(3), sync.ServerSeq)
}

func TestApplyOperationAddAndGroup(t *testing.T) {
	ds := NewDocumentState(testDocument())

	_, created, err := ds.ApplyOperation(Operation{
		Type:    OpObjectAdd,
		Objects: []document.SceneObject{document.NewObject("", document.ObjectTypeSphere)},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.True(t, ds.Exists(created[0]))

	_, _, err = ds.ApplyOperation(Operation{Type: OpObjectsGroup})
	assert.ErrorIs(t, err, ErrNoEffect, "one selected object")

	_, _, err = ds.ApplyOperation(Operation{Type: OpSelectionSet, ObjectIDs: []string{"a", "b"}})
	require.NoError(t, err)
	_, created, err = ds.ApplyOperation(Operation{Type: OpObjectsGroup})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, created[0], ds.GetDocument().Objects["a"].Parent())

	_, _, err = ds.ApplyOperation(Operation{Type: OpObjectsUngroup})
	require.NoError(t, err)
	assert.False(t, ds.Exists(created[0]))
}

func TestApplyOperationToggles(t *testing.T) {
	ds := NewDocumentState(testDocument())

	_, _, err := ds.ApplyOperation(Operation{Type: OpObjectLocked, ObjectID: "a", Locked: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, ds.GetDocument().Objects["a"].Locked)

	// Asking for the current value again leaves it alone.
	_, _, err = ds.ApplyOperation(Operation{Type: OpObjectLocked, ObjectID: "a", Locked: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, ds.GetDocument().Objects["a"].Locked)

	_, _, err = ds.ApplyOperation(Operation{Type: OpObjectVisibility, ObjectID: "b"})
	require.NoError(t, err)
	assert.False(t, ds.GetDocument().Objects["b"].Visible)

	_, _, err = ds.ApplyOperation(Operation{Type: OpObjectVisibility, ObjectID: "ghost"})
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestApplyOperationErrors(t *testing.T) {
	ds := NewDocumentState(testDocument())

	_, _, err := ds.ApplyOperation(Operation{Type: "objects.explode"})
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, _, err = ds.ApplyOperation(Operation{Type: OpObjectsDelete, ObjectIDs: []string{"ghost"}})
	assert.ErrorIs(t, err, ErrObjectNotFound)

	pos := mgl64.Vec3{1, 1, 1}
	_, _, err = ds.ApplyOperation(Operation{Type: OpObjectsUpdate, Updates: []engine.Update{{ID: "ghost", Fields: engine.ObjectPatch{Position: &pos}}}})
	assert.ErrorIs(t, err, ErrNoEffect)

	_, _, err = ds.ApplyOperation(Operation{Type: OpHistoryRedo})
	assert.ErrorIs(t, err, ErrNoEffect)

	_, _, err = ds.ApplyOperation(Operation{Type: OpObjectsDistribute, Axis: engine.AxisNameX})
	assert.ErrorIs(t, err, ErrNoEffect)

	assert.Equal(t, int64(0), ds.ServerSeq(), "rejected operations do not advance the sequence")
	_, _, dirty := ds.TakeDirty()
	assert.False(t, dirty)
}

func TestTakeDirty(t *testing.T) {
	ds := NewDocumentState(testDocument())

	_, _, err := ds.ApplyOperation(Operation{ID: "del", Type: OpObjectsDelete, ObjectIDs: []string{"c"}})
	require.NoError(t, err)

	doc, ops, ok := ds.TakeDirty()
	require.True(t, ok)
	assert.Len(t, doc.Objects, 2)
	require.Len(t, ops, 1)
	assert.Equal(t, "del", ops[0].ID)

	_, _, ok = ds.TakeDirty()
	assert.False(t, ok)
}
