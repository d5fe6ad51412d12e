package engine

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/sculpt/internal/document"
)

func worldBox(s *Store, id string) Box3 {
	return WorldBoundingBox(s.Objects()[id], s.Objects())
}

func TestAlignMin(t *testing.T) {
	s := newTestStore([]document.SceneObject{
		boxAt("a", mgl64.Vec3{0, 0, 0}),
		boxAt("b", mgl64.Vec3{2, 0, 0}),
	})
	s.Select([]string{"a", "b"})
	before := s.History().Index()

	require.True(t, s.Align(AxisNameX, EdgeMin))
	assert.InDelta(t, -0.5, worldBox(s, "a").Min[0], tol)
	assert.InDelta(t, -0.5, worldBox(s, "b").Min[0], tol)
	assertVec(t, mgl64.Vec3{0, 0, 0}, s.Objects()["b"].Position)
	assert.Equal(t, before+1, s.History().Index())
}

func TestAlignCenterAndMax(t *testing.T) {
	big := boxAt("big", mgl64.Vec3{0, 0, 0})
	big.Scale = mgl64.Vec3{1, 4, 1}
	s := newTestStore([]document.SceneObject{big, boxAt("small", mgl64.Vec3{3, 5, 0})})
	s.Select([]string{"big", "small"})

	require.True(t, s.Align(AxisNameY, EdgeCenter))
	assert.InDelta(t, worldBox(s, "big").Center()[1], worldBox(s, "small").Center()[1], tol)
	assert.InDelta(t, 2.5, worldBox(s, "small").Center()[1], tol)

	require.True(t, s.Align(AxisNameY, EdgeMax))
	assert.InDelta(t, worldBox(s, "big").Max[1], worldBox(s, "small").Max[1], tol)
	// x is untouched.
	assert.InDelta(t, 3, s.Objects()["small"].Position[0], tol)
}

func TestAlignChildOfScaledParent(t *testing.T) {
	parent := document.NewObject("p", document.ObjectTypeGroup)
	parent.Position = mgl64.Vec3{10, 0, 0}
	parent.Scale = mgl64.Vec3{2, 1, 1}

	s := newTestStore([]document.SceneObject{
		parent,
		childOf(boxAt("c", mgl64.Vec3{0, 0, 0}), "p"),
		boxAt("r", mgl64.Vec3{0, 0, 0}),
	})
	s.Select([]string{"c", "r"})

	require.True(t, s.Align(AxisNameX, EdgeMin))
	assert.InDelta(t, -0.5, worldBox(s, "c").Min[0], tol)
	assert.InDelta(t, -0.5, worldBox(s, "r").Min[0], tol)
	assertVec(t, mgl64.Vec3{-4.75, 0, 0}, s.Objects()["c"].Position)
}

func TestAlignPreconditions(t *testing.T) {
	s := newTestStore([]document.SceneObject{boxAt("a", mgl64.Vec3{}), boxAt("b", mgl64.Vec3{1, 0, 0})})
	s.Select([]string{"a"})
	assert.False(t, s.Align(AxisNameX, EdgeMin), "one object")

	s.Select([]string{"a", "b"})
	assert.False(t, s.Align(AxisNameXY, EdgeMin))
	assert.False(t, s.Align(AxisNameX, Edge("top")))
	assert.Equal(t, 2, s.History().Index())
}

func TestDistribute(t *testing.T) {
	s := newTestStore([]document.SceneObject{
		boxAt("a", mgl64.Vec3{0, 0, 0}),
		boxAt("b", mgl64.Vec3{1, 0, 0}),
		boxAt("c", mgl64.Vec3{10, 0, 0}),
	})
	s.Select([]string{"c", "a", "b"})

	require.True(t, s.Distribute(AxisNameX))
	assertVec(t, mgl64.Vec3{0, 0, 0}, s.Objects()["a"].Position)
	assertVec(t, mgl64.Vec3{5, 0, 0}, s.Objects()["b"].Position)
	assertVec(t, mgl64.Vec3{10, 0, 0}, s.Objects()["c"].Position)
}

func TestDistributeUnevenSizes(t *testing.T) {
	wide := boxAt("wide", mgl64.Vec3{3, 0, 0})
	wide.Scale = mgl64.Vec3{3, 1, 1}
	s := newTestStore([]document.SceneObject{
		boxAt("a", mgl64.Vec3{0, 0, 0}),
		wide,
		boxAt("b", mgl64.Vec3{4, 0, 0}),
		boxAt("c", mgl64.Vec3{12, 0, 0}),
	})
	s.Select([]string{"a", "wide", "b", "c"})

	require.True(t, s.Distribute(AxisNameX))

	order := []string{"a", "wide", "b", "c"}
	var gaps []float64
	for i := 1; i < len(order); i++ {
		gaps = append(gaps, worldBox(s, order[i]).Min[0]-worldBox(s, order[i-1]).Max[0])
	}
	for _, g := range gaps[1:] {
		assert.InDelta(t, gaps[0], g, tol)
	}
	assertVec(t, mgl64.Vec3{12, 0, 0}, s.Objects()["c"].Position)
}

func TestDistributeNeedsThree(t *testing.T) {
	s := newTestStore([]document.SceneObject{boxAt("a", mgl64.Vec3{}), boxAt("b", mgl64.Vec3{3, 0, 0})})
	s.Select([]string{"a", "b"})
	assert.False(t, s.Distribute(AxisNameX))
}

func TestMirror(t *testing.T) {
	s := newTestStore([]document.SceneObject{
		boxAt("a", mgl64.Vec3{0, 1, 0}),
		boxAt("b", mgl64.Vec3{4, 2, 0}),
		boxAt("c", mgl64.Vec3{1, 0, 0}),
	})
	s.Select([]string{"a", "b", "c"})

	require.True(t, s.Mirror(AxisNameX))
	assertVec(t, mgl64.Vec3{4, 1, 0}, s.Objects()["a"].Position)
	assertVec(t, mgl64.Vec3{0, 2, 0}, s.Objects()["b"].Position)
	assertVec(t, mgl64.Vec3{3, 0, 0}, s.Objects()["c"].Position)

	require.True(t, s.Undo())
	assertVec(t, mgl64.Vec3{0, 1, 0}, s.Objects()["a"].Position)
}

func TestMirrorNothingSelected(t *testing.T) {
	s := newTestStore([]document.SceneObject{boxAt("a", mgl64.Vec3{})})
	assert.False(t, s.Mirror(AxisNameX))
	assert.False(t, s.History().CanUndo())
}

func TestAlignSelectedGrandchildFollowsGroup(t *testing.T) {
	s := newTestStore(append(nestedGroups(), boxAt("d", mgl64.Vec3{5, 0, 0})))
	s.Select([]string{"g", "c", "d"})

	require.True(t, s.Align(AxisNameX, EdgeMax))
	assertVec(t, mgl64.Vec3{5, 0, 0}, WorldPosition(s.Objects()["c"], s.Objects()))
	assert.InDelta(t, 5.5, worldBox(s, "c").Max[0], tol)
	assertVec(t, mgl64.Vec3{}, s.Objects()["c"].Position)
}

// Mirroring reflects positions only; a rotated object keeps its orientation
// instead of being flipped.
func TestMirrorKeepsRotationAndScale(t *testing.T) {
	turned := transformed("a", mgl64.Vec3{-2, 0, 0}, mgl64.Vec3{0, 0.6, 0}, mgl64.Vec3{1, 2, 3})
	s := newTestStore([]document.SceneObject{turned, boxAt("b", mgl64.Vec3{2, 0, 0})})
	s.Select([]string{"a", "b"})

	require.True(t, s.Mirror(AxisNameX))
	a := s.Objects()["a"]
	assertVec(t, turned.Rotation, a.Rotation)
	assertVec(t, turned.Scale, a.Scale)
	assertVec(t, mgl64.Vec3{1, 1, 1}, s.Objects()["b"].Scale)
	assertVec(t, mgl64.Vec3{}, s.Objects()["b"].Rotation)
}
