package engine

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/sculpt/internal/document"
)

type fakeCamera struct {
	calls []bool
}

func (c *fakeCamera) SetEnabled(enabled bool) {
	c.calls = append(c.calls, enabled)
}

var frontCamera = Camera{Position: mgl64.Vec3{0, 0, 10}, Up: AxisY}

// towards returns a ray from (x, y, 10) looking down -z.
func towards(x, y float64) Ray {
	return Ray{Origin: mgl64.Vec3{x, y, 10}, Direction: mgl64.Vec3{0, 0, -1}}
}

// down returns a ray from (x, 10, z) looking down -y.
func down(x, z float64) Ray {
	return Ray{Origin: mgl64.Vec3{x, 10, z}, Direction: mgl64.Vec3{0, -1, 0}}
}

func newGizmoStore(t *testing.T, selected []string, objs ...document.SceneObject) (*Store, *Gizmo, *fakeCamera) {
	t.Helper()
	s := newTestStore(objs)
	s.Select(selected)
	require.ElementsMatch(t, selected, s.Selection())
	cam := &fakeCamera{}
	return s, NewGizmo(s, cam), cam
}

func TestGizmoTranslateSnapsAlongAxis(t *testing.T) {
	s, g, cam := newGizmoStore(t, []string{"a"}, boxAt("a", mgl64.Vec3{}))
	s.SetSnap(SnapSettings{Enabled: true, Translate: 0.25, RotateDegrees: 15, Scale: 0.1})
	before := s.History().Index()

	require.True(t, g.Begin(1, ModeTranslate, AxisNameY, towards(0, 0), frontCamera))
	assert.Equal(t, []bool{false}, cam.calls)

	require.True(t, g.Move(1, towards(0.1, 0.37)))
	assertVec(t, mgl64.Vec3{0, 0.25, 0}, s.Objects()["a"].Position)
	assert.Equal(t, before, s.History().Index(), "previews commit nothing")

	require.True(t, g.End(1))
	assert.Equal(t, []bool{false, true}, cam.calls)
	assert.False(t, g.Active())
	assertVec(t, mgl64.Vec3{0, 0.25, 0}, s.Objects()["a"].Position)
	assert.Equal(t, before+1, s.History().Index(), "one entry per drag")

	require.True(t, s.Undo())
	assertVec(t, mgl64.Vec3{}, s.Objects()["a"].Position)
}

func TestGizmoTranslatePlanar(t *testing.T) {
	s, g, _ := newGizmoStore(t, []string{"a"}, boxAt("a", mgl64.Vec3{}))

	require.True(t, g.Begin(1, ModeTranslate, AxisNameXZ, down(0, 0), frontCamera))
	require.True(t, g.Move(1, down(1.2, -0.7)))
	assertVec(t, mgl64.Vec3{1.2, 0, -0.7}, s.Objects()["a"].Position)

	s.SetSnap(SnapSettings{Enabled: true, Translate: 0.5})
	require.True(t, g.Move(1, down(1.2, -0.7)))
	assertVec(t, mgl64.Vec3{1, 0, -0.5}, s.Objects()["a"].Position)
	require.True(t, g.End(1))
}

func TestGizmoTranslateChildOfScaledParent(t *testing.T) {
	parent := document.NewObject("p", document.ObjectTypeGroup)
	parent.Position = mgl64.Vec3{10, 0, 0}
	parent.Scale = mgl64.Vec3{2, 2, 2}
	child := childOf(boxAt("c", mgl64.Vec3{1, 0, 0}), "p")

	s, g, _ := newGizmoStore(t, []string{"c"}, parent, child)
	cam := Camera{Position: mgl64.Vec3{12, 0, 10}, Up: AxisY}

	require.True(t, g.Begin(1, ModeTranslate, AxisNameX, towards(12, 0), cam))
	assertVec(t, mgl64.Vec3{12, 0, 0}, g.Session().Pivot)
	require.True(t, g.Move(1, towards(13, 0)))
	require.True(t, g.End(1))

	assertVec(t, mgl64.Vec3{1.5, 0, 0}, s.Objects()["c"].Position)
	assertVec(t, mgl64.Vec3{13, 0, 0}, WorldPosition(s.Objects()["c"], s.Objects()))
}

func TestGizmoDragsSelectedRootsOnly(t *testing.T) {
	s, g, _ := newGizmoStore(t, []string{"p", "c"},
		document.NewObject("p", document.ObjectTypeGroup),
		childOf(boxAt("c", mgl64.Vec3{1, 0, 0}), "p"),
	)

	require.True(t, g.Begin(1, ModeTranslate, AxisNameXZ, down(0, 0), frontCamera))
	assert.Equal(t, []string{"p"}, g.Session().IDs())
	require.True(t, g.Move(1, down(2, 0)))
	require.True(t, g.End(1))

	assertVec(t, mgl64.Vec3{2, 0, 0}, s.Objects()["p"].Position)
	assertVec(t, mgl64.Vec3{1, 0, 0}, s.Objects()["c"].Position)
}

func TestGizmoRotate(t *testing.T) {
	s, g, _ := newGizmoStore(t, []string{"a", "b"},
		boxAt("a", mgl64.Vec3{1, 0, 0}),
		boxAt("b", mgl64.Vec3{-1, 0, 0}),
	)
	angle := math.Pi / 3

	require.True(t, g.Begin(1, ModeRotate, AxisNameY, down(2, 0), frontCamera))
	require.True(t, g.Move(1, down(2*math.Cos(angle), -2*math.Sin(angle))))
	require.True(t, g.End(1))

	assertVec(t, mgl64.Vec3{math.Cos(angle), 0, -math.Sin(angle)}, s.Objects()["a"].Position)
	assertVec(t, mgl64.Vec3{-math.Cos(angle), 0, math.Sin(angle)}, s.Objects()["b"].Position)
	assertVec(t, mgl64.Vec3{0, angle, 0}, s.Objects()["a"].Rotation)
	assertVec(t, mgl64.Vec3{0, angle, 0}, s.Objects()["b"].Rotation)
}

func TestGizmoRotateSnaps(t *testing.T) {
	s, g, _ := newGizmoStore(t, []string{"a"}, boxAt("a", mgl64.Vec3{}))
	s.SetSnap(SnapSettings{Enabled: true, Translate: 0.5, RotateDegrees: 15, Scale: 0.1})
	angle := mgl64.DegToRad(20)

	require.True(t, g.Begin(1, ModeRotate, AxisNameY, down(1, 0), frontCamera))
	require.True(t, g.Move(1, down(math.Cos(angle), -math.Sin(angle))))
	assertVec(t, mgl64.Vec3{0, mgl64.DegToRad(15), 0}, s.Objects()["a"].Rotation)
	assertVec(t, mgl64.Vec3{}, s.Objects()["a"].Position)
}

func TestGizmoScale(t *testing.T) {
	s, g, _ := newGizmoStore(t, []string{"a"}, boxAt("a", mgl64.Vec3{}))

	require.True(t, g.Begin(1, ModeScale, AxisNameX, towards(1, 0), frontCamera))
	require.True(t, g.Move(1, towards(2, 0)))
	assertVec(t, mgl64.Vec3{2, 1, 1}, s.Objects()["a"].Scale)

	// Dragging through the pivot clamps at the minimum factor.
	require.True(t, g.Move(1, towards(-0.5, 0)))
	assertVec(t, mgl64.Vec3{0.1, 1, 1}, s.Objects()["a"].Scale)
	require.True(t, g.End(1))
}

func TestGizmoScalePlanarAndUniform(t *testing.T) {
	s, g, _ := newGizmoStore(t, []string{"a"}, boxAt("a", mgl64.Vec3{}))

	require.True(t, g.Begin(1, ModeScale, AxisNameXY, towards(1, 1), frontCamera))
	require.True(t, g.Move(1, towards(1.5, 1.5)))
	assertVec(t, mgl64.Vec3{1.5, 1.5, 1}, s.Objects()["a"].Scale)
	require.True(t, g.End(1))

	require.True(t, g.Begin(1, ModeScale, AxisNameXYZ, towards(1, 0), frontCamera))
	require.True(t, g.Move(1, towards(3, 0)))
	assertVec(t, mgl64.Vec3{4.5, 4.5, 3}, s.Objects()["a"].Scale)
	require.True(t, g.End(1))
}

func TestGizmoNoIntersectionCommitsNothing(t *testing.T) {
	s, g, cam := newGizmoStore(t, []string{"a"}, boxAt("a", mgl64.Vec3{}))
	before := s.History().Index()
	away := Ray{Origin: mgl64.Vec3{0, 0, 10}, Direction: mgl64.Vec3{0, 0, 1}}

	require.True(t, g.Begin(1, ModeTranslate, AxisNameY, away, frontCamera))
	_, ok := g.Session().StartPoint()
	assert.False(t, ok)

	assert.False(t, g.Move(1, away))
	assert.False(t, g.End(1))
	assert.Equal(t, before, s.History().Index())
	assert.Equal(t, []bool{false, true}, cam.calls)
}

func TestGizmoAdoptsFirstHitAsStart(t *testing.T) {
	s, g, _ := newGizmoStore(t, []string{"a"}, boxAt("a", mgl64.Vec3{}))
	away := Ray{Origin: mgl64.Vec3{0, 0, 10}, Direction: mgl64.Vec3{0, 0, 1}}

	require.True(t, g.Begin(1, ModeTranslate, AxisNameY, away, frontCamera))
	require.True(t, g.Move(1, towards(0, 1)))
	assertVec(t, mgl64.Vec3{}, s.Objects()["a"].Position)
	require.True(t, g.Move(1, towards(0, 1.5)))
	assertVec(t, mgl64.Vec3{0, 0.5, 0}, s.Objects()["a"].Position)
}

func TestGizmoIgnoresOtherPointers(t *testing.T) {
	s, g, _ := newGizmoStore(t, []string{"a"}, boxAt("a", mgl64.Vec3{}))

	require.True(t, g.Begin(1, ModeTranslate, AxisNameY, towards(0, 0), frontCamera))
	assert.False(t, g.Begin(2, ModeTranslate, AxisNameX, towards(0, 0), frontCamera))
	assert.Equal(t, 1, g.Session().PointerID)

	assert.False(t, g.Move(2, towards(0, 3)))
	assertVec(t, mgl64.Vec3{}, s.Objects()["a"].Position)
	assert.False(t, g.End(2))
	assert.True(t, g.Active())

	g.LostCapture(2)
	assert.True(t, g.Active())
}

func TestGizmoLostCaptureKeepsPreview(t *testing.T) {
	s, g, cam := newGizmoStore(t, []string{"a"}, boxAt("a", mgl64.Vec3{}))
	before := s.History().Index()

	require.True(t, g.Begin(1, ModeTranslate, AxisNameY, towards(0, 0), frontCamera))
	require.True(t, g.Move(1, towards(0, 2)))
	g.LostCapture(1)

	assert.False(t, g.Active())
	assert.Equal(t, []bool{false, true}, cam.calls)
	assertVec(t, mgl64.Vec3{0, 2, 0}, s.Objects()["a"].Position)
	assert.Equal(t, before, s.History().Index())
}

func TestGizmoBeginRejects(t *testing.T) {
	s, g, cam := newGizmoStore(t, nil, boxAt("a", mgl64.Vec3{}))
	assert.False(t, g.Begin(1, ModeTranslate, AxisNameY, towards(0, 0), frontCamera), "empty selection")

	s.Select([]string{"a"})
	assert.False(t, g.Begin(1, Mode("shear"), AxisNameY, towards(0, 0), frontCamera))
	assert.False(t, g.Begin(1, ModeRotate, AxisNameXY, towards(0, 0), frontCamera))
	assert.False(t, g.Begin(1, ModeTranslate, Axis("w"), towards(0, 0), frontCamera))
	assert.False(t, g.Active())
	assert.Empty(t, cam.calls)
}

func TestInteractionPlaneDegenerateView(t *testing.T) {
	pivot := mgl64.Vec3{}

	// Looking straight down the y axis.
	topDown := Camera{Position: mgl64.Vec3{0, 10, 0}, Up: mgl64.Vec3{0, 0, -1}}
	p, ok := InteractionPlane(ModeTranslate, AxisNameY, pivot, topDown)
	require.True(t, ok)
	assert.InDelta(t, 1, p.Normal.Len(), tol)
	assert.InDelta(t, 0, p.Normal.Dot(AxisY), tol)

	// No usable up vector either.
	noUp := Camera{Position: mgl64.Vec3{0, 10, 0}}
	p, ok = InteractionPlane(ModeTranslate, AxisNameY, pivot, noUp)
	require.True(t, ok)
	assert.InDelta(t, 1, p.Normal.Len(), tol)
	assert.InDelta(t, 0, p.Normal.Dot(AxisY), tol)

	// Camera sitting on the pivot.
	p, ok = InteractionPlane(ModeTranslate, AxisNameXYZ, pivot, Camera{})
	require.True(t, ok)
	assert.Equal(t, AxisZ, p.Normal)
}

func TestInteractionPlaneFacesCamera(t *testing.T) {
	p, ok := InteractionPlane(ModeTranslate, AxisNameY, mgl64.Vec3{}, frontCamera)
	require.True(t, ok)
	assert.InDelta(t, 1, math.Abs(p.Normal.Dot(AxisZ)), tol)
}

func TestScaleFactorDegenerate(t *testing.T) {
	assert.Equal(t, 1.0, ScaleFactor(AxisX, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{5, 0, 0}))
	assert.InDelta(t, 3, ScaleFactor(AxisX, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{3, 7, 0}), tol)
}

func TestRotationAngle(t *testing.T) {
	_, ok := RotationAngle(AxisY, mgl64.Vec3{}, mgl64.Vec3{}, AxisX)
	assert.False(t, ok)

	a, ok := RotationAngle(AxisZ, mgl64.Vec3{}, AxisX, AxisY)
	require.True(t, ok)
	assert.InDelta(t, math.Pi/2, a, tol)

	a, ok = RotationAngle(AxisZ, mgl64.Vec3{}, AxisY, AxisX)
	require.True(t, ok)
	assert.InDelta(t, -math.Pi/2, a, tol)
}

func nestedGroups() []document.SceneObject {
	return []document.SceneObject{
		document.NewObject("g", document.ObjectTypeGroup),
		childOf(document.NewObject("h", document.ObjectTypeGroup), "g"),
		childOf(boxAt("c", mgl64.Vec3{}), "h"),
	}
}

func TestGizmoSelectedGrandchildMovesOnce(t *testing.T) {
	s, g, _ := newGizmoStore(t, []string{"g", "c"}, nestedGroups()...)

	require.True(t, g.Begin(1, ModeTranslate, AxisNameX, towards(0, 0), frontCamera))
	assert.Equal(t, []string{"g"}, g.Session().IDs())
	require.True(t, g.Move(1, towards(1, 0)))
	require.True(t, g.End(1))

	assertVec(t, mgl64.Vec3{1, 0, 0}, WorldPosition(s.Objects()["c"], s.Objects()))
}

func TestGizmoRotateChildOfRotatedParent(t *testing.T) {
	parent := document.NewObject("p", document.ObjectTypeGroup)
	parent.Rotation = mgl64.Vec3{0, 0, math.Pi / 2}
	s, g, _ := newGizmoStore(t, []string{"c"}, parent, childOf(boxAt("c", mgl64.Vec3{}), "p"))

	require.True(t, g.Begin(1, ModeRotate, AxisNameY, down(2, 0), frontCamera))
	require.True(t, g.Move(1, down(0, -2)))
	require.True(t, g.End(1))

	world := WorldMatrix(s.Objects()["c"], s.Objects())
	want := mgl64.HomogRotate3DY(math.Pi / 2).Mul4(mgl64.HomogRotate3DZ(math.Pi / 2))
	assertMat(t, want, world)
	assertVec(t, mgl64.Vec3{0, 1, 0}, world.Col(0).Vec3())
	assertVec(t, mgl64.Vec3{0, 0, math.Pi / 2}, s.Objects()["p"].Rotation, "parent is untouched")
}

// Scaling acts on the object's local axes, so a rotated object stretches
// along its own axis rather than the dragged world axis.
func TestGizmoScaleRotatedObjectUsesLocalAxes(t *testing.T) {
	rotated := boxAt("a", mgl64.Vec3{})
	rotated.Rotation = mgl64.Vec3{0, math.Pi / 2, 0}
	s, g, _ := newGizmoStore(t, []string{"a"}, rotated)

	require.True(t, g.Begin(1, ModeScale, AxisNameX, towards(1, 0), frontCamera))
	require.True(t, g.Move(1, towards(2, 0)))
	require.True(t, g.End(1))

	obj := s.Objects()["a"]
	assertVec(t, mgl64.Vec3{2, 1, 1}, obj.Scale)
	assertVec(t, rotated.Rotation, obj.Rotation)

	size := WorldBoundingBox(obj, s.Objects()).Size()
	assertVec(t, mgl64.Vec3{1, 1, 2}, size)
}
