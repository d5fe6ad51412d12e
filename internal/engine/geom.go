package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/inamate/sculpt/internal/document"
)

// Epsilon is the absolute tolerance used by every degenerate-geometry guard.
const Epsilon = 1e-6

// World axes.
var (
	AxisX = mgl64.Vec3{1, 0, 0}
	AxisY = mgl64.Vec3{0, 1, 0}
	AxisZ = mgl64.Vec3{0, 0, 1}
)

// Ray is a half-line in world space. Direction need not be normalized.
type Ray struct {
	Origin    mgl64.Vec3 `json:"origin"`
	Direction mgl64.Vec3 `json:"direction"`
}

// At returns the point Origin + t*Direction.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Plane is the set of points p with (p - Point)·Normal = 0.
type Plane struct {
	Normal mgl64.Vec3
	Point  mgl64.Vec3
}

// RayPlaneIntersect returns the point where r crosses p. It reports false when
// the ray runs parallel to the plane or the crossing lies behind the origin.
func RayPlaneIntersect(r Ray, p Plane) (mgl64.Vec3, bool) {
	denom := p.Normal.Dot(r.Direction)
	if math.Abs(denom) < Epsilon {
		return mgl64.Vec3{}, false
	}
	t := p.Point.Sub(r.Origin).Dot(p.Normal) / denom
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	return r.At(t), true
}

// normalize returns v scaled to unit length, or false when v is too short to
// carry a direction.
func normalize(v mgl64.Vec3) (mgl64.Vec3, bool) {
	l := v.Len()
	if l < Epsilon {
		return mgl64.Vec3{}, false
	}
	return v.Mul(1 / l), true
}

// EulerToQuat converts XYZ Euler angles (radians) to a quaternion.
func EulerToQuat(e mgl64.Vec3) mgl64.Quat {
	return mgl64.AnglesToQuat(e[0], e[1], e[2], mgl64.XYZ)
}

// QuatToEuler converts a rotation quaternion back to XYZ Euler angles.
func QuatToEuler(q mgl64.Quat) mgl64.Vec3 {
	return rotationMatrixToEuler(q.Normalize().Mat4())
}

// rotationMatrixToEuler extracts XYZ Euler angles from the upper 3x3 of a
// pure rotation matrix.
func rotationMatrixToEuler(m mgl64.Mat4) mgl64.Vec3 {
	m11, m12, m13 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	m22, m23 := m.At(1, 1), m.At(1, 2)
	m32, m33 := m.At(2, 1), m.At(2, 2)

	y := math.Asin(mgl64.Clamp(m13, -1, 1))
	if math.Abs(m13) < 0.9999999 {
		return mgl64.Vec3{math.Atan2(-m23, m33), y, math.Atan2(-m12, m11)}
	}
	// Gimbal lock: x and z rotate about the same axis.
	return mgl64.Vec3{math.Atan2(m32, m22), y, 0}
}

// ComposeMatrix builds T · R · S.
func ComposeMatrix(position, rotation, scale mgl64.Vec3) mgl64.Mat4 {
	t := mgl64.Translate3D(position[0], position[1], position[2])
	r := EulerToQuat(rotation).Mat4()
	s := mgl64.Scale3D(scale[0], scale[1], scale[2])
	return t.Mul4(r).Mul4(s)
}

// Decompose splits an affine matrix into position, XYZ Euler rotation and
// scale. Shear, if any, is lost.
func Decompose(m mgl64.Mat4) (position, rotation, scale mgl64.Vec3) {
	position = m.Col(3).Vec3()

	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	if m.Det() < 0 {
		sx = -sx
	}
	scale = mgl64.Vec3{sx, sy, sz}

	r := mgl64.Ident4()
	for col, s := range [3]float64{sx, sy, sz} {
		if math.Abs(s) < Epsilon {
			continue
		}
		c := m.Col(col).Vec3().Mul(1 / s)
		r.SetCol(col, c.Vec4(0))
	}
	rotation = QuatToEuler(mgl64.Mat4ToQuat(r))
	return position, rotation, scale
}

// LocalMatrix returns the object's transform relative to its parent.
func LocalMatrix(obj document.SceneObject) mgl64.Mat4 {
	return ComposeMatrix(obj.Position, obj.Rotation, obj.Scale)
}

// WorldMatrix returns the product of local transforms from the root down to
// obj. A parent id that does not resolve is treated as the root.
func WorldMatrix(obj document.SceneObject, objects map[string]document.SceneObject) mgl64.Mat4 {
	return worldMatrix(obj, objects, make(map[string]bool))
}

func worldMatrix(obj document.SceneObject, objects map[string]document.SceneObject, seen map[string]bool) mgl64.Mat4 {
	local := LocalMatrix(obj)
	seen[obj.ID] = true
	parent, ok := objects[obj.Parent()]
	if !ok || seen[parent.ID] {
		return local
	}
	return worldMatrix(parent, objects, seen).Mul4(local)
}

// ParentWorldMatrix returns the world matrix of obj's parent, identity for
// roots.
func ParentWorldMatrix(obj document.SceneObject, objects map[string]document.SceneObject) mgl64.Mat4 {
	parent, ok := objects[obj.Parent()]
	if !ok {
		return mgl64.Ident4()
	}
	return WorldMatrix(parent, objects)
}

// ParentWorldRotation returns the orientation of obj's parent frame in world
// space. Shear from non-uniform parent scale is ignored.
func ParentWorldRotation(obj document.SceneObject, objects map[string]document.SceneObject) mgl64.Quat {
	_, rot, _ := Decompose(ParentWorldMatrix(obj, objects))
	return EulerToQuat(rot)
}

// WorldPosition returns the origin of obj in world space.
func WorldPosition(obj document.SceneObject, objects map[string]document.SceneObject) mgl64.Vec3 {
	return WorldMatrix(obj, objects).Col(3).Vec3()
}

// ToParentSpace converts a world-space point into the local space of obj's
// parent, which is what obj.Position is expressed in.
func ToParentSpace(obj document.SceneObject, objects map[string]document.SceneObject, world mgl64.Vec3) mgl64.Vec3 {
	parent, ok := objects[obj.Parent()]
	if !ok {
		return world
	}
	inv := WorldMatrix(parent, objects).Inv()
	if inv == (mgl64.Mat4{}) {
		// Singular parent (zero scale); leave the point untouched.
		return world
	}
	return mgl64.TransformCoordinate(world, inv)
}

// unitCorners are the corners of the [-0.5, 0.5] cube every object uses as
// its local bounding proxy.
var unitCorners = [8]mgl64.Vec3{
	{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5},
	{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5},
}

// WorldBoundingBox returns the world-space axis-aligned box of obj. Leaves
// use the unit cube under their world matrix; a group covers the leaves below
// it, or its own unit cube while it has none.
func WorldBoundingBox(obj document.SceneObject, objects map[string]document.SceneObject) Box3 {
	if !obj.IsGroup() {
		return TransformUnitBox(WorldMatrix(obj, objects))
	}
	box := EmptyBox()
	if ids := Descendants(objects, []string{obj.ID}); len(ids) > 1 {
		for _, id := range ids[1:] {
			if d := objects[id]; !d.IsGroup() {
				box = box.Union(TransformUnitBox(WorldMatrix(d, objects)))
			}
		}
	}
	if box.IsEmpty() {
		return TransformUnitBox(WorldMatrix(obj, objects))
	}
	return box
}

// TransformUnitBox returns the axis-aligned box around the unit cube under m.
func TransformUnitBox(m mgl64.Mat4) Box3 {
	box := EmptyBox()
	for _, c := range unitCorners {
		box = box.ExpandByPoint(mgl64.TransformCoordinate(c, m))
	}
	return box
}
