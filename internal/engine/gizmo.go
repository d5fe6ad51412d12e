package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SnapSettings quantizes gizmo deltas. Translate is a distance step,
// RotateDegrees an angle step and Scale a multiplicative factor step.
type SnapSettings struct {
	Enabled       bool    `json:"enabled" yaml:"enabled"`
	Translate     float64 `json:"translate" yaml:"translate"`
	RotateDegrees float64 `json:"rotateDegrees" yaml:"rotate_degrees"`
	Scale         float64 `json:"scale" yaml:"scale"`
}

func DefaultSnapSettings() SnapSettings {
	return SnapSettings{
		Enabled:       false,
		Translate:     0.5,
		RotateDegrees: 15,
		Scale:         0.1,
	}
}

type Mode string

const (
	ModeTranslate Mode = "translate"
	ModeRotate    Mode = "rotate"
	ModeScale     Mode = "scale"
)

// Axis names the gizmo handle being dragged: a single axis, a plane spanned
// by two axes, or all three.
type Axis string

const (
	AxisNameX   Axis = "x"
	AxisNameY   Axis = "y"
	AxisNameZ   Axis = "z"
	AxisNameXY  Axis = "xy"
	AxisNameYZ  Axis = "yz"
	AxisNameXZ  Axis = "xz"
	AxisNameXYZ Axis = "xyz"
)

// Vector returns the unit world axis for a single-axis handle.
func (a Axis) Vector() (mgl64.Vec3, bool) {
	switch a {
	case AxisNameX:
		return AxisX, true
	case AxisNameY:
		return AxisY, true
	case AxisNameZ:
		return AxisZ, true
	}
	return mgl64.Vec3{}, false
}

// Planar returns the two world axes spanning a planar handle and the axis
// normal to them.
func (a Axis) Planar() (u, v, normal mgl64.Vec3, ok bool) {
	switch a {
	case AxisNameXY:
		return AxisX, AxisY, AxisZ, true
	case AxisNameYZ:
		return AxisY, AxisZ, AxisX, true
	case AxisNameXZ:
		return AxisX, AxisZ, AxisY, true
	}
	return mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, false
}

// Camera is the part of the external camera the gizmo needs to orient its
// interaction planes.
type Camera struct {
	Position mgl64.Vec3 `json:"position"`
	Up       mgl64.Vec3 `json:"up"`
}

// CameraControl is the orbit/pan controller that must stay disabled while a
// drag holds pointer capture.
type CameraControl interface {
	SetEnabled(enabled bool)
}

type startTransform struct {
	id             string
	worldPosition  mgl64.Vec3
	rotation       mgl64.Vec3
	scale          mgl64.Vec3
	parentRotation mgl64.Quat
}

// DragSession is the reference frame of one drag, captured on pointer-down
// and never re-read from the live state until release.
type DragSession struct {
	PointerID int
	Mode      Mode
	Axis      Axis
	Plane     Plane
	Pivot     mgl64.Vec3
	// PivotRotation is the gizmo orientation; handles are world aligned.
	PivotRotation mgl64.Quat
	Camera        Camera

	startPoint mgl64.Vec3
	hasStart   bool
	starts     []startTransform
	moved      bool
}

// StartPoint returns where the pointer ray first met the interaction plane.
func (d *DragSession) StartPoint() (mgl64.Vec3, bool) {
	return d.startPoint, d.hasStart
}

// IDs returns the objects driven by the drag.
func (d *DragSession) IDs() []string {
	ids := make([]string, len(d.starts))
	for i, st := range d.starts {
		ids[i] = st.id
	}
	return ids
}

// Gizmo is the Idle → Dragging → Idle controller behind the transform
// handles. At most one session exists; it belongs to the pointer that
// started it.
type Gizmo struct {
	store   *Store
	camera  CameraControl
	session *DragSession
}

// NewGizmo creates a controller writing through store. camera may be nil.
func NewGizmo(store *Store, camera CameraControl) *Gizmo {
	return &Gizmo{store: store, camera: camera}
}

// SetCameraControl replaces the camera controller toggled around drags.
func (g *Gizmo) SetCameraControl(camera CameraControl) {
	g.camera = camera
}

// Active reports whether a drag is in progress.
func (g *Gizmo) Active() bool {
	return g.session != nil
}

// Session returns the active drag, or nil.
func (g *Gizmo) Session() *DragSession {
	return g.session
}

// Pivot returns the center of the union of the selection's world boxes. It
// reports false when nothing is selected.
func (g *Gizmo) Pivot() (mgl64.Vec3, bool) {
	box := g.store.SelectionBounds()
	if box.IsEmpty() {
		return mgl64.Vec3{}, false
	}
	return box.Center(), true
}

// SelectionBounds returns the union of the world boxes of every selected,
// unlocked object.
func (s *Store) SelectionBounds() Box3 {
	box := EmptyBox()
	for _, id := range s.state.SelectedIDs {
		obj, ok := s.state.Objects[id]
		if !ok || obj.Locked {
			continue
		}
		box = box.Union(WorldBoundingBox(obj, s.state.Objects))
	}
	return box
}

// InteractionPlane returns the world plane through pivot on which pointer
// motion is measured for the given handle.
func InteractionPlane(mode Mode, axis Axis, pivot mgl64.Vec3, cam Camera) (Plane, bool) {
	if mode == ModeRotate {
		a, ok := axis.Vector()
		if !ok {
			return Plane{}, false
		}
		return Plane{Normal: a, Point: pivot}, true
	}

	if a, ok := axis.Vector(); ok {
		return Plane{Normal: axialPlaneNormal(a, pivot, cam), Point: pivot}, true
	}
	if _, _, n, ok := axis.Planar(); ok {
		return Plane{Normal: n, Point: pivot}, true
	}
	if axis == AxisNameXYZ {
		n, ok := normalize(cam.Position.Sub(pivot))
		if !ok {
			n = AxisZ
		}
		return Plane{Normal: n, Point: pivot}, true
	}
	return Plane{}, false
}

// axialPlaneNormal picks a normal perpendicular to a that faces the camera
// as much as possible, so the plane contains the axis.
func axialPlaneNormal(a, pivot mgl64.Vec3, cam Camera) mgl64.Vec3 {
	if view, ok := normalize(pivot.Sub(cam.Position)); ok {
		if n, ok := normalize(a.Cross(a.Cross(view))); ok {
			return n
		}
	}
	// Looking straight down the axis.
	if n, ok := normalize(a.Cross(cam.Up)); ok {
		return n
	}
	for _, w := range [3]mgl64.Vec3{AxisX, AxisY, AxisZ} {
		if math.Abs(a.Dot(w)) < 0.9 {
			if n, ok := normalize(a.Cross(w)); ok {
				return n
			}
		}
	}
	return AxisY
}

// Begin starts a drag for pointerID. It reports false, changing nothing, when
// another drag is active, the selection is empty or the handle does not exist
// for mode.
func (g *Gizmo) Begin(pointerID int, mode Mode, axis Axis, ray Ray, cam Camera) bool {
	if g.session != nil {
		return false
	}
	switch mode {
	case ModeTranslate, ModeRotate, ModeScale:
	default:
		return false
	}
	pivot, ok := g.Pivot()
	if !ok {
		return false
	}
	plane, ok := InteractionPlane(mode, axis, pivot, cam)
	if !ok {
		return false
	}

	objects := g.store.Objects()
	roots := selectedRoots(g.store.state)
	if len(roots) == 0 {
		return false
	}
	starts := make([]startTransform, 0, len(roots))
	for _, id := range roots {
		obj := objects[id]
		starts = append(starts, startTransform{
			id:             id,
			worldPosition:  WorldPosition(obj, objects),
			rotation:       obj.Rotation,
			scale:          obj.Scale,
			parentRotation: ParentWorldRotation(obj, objects),
		})
	}

	s := &DragSession{
		PointerID:     pointerID,
		Mode:          mode,
		Axis:          axis,
		Plane:         plane,
		Pivot:         pivot,
		PivotRotation: mgl64.QuatIdent(),
		Camera:        cam,
		starts:        starts,
	}
	s.startPoint, s.hasStart = RayPlaneIntersect(ray, plane)
	g.session = s

	if g.camera != nil {
		g.camera.SetEnabled(false)
	}
	g.store.logger.Debug("drag begin", "pointer", pointerID, "mode", mode, "axis", axis, "objects", len(starts))
	return true
}

// Move projects the pointer onto the session plane and writes a live preview.
// Moves from other pointers, or without a plane hit, are ignored.
func (g *Gizmo) Move(pointerID int, ray Ray) bool {
	s := g.session
	if s == nil || s.PointerID != pointerID {
		return false
	}
	current, ok := RayPlaneIntersect(ray, s.Plane)
	if !ok {
		return false
	}
	if !s.hasStart {
		s.startPoint, s.hasStart = current, true
	}

	var updates []Update
	switch s.Mode {
	case ModeTranslate:
		updates = g.translate(s, current)
	case ModeRotate:
		updates = g.rotate(s, current)
	case ModeScale:
		updates = g.scale(s, current)
	}
	if len(updates) == 0 {
		return false
	}
	g.store.Update(updates, UpdateOptions{SkipHistory: true})
	s.moved = true
	return true
}

// End releases capture and commits the live transforms of every dragged
// object as one history entry. A drag that never moved commits nothing.
func (g *Gizmo) End(pointerID int) bool {
	s := g.session
	if s == nil || s.PointerID != pointerID {
		return false
	}
	g.session = nil
	if g.camera != nil {
		g.camera.SetEnabled(true)
	}
	if !s.moved {
		return false
	}

	updates := make([]Update, 0, len(s.starts))
	for _, st := range s.starts {
		obj, ok := g.store.Object(st.id)
		if !ok {
			continue
		}
		pos, rot, scl := obj.Position, obj.Rotation, obj.Scale
		updates = append(updates, Update{
			ID:     st.id,
			Fields: ObjectPatch{Position: &pos, Rotation: &rot, Scale: &scl},
		})
	}
	committed := g.store.Update(updates, UpdateOptions{})
	g.store.logger.Debug("drag end", "pointer", pointerID, "committed", committed)
	return committed
}

// LostCapture ends the session without committing; the store keeps its last
// live preview.
func (g *Gizmo) LostCapture(pointerID int) {
	s := g.session
	if s == nil || s.PointerID != pointerID {
		return
	}
	g.session = nil
	if g.camera != nil {
		g.camera.SetEnabled(true)
	}
	g.store.logger.Debug("drag capture lost", "pointer", pointerID)
}

// snapValue rounds v to the nearest multiple of step.
func snapValue(v, step float64) float64 {
	if step < Epsilon {
		return v
	}
	return math.Round(v/step) * step
}

func (g *Gizmo) translate(s *DragSession, current mgl64.Vec3) []Update {
	snap := g.store.snap
	delta := current.Sub(s.startPoint)

	var disp mgl64.Vec3
	if a, ok := s.Axis.Vector(); ok {
		d := delta.Dot(a)
		if snap.Enabled {
			d = snapValue(d, snap.Translate)
		}
		disp = a.Mul(d)
	} else {
		disp = delta
		if snap.Enabled {
			for i := range disp {
				disp[i] = snapValue(disp[i], snap.Translate)
			}
		}
	}

	objects := g.store.Objects()
	updates := make([]Update, 0, len(s.starts))
	for _, st := range s.starts {
		obj, ok := objects[st.id]
		if !ok {
			continue
		}
		pos := ToParentSpace(obj, objects, st.worldPosition.Add(disp))
		updates = append(updates, Update{ID: st.id, Fields: ObjectPatch{Position: &pos}})
	}
	return updates
}

// RotationAngle returns the signed angle about axis that carries the
// direction pivot→from onto pivot→to. It reports false when either point
// sits on the pivot.
func RotationAngle(axis, pivot, from, to mgl64.Vec3) (float64, bool) {
	u, ok := normalize(from.Sub(pivot))
	if !ok {
		return 0, false
	}
	v, ok := normalize(to.Sub(pivot))
	if !ok {
		return 0, false
	}
	angle := math.Acos(mgl64.Clamp(u.Dot(v), -1, 1))
	if axis.Dot(u.Cross(v)) < 0 {
		angle = -angle
	}
	return angle, true
}

func (g *Gizmo) rotate(s *DragSession, current mgl64.Vec3) []Update {
	axis, ok := s.Axis.Vector()
	if !ok {
		return nil
	}
	angle, ok := RotationAngle(axis, s.Pivot, s.startPoint, current)
	if !ok {
		return nil
	}
	if snap := g.store.snap; snap.Enabled {
		angle = snapValue(angle, mgl64.DegToRad(snap.RotateDegrees))
	}
	q := mgl64.QuatRotate(angle, axis)

	objects := g.store.Objects()
	updates := make([]Update, 0, len(s.starts))
	for _, st := range s.starts {
		obj, ok := objects[st.id]
		if !ok {
			continue
		}
		world := s.Pivot.Add(q.Rotate(st.worldPosition.Sub(s.Pivot)))
		pos := ToParentSpace(obj, objects, world)
		// The world-axis turn expressed in the parent's frame.
		local := st.parentRotation.Inverse().Mul(q).Mul(st.parentRotation)
		rot := QuatToEuler(local.Mul(EulerToQuat(st.rotation)))
		updates = append(updates, Update{ID: st.id, Fields: ObjectPatch{Position: &pos, Rotation: &rot}})
	}
	return updates
}

// scaleDirection returns the direction a scale handle measures along and the
// components the resulting factor applies to.
func scaleDirection(s *DragSession) (mgl64.Vec3, mgl64.Vec3, bool) {
	if a, ok := s.Axis.Vector(); ok {
		return a, a, true
	}
	if u, v, _, ok := s.Axis.Planar(); ok {
		dir, _ := normalize(u.Add(v))
		return dir, u.Add(v), true
	}
	if s.Axis == AxisNameXYZ {
		// Every point of the camera-facing plane projects to zero on the
		// view direction, so measure along pivot→start inside the plane.
		dir, ok := normalize(s.startPoint.Sub(s.Pivot))
		return dir, mgl64.Vec3{1, 1, 1}, ok
	}
	return mgl64.Vec3{}, mgl64.Vec3{}, false
}

// ScaleFactor returns the ratio of the projections of current and start
// (relative to pivot) onto dir. A denominator under Epsilon yields 1.
func ScaleFactor(dir, pivot, start, current mgl64.Vec3) float64 {
	den := start.Sub(pivot).Dot(dir)
	if math.Abs(den) < Epsilon {
		return 1
	}
	return current.Sub(pivot).Dot(dir) / den
}

func (g *Gizmo) scale(s *DragSession, current mgl64.Vec3) []Update {
	dir, mask, ok := scaleDirection(s)
	if !ok {
		return nil
	}
	factor := ScaleFactor(dir, s.Pivot, s.startPoint, current)

	snap := g.store.snap
	floor := snap.Scale
	if floor < Epsilon {
		floor = Epsilon
	}
	if snap.Enabled {
		factor = snapValue(factor, snap.Scale)
	}
	factor = max(factor, floor)

	var scaleVec mgl64.Vec3
	for i := range scaleVec {
		scaleVec[i] = 1
		if mask[i] != 0 {
			scaleVec[i] = factor
		}
	}

	objects := g.store.Objects()
	updates := make([]Update, 0, len(s.starts))
	for _, st := range s.starts {
		obj, ok := objects[st.id]
		if !ok {
			continue
		}
		offset := st.worldPosition.Sub(s.Pivot)
		world := s.Pivot.Add(mulElem(offset, scaleVec))
		pos := ToParentSpace(obj, objects, world)
		scl := mulElem(st.scale, scaleVec)
		updates = append(updates, Update{ID: st.id, Fields: ObjectPatch{Position: &pos, Scale: &scl}})
	}
	return updates
}

func mulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
