package engine

import (
	"encoding/json"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box3 represents an axis-aligned bounding box in world space.
type Box3 struct {
	Min mgl64.Vec3 `json:"min"`
	Max mgl64.Vec3 `json:"max"`
}

// EmptyBox returns a box that contains nothing; expanding it by any point
// yields a box around that point.
func EmptyBox() Box3 {
	inf := math.Inf(1)
	return Box3{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty checks if the box has negative extent on any axis.
func (b Box3) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// ExpandByPoint returns the smallest box containing b and p.
func (b Box3) ExpandByPoint(p mgl64.Vec3) Box3 {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Union returns the smallest box containing both boxes.
func (b Box3) Union(other Box3) Box3 {
	if b.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return b
	}
	return b.ExpandByPoint(other.Min).ExpandByPoint(other.Max)
}

// Center returns the center point of the box.
func (b Box3) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box on each axis.
func (b Box3) Size() mgl64.Vec3 {
	if b.IsEmpty() {
		return mgl64.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// IntersectRay returns the distance along r to the first point inside the
// box (slab test). A ray starting inside the box hits at t = 0.
func (b Box3) IntersectRay(r Ray) (float64, bool) {
	if b.IsEmpty() {
		return 0, false
	}
	tmin, tmax := 0.0, math.Inf(1)
	for i := 0; i < 3; i++ {
		o, d := r.Origin[i], r.Direction[i]
		if math.Abs(d) < Epsilon {
			if o < b.Min[i] || o > b.Max[i] {
				return 0, false
			}
			continue
		}
		t1 := (b.Min[i] - o) / d
		t2 := (b.Max[i] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// BoxToJSON serializes a Box3 to JSON. An empty box serializes as null.
func BoxToJSON(b Box3) string {
	if b.IsEmpty() {
		return "null"
	}
	data, _ := json.Marshal(b)
	return string(data)
}
