package engine

import (
	"sort"

	"github.com/inamate/sculpt/internal/document"
)

// Edge selects which side of the world boxes Align lines up.
type Edge string

const (
	EdgeMin    Edge = "min"
	EdgeCenter Edge = "center"
	EdgeMax    Edge = "max"
)

// Index returns the vector component of a single-axis handle.
func (a Axis) Index() (int, bool) {
	switch a {
	case AxisNameX:
		return 0, true
	case AxisNameY:
		return 1, true
	case AxisNameZ:
		return 2, true
	}
	return 0, false
}

type arrangeItem struct {
	id  string
	box Box3
}

// arrangeItems returns the selected roots with their world boxes. Children of
// selected objects follow their parent and are not moved on their own.
func (s *Store) arrangeItems() []arrangeItem {
	roots := selectedRoots(s.state)
	items := make([]arrangeItem, 0, len(roots))
	for _, id := range roots {
		items = append(items, arrangeItem{id: id, box: WorldBoundingBox(s.state.Objects[id], s.state.Objects)})
	}
	return items
}

// moveWorld commits one history entry shifting each object's world position
// by offsets[id] along the axis component i.
func (s *Store) moveWorld(action string, i int, offsets map[string]float64) {
	s.commit(action, func(st *document.Snapshot) {
		for id, off := range offsets {
			obj, ok := st.Objects[id]
			if !ok || obj.Locked {
				continue
			}
			world := WorldPosition(obj, st.Objects)
			world[i] += off
			obj.Position = ToParentSpace(obj, st.Objects, world)
			st.Objects[id] = obj
		}
	})
}

func boxEdge(b Box3, i int, edge Edge) float64 {
	switch edge {
	case EdgeMin:
		return b.Min[i]
	case EdgeMax:
		return b.Max[i]
	}
	return b.Center()[i]
}

// Align lines up the selection's world boxes on axis: every min on the
// smallest min, every max on the largest max, or every center on the mean
// center. It needs at least two objects.
func (s *Store) Align(axis Axis, edge Edge) bool {
	i, ok := axis.Index()
	if !ok {
		return false
	}
	switch edge {
	case EdgeMin, EdgeCenter, EdgeMax:
	default:
		return false
	}
	items := s.arrangeItems()
	if len(items) < 2 {
		return false
	}

	var target float64
	switch edge {
	case EdgeMin:
		target = items[0].box.Min[i]
		for _, it := range items[1:] {
			target = min(target, it.box.Min[i])
		}
	case EdgeMax:
		target = items[0].box.Max[i]
		for _, it := range items[1:] {
			target = max(target, it.box.Max[i])
		}
	case EdgeCenter:
		for _, it := range items {
			target += it.box.Center()[i]
		}
		target /= float64(len(items))
	}

	offsets := make(map[string]float64, len(items))
	for _, it := range items {
		offsets[it.id] = target - boxEdge(it.box, i, edge)
	}
	s.moveWorld("align", i, offsets)
	return true
}

// Distribute spaces the selection evenly on axis. The outermost objects stay
// put and the interior ones are placed so consecutive boxes are separated by
// the same gap. It needs at least three objects.
func (s *Store) Distribute(axis Axis) bool {
	i, ok := axis.Index()
	if !ok {
		return false
	}
	items := s.arrangeItems()
	if len(items) < 3 {
		return false
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].box.Center()[i] < items[b].box.Center()[i]
	})

	first, last := items[0].box, items[len(items)-1].box
	span := last.Max[i] - first.Min[i]
	var sizes float64
	for _, it := range items {
		sizes += it.box.Size()[i]
	}
	gap := (span - sizes) / float64(len(items)-1)

	offsets := make(map[string]float64, len(items)-2)
	cursor := first.Max[i] + gap
	for _, it := range items[1 : len(items)-1] {
		offsets[it.id] = cursor - it.box.Min[i]
		cursor += it.box.Size()[i] + gap
	}
	s.moveWorld("distribute", i, offsets)
	return true
}

// Mirror reflects every selected world position across the center of the
// selection's bounds on axis. Rotation and scale are left as they are.
func (s *Store) Mirror(axis Axis) bool {
	i, ok := axis.Index()
	if !ok {
		return false
	}
	items := s.arrangeItems()
	if len(items) == 0 {
		return false
	}
	bounds := EmptyBox()
	for _, it := range items {
		bounds = bounds.Union(it.box)
	}
	pivot := bounds.Center()[i]

	offsets := make(map[string]float64, len(items))
	for _, it := range items {
		obj := s.state.Objects[it.id]
		p := WorldPosition(obj, s.state.Objects)[i]
		offsets[it.id] = 2*pivot - 2*p
	}
	s.moveWorld("mirror", i, offsets)
	return true
}
