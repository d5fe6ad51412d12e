package engine

import "github.com/inamate/sculpt/internal/document"

// PickResult is the object under a pointer ray.
type PickResult struct {
	ObjectID string  `json:"objectId"`
	Distance float64 `json:"distance"`
	// RootID is the outermost ancestor, which a click on a grouped object
	// selects.
	RootID string `json:"rootId"`
}

// Pick returns the nearest visible, unlocked, non-group node whose world box
// the ray hits. Distance is in units of the ray direction length.
func Pick(sg *SceneGraph, r Ray) (PickResult, bool) {
	if sg == nil {
		return PickResult{}, false
	}
	var best PickResult
	found := false
	sg.Walk(func(n *SceneNode) bool {
		// Hidden or locked subtrees are not pickable.
		if !n.Visible || n.Locked {
			return false
		}
		if n.Type == document.ObjectTypeGroup {
			return true
		}
		t, ok := n.Bounds.IntersectRay(r)
		if !ok {
			return true
		}
		if !found || t < best.Distance {
			best = PickResult{ObjectID: n.ID, Distance: t, RootID: rootOf(n).ID}
			found = true
		}
		return true
	})
	return best, found
}

func rootOf(n *SceneNode) *SceneNode {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}
