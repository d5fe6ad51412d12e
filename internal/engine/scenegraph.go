package engine

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/inamate/sculpt/internal/document"
)

// SceneGraph is the evaluated, render-ready view of the object mapping.
// It is rebuilt from the Store whenever the store changes and never written
// back.
type SceneGraph struct {
	Roots     []*SceneNode
	NodesByID map[string]*SceneNode
}

// SceneNode is a resolved node ready for rendering.
// World transforms and effective visibility/lock already include the parent
// chain.
type SceneNode struct {
	ID   string
	Type document.ObjectType
	Name string

	LocalTransform mgl64.Mat4
	WorldTransform mgl64.Mat4

	// Visible is false when the node or any ancestor is hidden.
	Visible bool
	// Locked is true when the node or any ancestor is locked.
	Locked bool

	Parent   *SceneNode
	Children []*SceneNode

	AssetURL string
	Data     json.RawMessage

	// Bounds is the node's own unit-box proxy in world space. For groups it
	// is the union of the children's bounds instead.
	Bounds Box3
}

// NewSceneGraph creates an empty scene graph.
func NewSceneGraph() *SceneGraph {
	return &SceneGraph{
		NodesByID: make(map[string]*SceneNode),
	}
}

// Node returns the node for id.
func (sg *SceneGraph) Node(id string) (*SceneNode, bool) {
	n, ok := sg.NodesByID[id]
	return n, ok
}

// Walk visits every node depth-first in child order, parents before
// children. Returning false from fn skips the node's subtree.
func (sg *SceneGraph) Walk(fn func(n *SceneNode) bool) {
	var walk func(n *SceneNode)
	walk = func(n *SceneNode) {
		if !fn(n) {
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range sg.Roots {
		walk(r)
	}
}

// Bounds returns the union of the bounds of the given nodes. Unknown ids are
// skipped.
func (sg *SceneGraph) Bounds(ids []string) Box3 {
	box := EmptyBox()
	for _, id := range ids {
		if n, ok := sg.NodesByID[id]; ok {
			box = box.Union(n.Bounds)
		}
	}
	return box
}
