package engine

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/inamate/sculpt/internal/document"
)

// BuildSceneGraph resolves the object mapping into a scene graph in a single
// top-down pass, so every world matrix is computed once.
func BuildSceneGraph(objects map[string]document.SceneObject) *SceneGraph {
	sg := NewSceneGraph()
	children := childIndex(objects)

	var roots []string
	for id, obj := range objects {
		if _, ok := objects[obj.Parent()]; !ok {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)

	for _, id := range roots {
		obj := objects[id]
		node := buildNode(objects, children, &obj, nil, mgl64.Ident4(), true, false, sg)
		sg.Roots = append(sg.Roots, node)
	}
	return sg
}

// buildNode recursively builds a SceneNode from a document object.
func buildNode(
	objects map[string]document.SceneObject,
	children map[string][]string,
	obj *document.SceneObject,
	parent *SceneNode,
	parentWorld mgl64.Mat4,
	parentVisible bool,
	parentLocked bool,
	sg *SceneGraph,
) *SceneNode {
	local := LocalMatrix(*obj)
	world := parentWorld.Mul4(local)

	node := &SceneNode{
		ID:             obj.ID,
		Type:           obj.Type,
		Name:           obj.Name,
		LocalTransform: local,
		WorldTransform: world,
		Visible:        parentVisible && obj.Visible,
		Locked:         parentLocked || obj.Locked,
		Parent:         parent,
		AssetURL:       obj.AssetURL,
		Data:           obj.Data,
	}
	if obj.IsGroup() {
		node.Bounds = EmptyBox()
	} else {
		node.Bounds = TransformUnitBox(world)
	}

	// Register before descending; a cycle in corrupt input stops here.
	sg.NodesByID[obj.ID] = node

	for _, childID := range children[obj.ID] {
		if _, seen := sg.NodesByID[childID]; seen {
			continue
		}
		childObj, ok := objects[childID]
		if !ok {
			continue
		}
		childNode := buildNode(objects, children, &childObj, node, world, node.Visible, node.Locked, sg)
		node.Children = append(node.Children, childNode)
		if obj.IsGroup() {
			node.Bounds = node.Bounds.Union(childNode.Bounds)
		}
	}

	return node
}
