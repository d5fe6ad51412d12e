package engine

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/inamate/sculpt/internal/document"
	"github.com/inamate/sculpt/internal/typeid"
)

// Group wraps the selected roots in a new group placed at the mean of their
// world positions. Every member keeps its world transform. The group is
// selected afterwards and its id returned; fewer than two roots is a no-op.
func (s *Store) Group() (string, bool) {
	roots := selectedRoots(s.state)
	if len(roots) < 2 {
		return "", false
	}

	groupID := typeid.NewObjectID()
	s.commit("group", func(st *document.Snapshot) {
		var center mgl64.Vec3
		worlds := make([]mgl64.Mat4, len(roots))
		for i, id := range roots {
			worlds[i] = WorldMatrix(st.Objects[id], st.Objects)
			center = center.Add(worlds[i].Col(3).Vec3())
		}
		center = center.Mul(1 / float64(len(roots)))

		group := document.NewObject(groupID, document.ObjectTypeGroup)
		group.Name = "Group"
		// Stay inside the members' parent when they share one.
		if parent := commonParent(st.Objects, roots); parent != "" {
			p := parent
			group.ParentID = &p
		}
		group.Position = ToParentSpace(group, st.Objects, center)
		st.Objects[groupID] = group

		inv := WorldMatrix(group, st.Objects).Inv()
		for i, id := range roots {
			obj := st.Objects[id]
			obj.Position, obj.Rotation, obj.Scale = Decompose(inv.Mul4(worlds[i]))
			gid := groupID
			obj.ParentID = &gid
			st.Objects[id] = obj
		}
		st.SelectedIDs = []string{groupID}
	})
	return groupID, true
}

// commonParent returns the parent shared by every id, or "" when they differ.
func commonParent(objects map[string]document.SceneObject, ids []string) string {
	parent := objects[ids[0]].Parent()
	for _, id := range ids[1:] {
		if objects[id].Parent() != parent {
			return ""
		}
	}
	return parent
}

// Ungroup dissolves every selected group. Direct children become roots whose
// local transform equals their former world transform, the group records are
// removed and the former children are selected. It returns those children.
func (s *Store) Ungroup() []string {
	var groups []string
	for _, id := range s.state.SelectedIDs {
		if obj, ok := s.state.Objects[id]; ok && obj.IsGroup() && !obj.Locked {
			groups = append(groups, id)
		}
	}
	if len(groups) == 0 {
		return nil
	}

	var released []string
	s.commit("ungroup", func(st *document.Snapshot) {
		children := childIndex(st.Objects)
		for _, gid := range groups {
			group, ok := st.Objects[gid]
			if !ok {
				continue
			}
			world := WorldMatrix(group, st.Objects)
			for _, cid := range children[gid] {
				child, ok := st.Objects[cid]
				if !ok {
					continue
				}
				child.Position, child.Rotation, child.Scale = Decompose(world.Mul4(LocalMatrix(child)))
				child.ParentID = nil
				st.Objects[cid] = child
				released = append(released, cid)
			}
			delete(st.Objects, gid)
		}
		st.SelectedIDs = released
	})
	return released
}
