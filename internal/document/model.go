package document

import (
	"encoding/json"
	"log/slog"
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jinzhu/copier"
)

// Document is the persisted envelope of a scene: project metadata plus the
// object mapping and the selection.
type Document struct {
	Project     Project                `json:"project"`
	Objects     map[string]SceneObject `json:"objects"`
	SelectedIDs []string               `json:"selectedIds"`
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type ObjectType string

const (
	ObjectTypeGroup     ObjectType = "group"
	ObjectTypeBox       ObjectType = "box"
	ObjectTypeSphere    ObjectType = "sphere"
	ObjectTypeCylinder  ObjectType = "cylinder"
	ObjectTypeCone      ObjectType = "cone"
	ObjectTypeTorus     ObjectType = "torus"
	ObjectTypePlane     ObjectType = "plane"
	ObjectTypeText      ObjectType = "text"
	ObjectTypeExtrusion ObjectType = "extrusion"
	ObjectTypeModel     ObjectType = "model"
)

// SceneObject is one node of the scene forest. Rotation holds XYZ Euler
// angles in radians. ParentID is a lookup key into the same object mapping,
// nil for roots.
type SceneObject struct {
	ID       string     `json:"id"`
	Type     ObjectType `json:"type"`
	Name     string     `json:"name,omitempty"`
	ParentID *string    `json:"parentId,omitempty"`
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Vec3 `json:"rotation"`
	Scale    mgl64.Vec3 `json:"scale"`
	Visible  bool       `json:"isVisible"`
	Locked   bool       `json:"isLocked"`

	// AssetURL references an attached external resource (uploaded mesh or
	// texture) that must be released when the object is removed.
	AssetURL string `json:"assetUrl,omitempty"`

	// Shape-specific fields (color, extrusion depth, text content, ...).
	// Never interpreted here, only carried along.
	Data json.RawMessage `json:"data,omitempty"`
}

// Parent returns the parent id, or "" for a root object.
func (o SceneObject) Parent() string {
	if o.ParentID == nil {
		return ""
	}
	return *o.ParentID
}

// IsGroup reports whether the object is a group container.
func (o SceneObject) IsGroup() bool {
	return o.Type == ObjectTypeGroup
}

// NewObject returns a visible, unlocked object of the given type with an
// identity transform.
func NewObject(id string, typ ObjectType) SceneObject {
	return SceneObject{
		ID:       id,
		Type:     typ,
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.Vec3{0, 0, 0},
		Scale:    mgl64.Vec3{1, 1, 1},
		Visible:  true,
	}
}

// Snapshot is the editable state of a scene at one point in time.
type Snapshot struct {
	Objects     map[string]SceneObject `json:"objects"`
	SelectedIDs []string               `json:"selectedIds"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() Snapshot {
	return Snapshot{
		Objects:     make(map[string]SceneObject),
		SelectedIDs: []string{},
	}
}

// Clone returns a deep copy of the snapshot, safe to mutate independently.
func (s Snapshot) Clone() Snapshot {
	out := NewSnapshot()
	if err := copier.CopyWithOption(&out, &s, copier.Option{DeepCopy: true}); err != nil {
		slog.Error("clone snapshot", "error", err)
		out.Objects = maps.Clone(s.Objects)
		out.SelectedIDs = slices.Clone(s.SelectedIDs)
	}
	if out.Objects == nil {
		out.Objects = make(map[string]SceneObject)
	}
	if out.SelectedIDs == nil {
		out.SelectedIDs = []string{}
	}
	return out
}

// Snapshot returns the editable part of the document.
func (d *Document) Snapshot() Snapshot {
	return Snapshot{Objects: d.Objects, SelectedIDs: d.SelectedIDs}.Clone()
}

// NewEmptyDocument creates an empty document for a new project
func NewEmptyDocument(projectID, projectName string) *Document {
	return &Document{
		Project: Project{
			ID:        projectID,
			Name:      projectName,
			Version:   1,
			CreatedAt: "", // Will be set by caller
			UpdatedAt: "",
		},
		Objects:     map[string]SceneObject{},
		SelectedIDs: []string{},
	}
}
