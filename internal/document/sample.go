package document

import (
	"encoding/json"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/inamate/sculpt/internal/typeid"
)

// NewSampleDocument builds the playground scene: two cubes, a sphere and a
// group holding a cylinder and a nested group with a cone.
func NewSampleDocument(projectID string) *Document {
	now := time.Now().UTC().Format(time.RFC3339)

	cubeAID := typeid.NewObjectID()
	cubeBID := typeid.NewObjectID()
	sphereID := typeid.NewObjectID()
	groupID := typeid.NewObjectID()
	cylinderID := typeid.NewObjectID()
	innerID := typeid.NewObjectID()
	coneID := typeid.NewObjectID()

	groupIDPtr := &groupID
	innerIDPtr := &innerID

	return &Document{
		Project: Project{
			ID:        projectID,
			Name:      "Untitled",
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Objects: map[string]SceneObject{
			cubeAID: {
				ID:       cubeAID,
				Type:     ObjectTypeBox,
				Name:     "Cube",
				Position: mgl64.Vec3{0, 0.5, 0},
				Scale:    mgl64.Vec3{1, 1, 1},
				Visible:  true,
				Data:     json.RawMessage(`{"color": "#e94560"}`),
			},
			cubeBID: {
				ID:       cubeBID,
				Type:     ObjectTypeBox,
				Name:     "Cube 2",
				Position: mgl64.Vec3{2, 0.5, 0},
				Scale:    mgl64.Vec3{1, 1, 1},
				Visible:  true,
				Data:     json.RawMessage(`{"color": "#0f3460"}`),
			},
			sphereID: {
				ID:       sphereID,
				Type:     ObjectTypeSphere,
				Name:     "Sphere",
				Position: mgl64.Vec3{-2, 0.5, 1},
				Scale:    mgl64.Vec3{1, 1, 1},
				Visible:  true,
				Data:     json.RawMessage(`{"color": "#53d769", "segments": 32}`),
			},
			groupID: {
				ID:       groupID,
				Type:     ObjectTypeGroup,
				Name:     "Group",
				Position: mgl64.Vec3{0, 0, -3},
				Scale:    mgl64.Vec3{1, 1, 1},
				Visible:  true,
			},
			cylinderID: {
				ID:       cylinderID,
				Type:     ObjectTypeCylinder,
				Name:     "Cylinder",
				ParentID: groupIDPtr,
				Position: mgl64.Vec3{-1, 0.5, 0},
				Scale:    mgl64.Vec3{1, 1, 1},
				Visible:  true,
				Data:     json.RawMessage(`{"color": "#f5a623"}`),
			},
			innerID: {
				ID:       innerID,
				Type:     ObjectTypeGroup,
				Name:     "Group 2",
				ParentID: groupIDPtr,
				Position: mgl64.Vec3{1, 0, 0},
				Rotation: mgl64.Vec3{0, 0.785398, 0},
				Scale:    mgl64.Vec3{1, 1, 1},
				Visible:  true,
			},
			coneID: {
				ID:       coneID,
				Type:     ObjectTypeCone,
				Name:     "Cone",
				ParentID: innerIDPtr,
				Position: mgl64.Vec3{0, 0.5, 0},
				Scale:    mgl64.Vec3{1, 2, 1},
				Visible:  true,
				Data:     json.RawMessage(`{"color": "#bd10e0"}`),
			},
		},
		SelectedIDs: []string{},
	}
}
