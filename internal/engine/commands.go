package engine

import (
	"encoding/json"

	"github.com/inamate/sculpt/internal/document"
)

// DrawCommand is one mesh the renderer has to draw this frame.
// The frontend receives a list of these and maps them onto its meshes.
type DrawCommand struct {
	ObjectID  string              `json:"objectId"`
	Type      document.ObjectType `json:"type"`
	Transform [16]float64         `json:"transform"` // column-major world matrix
	Selected  bool                `json:"selected,omitempty"`
	Locked    bool                `json:"locked,omitempty"`
	AssetURL  string              `json:"assetUrl,omitempty"`
	Data      json.RawMessage     `json:"data,omitempty"`
}

// CompileDrawCommands generates the draw list for every visible, non-group
// node, parents before children.
func CompileDrawCommands(sg *SceneGraph, selection []string) []DrawCommand {
	if sg == nil {
		return nil
	}
	selected := make(map[string]bool, len(selection))
	for _, id := range selection {
		selected[id] = true
	}

	var commands []DrawCommand
	sg.Walk(func(n *SceneNode) bool {
		if !n.Visible {
			return false
		}
		if n.Type != document.ObjectTypeGroup {
			commands = append(commands, DrawCommand{
				ObjectID:  n.ID,
				Type:      n.Type,
				Transform: [16]float64(n.WorldTransform),
				Selected:  selected[n.ID],
				Locked:    n.Locked,
				AssetURL:  n.AssetURL,
				Data:      n.Data,
			})
		}
		return true
	})
	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
