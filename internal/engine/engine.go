package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/inamate/sculpt/internal/document"
)

var ErrInvalidDocument = errors.New("invalid document")

// Engine is the editing core that owns the store, the gizmo controller and
// the cached scene graph. It processes commands from the frontend (or the
// collaboration hub) and returns query results as JSON.
// An Engine is not safe for concurrent use.
type Engine struct {
	project document.Project

	store *Store
	gizmo *Gizmo

	// Retained scene graph, rebuilt when the store revision moves.
	sceneGraph *SceneGraph
	builtRev   uint64
}

// NewEngine creates an engine over an empty scene.
func NewEngine(opts ...StoreOption) *Engine {
	store := NewStore(document.NewSnapshot(), opts...)
	return &Engine{
		store: store,
		gizmo: NewGizmo(store, nil),
	}
}

func (e *Engine) Store() *Store { return e.store }
func (e *Engine) Gizmo() *Gizmo { return e.gizmo }

// Project returns the metadata of the loaded document.
func (e *Engine) Project() document.Project { return e.project }

// --- Commands (frontend → backend) ---

// LoadDocument loads a document from JSON and restarts the history.
func (e *Engine) LoadDocument(jsonData string) error {
	var doc document.Document
	if err := json.Unmarshal([]byte(jsonData), &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	e.SetDocument(&doc)
	return nil
}

// SetDocument installs doc as the live state and restarts the history.
// Any drag in progress is abandoned.
func (e *Engine) SetDocument(doc *document.Document) {
	if e.gizmo.Active() {
		e.gizmo.LostCapture(e.gizmo.Session().PointerID)
	}
	e.project = doc.Project
	e.store.Reset(doc.Snapshot())
}

// LoadSampleDocument loads the built-in sample document.
func (e *Engine) LoadSampleDocument(projectID string) {
	e.SetDocument(document.NewSampleDocument(projectID))
}

// SetSelection replaces the selected object ids.
func (e *Engine) SetSelection(ids []string) {
	e.store.Select(ids)
}

func (e *Engine) Undo() bool { return e.store.Undo() }
func (e *Engine) Redo() bool { return e.store.Redo() }

// --- Queries (frontend ← backend) ---

// SceneGraph returns the scene graph for the current state, rebuilding it
// only when the store changed since the last call.
func (e *Engine) SceneGraph() *SceneGraph {
	if e.sceneGraph == nil || e.builtRev != e.store.Revision() {
		e.sceneGraph = BuildSceneGraph(e.store.Objects())
		e.builtRev = e.store.Revision()
	}
	return e.sceneGraph
}

// Render returns the draw list as JSON.
func (e *Engine) Render() string {
	commands := CompileDrawCommands(e.SceneGraph(), e.store.Selection())
	result, _ := DrawCommandsToJSON(commands)
	return result
}

// HitTest casts a ray and returns the pick result as JSON, or "null" when
// nothing was hit.
func (e *Engine) HitTest(origin, direction mgl64.Vec3) string {
	res, ok := Pick(e.SceneGraph(), Ray{Origin: origin, Direction: direction})
	if !ok {
		return "null"
	}
	data, _ := json.Marshal(res)
	return string(data)
}

// GetSelectionBounds returns the world box of the current selection as JSON,
// null when nothing is selected.
func (e *Engine) GetSelectionBounds() string {
	return BoxToJSON(e.store.SelectionBounds())
}

// GetGizmoState returns the pivot and drag state as JSON.
func (e *Engine) GetGizmoState() string {
	state := map[string]any{"visible": false, "dragging": e.gizmo.Active()}
	if pivot, ok := e.gizmo.Pivot(); ok {
		state["visible"] = true
		state["pivot"] = pivot
	}
	if s := e.gizmo.Session(); s != nil {
		state["mode"] = s.Mode
		state["axis"] = s.Axis
		state["pivot"] = s.Pivot
	}
	data, _ := json.Marshal(state)
	return string(data)
}

// GetHistoryState returns undo/redo availability as JSON.
func (e *Engine) GetHistoryState() string {
	h := e.store.History()
	data, _ := json.Marshal(map[string]any{
		"canUndo": h.CanUndo(),
		"canRedo": h.CanRedo(),
		"index":   h.Index(),
		"length":  h.Len(),
	})
	return string(data)
}

// Document returns the live state wrapped with the project metadata.
func (e *Engine) Document() *document.Document {
	snap := e.store.Snapshot()
	return &document.Document{
		Project:     e.project,
		Objects:     snap.Objects,
		SelectedIDs: snap.SelectedIDs,
	}
}

// GetDocument returns the full document as JSON (for debugging/sync).
func (e *Engine) GetDocument() string {
	data, _ := json.Marshal(e.Document())
	return string(data)
}

// GetSelection returns the current selection as JSON.
func (e *Engine) GetSelection() string {
	data, _ := json.Marshal(e.store.Selection())
	return string(data)
}
