//go:build js && wasm

package main

import (
	"encoding/json"
	"strings"
	"syscall/js"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/inamate/sculpt/internal/document"
	"github.com/inamate/sculpt/internal/engine"
)

var (
	eng   *engine.Engine
	blobs = &blobReleaser{pending: make(map[string]bool)}
)

// blobReleaser revokes object URLs created for imported meshes. A removed
// object can come back through undo, so revocation waits until a document
// load has replaced the history; Retain cancels a pending revoke.
type blobReleaser struct {
	pending map[string]bool
}

func (b *blobReleaser) Release(obj document.SceneObject) {
	if strings.HasPrefix(obj.AssetURL, "blob:") {
		b.pending[obj.AssetURL] = true
	}
}

func (b *blobReleaser) Retain(obj document.SceneObject) {
	delete(b.pending, obj.AssetURL)
}

// flush revokes every URL still pending. Call it after the history has been
// reset, when nothing can restore the released objects.
func (b *blobReleaser) flush() {
	urls := js.Global().Get("URL")
	for url := range b.pending {
		urls.Call("revokeObjectURL", url)
		delete(b.pending, url)
	}
}

// jsCameraControl forwards enable/disable to the page's orbit controls.
type jsCameraControl struct {
	controls js.Value
}

func (c jsCameraControl) SetEnabled(enabled bool) {
	c.controls.Set("enabled", enabled)
}

func main() {
	eng = engine.NewEngine(engine.WithReleaser(blobs))

	// Create the engine API object
	sculptEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	sculptEngine.Set("loadDocument", js.FuncOf(loadDocument))
	sculptEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	sculptEngine.Set("setCameraControls", js.FuncOf(setCameraControls))
	sculptEngine.Set("setSnap", js.FuncOf(setSnap))
	sculptEngine.Set("setSelection", js.FuncOf(setSelection))
	sculptEngine.Set("addToSelection", js.FuncOf(addToSelection))
	sculptEngine.Set("toggleSelect", js.FuncOf(toggleSelect))
	sculptEngine.Set("clearSelection", js.FuncOf(clearSelection))
	sculptEngine.Set("setFocus", js.FuncOf(setFocus))
	sculptEngine.Set("addObjects", js.FuncOf(addObjects))
	sculptEngine.Set("deleteSelected", js.FuncOf(deleteSelected))
	sculptEngine.Set("duplicate", js.FuncOf(duplicate))
	sculptEngine.Set("updateObjects", js.FuncOf(updateObjects))
	sculptEngine.Set("toggleVisibility", js.FuncOf(toggleVisibility))
	sculptEngine.Set("toggleLock", js.FuncOf(toggleLock))
	sculptEngine.Set("group", js.FuncOf(group))
	sculptEngine.Set("ungroup", js.FuncOf(ungroup))
	sculptEngine.Set("align", js.FuncOf(align))
	sculptEngine.Set("distribute", js.FuncOf(distribute))
	sculptEngine.Set("mirror", js.FuncOf(mirror))
	sculptEngine.Set("undo", js.FuncOf(undo))
	sculptEngine.Set("redo", js.FuncOf(redo))
	sculptEngine.Set("beginDrag", js.FuncOf(beginDrag))
	sculptEngine.Set("moveDrag", js.FuncOf(moveDrag))
	sculptEngine.Set("endDrag", js.FuncOf(endDrag))
	sculptEngine.Set("lostPointerCapture", js.FuncOf(lostPointerCapture))

	// --- Queries (frontend ← backend) ---
	sculptEngine.Set("render", js.FuncOf(render))
	sculptEngine.Set("hitTest", js.FuncOf(hitTest))
	sculptEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	sculptEngine.Set("getGizmoState", js.FuncOf(getGizmoState))
	sculptEngine.Set("getHistoryState", js.FuncOf(getHistoryState))
	sculptEngine.Set("getDocument", js.FuncOf(getDocument))
	sculptEngine.Set("getSelection", js.FuncOf(getSelection))

	// Register on global scope
	js.Global().Set("sculptEngine", sculptEngine)

	// Signal that WASM is ready
	js.Global().Set("sculptWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func stringArg(args []js.Value, i int) string {
	if len(args) <= i || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func stringsArg(args []js.Value, i int) []string {
	if len(args) <= i || args[i].Type() != js.TypeObject {
		return nil
	}
	arr := args[i]
	ids := make([]string, arr.Length())
	for j := range ids {
		ids[j] = arr.Index(j).String()
	}
	return ids
}

func idsResult(ids []string) interface{} {
	data, _ := json.Marshal(ids)
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	jsonData := stringArg(args, 0)
	if jsonData == "" {
		return errorResult("missing document JSON")
	}
	if err := eng.LoadDocument(jsonData); err != nil {
		return errorResult(err.Error())
	}
	blobs.flush()
	return okResult()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	projectID := "proj_sample"
	if id := stringArg(args, 0); id != "" {
		projectID = id
	}
	eng.LoadSampleDocument(projectID)
	blobs.flush()
	return okResult()
}

func setCameraControls(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		eng.Gizmo().SetCameraControl(nil)
		return nil
	}
	eng.Gizmo().SetCameraControl(jsCameraControl{controls: args[0]})
	return nil
}

func setSnap(this js.Value, args []js.Value) interface{} {
	snap := eng.Store().Snap()
	if err := json.Unmarshal([]byte(stringArg(args, 0)), &snap); err != nil {
		return errorResult("invalid snap settings")
	}
	eng.Store().SetSnap(snap)
	return okResult()
}

func setSelection(this js.Value, args []js.Value) interface{} {
	eng.SetSelection(stringsArg(args, 0))
	return nil
}

func addToSelection(this js.Value, args []js.Value) interface{} {
	eng.Store().AddToSelection(stringsArg(args, 0))
	return nil
}

func toggleSelect(this js.Value, args []js.Value) interface{} {
	eng.Store().ToggleSelect(stringArg(args, 0))
	return nil
}

func clearSelection(this js.Value, args []js.Value) interface{} {
	eng.Store().ClearSelection()
	return nil
}

func setFocus(this js.Value, args []js.Value) interface{} {
	on := len(args) > 0 && args[0].Truthy()
	eng.Store().SetFocus(on)
	return js.ValueOf(eng.Store().Focused())
}

func addObjects(this js.Value, args []js.Value) interface{} {
	var objs []document.SceneObject
	if err := json.Unmarshal([]byte(stringArg(args, 0)), &objs); err != nil {
		return errorResult("invalid objects JSON")
	}
	return idsResult(eng.Store().Add(objs...))
}

func deleteSelected(this js.Value, args []js.Value) interface{} {
	eng.Store().DeleteSelected()
	return nil
}

func duplicate(this js.Value, args []js.Value) interface{} {
	return idsResult(eng.Store().Duplicate())
}

func updateObjects(this js.Value, args []js.Value) interface{} {
	var updates []engine.Update
	if err := json.Unmarshal([]byte(stringArg(args, 0)), &updates); err != nil {
		return errorResult("invalid updates JSON")
	}
	skip := len(args) > 1 && args[1].Truthy()
	return js.ValueOf(eng.Store().Update(updates, engine.UpdateOptions{SkipHistory: skip}))
}

func toggleVisibility(this js.Value, args []js.Value) interface{} {
	eng.Store().ToggleVisibility(stringArg(args, 0))
	return nil
}

func toggleLock(this js.Value, args []js.Value) interface{} {
	eng.Store().ToggleLock(stringArg(args, 0))
	return nil
}

func group(this js.Value, args []js.Value) interface{} {
	id, ok := eng.Store().Group()
	if !ok {
		return js.Null()
	}
	return js.ValueOf(id)
}

func ungroup(this js.Value, args []js.Value) interface{} {
	return idsResult(eng.Store().Ungroup())
}

func align(this js.Value, args []js.Value) interface{} {
	axis := engine.Axis(stringArg(args, 0))
	edge := engine.Edge(stringArg(args, 1))
	return js.ValueOf(eng.Store().Align(axis, edge))
}

func distribute(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Store().Distribute(engine.Axis(stringArg(args, 0))))
}

func mirror(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Store().Mirror(engine.Axis(stringArg(args, 0))))
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Redo())
}

// beginDrag(pointerId, mode, axis, rayJSON, cameraJSON)
func beginDrag(this js.Value, args []js.Value) interface{} {
	if len(args) < 5 {
		return js.ValueOf(false)
	}
	var ray engine.Ray
	if err := json.Unmarshal([]byte(args[3].String()), &ray); err != nil {
		return js.ValueOf(false)
	}
	var cam engine.Camera
	if err := json.Unmarshal([]byte(args[4].String()), &cam); err != nil {
		return js.ValueOf(false)
	}
	ok := eng.Gizmo().Begin(args[0].Int(), engine.Mode(args[1].String()), engine.Axis(args[2].String()), ray, cam)
	return js.ValueOf(ok)
}

// moveDrag(pointerId, rayJSON)
func moveDrag(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	var ray engine.Ray
	if err := json.Unmarshal([]byte(args[1].String()), &ray); err != nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.Gizmo().Move(args[0].Int(), ray))
}

func endDrag(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.Gizmo().End(args[0].Int()))
}

func lostPointerCapture(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.Gizmo().LostCapture(args[0].Int())
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

// hitTest(ox, oy, oz, dx, dy, dz)
func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 6 {
		return js.ValueOf("null")
	}
	origin := mgl64.Vec3{args[0].Float(), args[1].Float(), args[2].Float()}
	dir := mgl64.Vec3{args[3].Float(), args[4].Float(), args[5].Float()}
	return js.ValueOf(eng.HitTest(origin, dir))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelectionBounds())
}

func getGizmoState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetGizmoState())
}

func getHistoryState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetHistoryState())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetDocument())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelection())
}
