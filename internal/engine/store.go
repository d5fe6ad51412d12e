package engine

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/inamate/sculpt/internal/document"
	"github.com/inamate/sculpt/internal/typeid"
)

// ResourceReleaser frees the external resource attached to a removed object
// (an uploaded mesh, a blob URL).
type ResourceReleaser interface {
	Release(obj document.SceneObject)
}

// ResourceRetainer is implemented by releasers whose release can be taken
// back. Objects restored by undo, redo or a reset are retained again.
type ResourceRetainer interface {
	Retain(obj document.SceneObject)
}

// ObjectPatch lists the fields an Update changes. Nil fields are left alone.
type ObjectPatch struct {
	Name     *string         `json:"name,omitempty"`
	Position *mgl64.Vec3     `json:"position,omitempty"`
	Rotation *mgl64.Vec3     `json:"rotation,omitempty"`
	Scale    *mgl64.Vec3     `json:"scale,omitempty"`
	Visible  *bool           `json:"isVisible,omitempty"`
	AssetURL *string         `json:"assetUrl,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Update pairs an object id with the fields to change.
type Update struct {
	ID     string      `json:"id"`
	Fields ObjectPatch `json:"fields"`
}

// UpdateOptions tunes a batch update.
type UpdateOptions struct {
	// SkipHistory writes a live preview that produces no undo entry.
	SkipHistory bool
}

type StoreOption func(*Store)

// WithReleaser sets the hook called once for every removed object that
// carries an AssetURL.
func WithReleaser(r ResourceReleaser) StoreOption {
	return func(s *Store) { s.releaser = r }
}

func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithHistoryLimit caps the undo timeline. Zero keeps every entry.
func WithHistoryLimit(n int) StoreOption {
	return func(s *Store) { s.historyLimit = n }
}

func WithSnap(snap SnapSettings) StoreOption {
	return func(s *Store) { s.snap = snap }
}

// Store is the single writer of the object mapping and the selection. Every
// mutation except live previews is committed through the History.
type Store struct {
	state        document.Snapshot
	history      *History
	historyLimit int
	releaser     ResourceReleaser
	logger       *slog.Logger
	snap         SnapSettings

	// rev changes whenever the live state does, previews included.
	rev uint64

	// focused is the camera "focus selection" mode. The store only clears it;
	// framing the selection is the camera's business.
	focused bool
}

// NewStore creates a store whose history starts at initial.
func NewStore(initial document.Snapshot, opts ...StoreOption) *Store {
	s := &Store{
		historyLimit: DefaultHistoryLimit,
		logger:       slog.Default(),
		snap:         DefaultSnapSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset(initial)
	return s
}

// Reset replaces the whole state and restarts the history from it. Stale
// parent links and unselectable ids are dropped on the way in.
func (s *Store) Reset(initial document.Snapshot) {
	st := initial.Clone()
	for id, obj := range st.Objects {
		if p := obj.Parent(); p != "" {
			if _, ok := st.Objects[p]; !ok || p == id {
				obj.ParentID = nil
				st.Objects[id] = obj
			}
		}
	}
	st.SelectedIDs = selectable(st, st.SelectedIDs)
	s.state = st
	s.focused = false
	s.history = NewHistory(st, s.historyLimit)
	s.rev++
	s.retainAll()
}

// --- Reads ---

// Objects returns the live object mapping. Callers must not mutate it; it is
// replaced wholesale on every commit.
func (s *Store) Objects() map[string]document.SceneObject {
	return s.state.Objects
}

// Object returns the object with the given id.
func (s *Store) Object(id string) (document.SceneObject, bool) {
	obj, ok := s.state.Objects[id]
	return obj, ok
}

// Selection returns a copy of the selected ids in selection order.
func (s *Store) Selection() []string {
	return slices.Clone(s.state.SelectedIDs)
}

// Snapshot returns a deep copy of the live state.
func (s *Store) Snapshot() document.Snapshot {
	return s.state.Clone()
}

func (s *Store) History() *History { return s.history }
func (s *Store) Snap() SnapSettings { return s.snap }
func (s *Store) SetSnap(snap SnapSettings) { s.snap = snap }
func (s *Store) Focused() bool { return s.focused }

// Revision identifies the live state; it changes on every write.
func (s *Store) Revision() uint64 { return s.rev }

// SetFocus toggles the camera focus mode. It cannot be enabled while the
// selection is empty.
func (s *Store) SetFocus(on bool) {
	s.focused = on && len(s.state.SelectedIDs) > 0
}

// --- Commit path ---

// commit clones the live state, lets mutate edit the clone, installs it and
// records it as one history entry.
func (s *Store) commit(action string, mutate func(st *document.Snapshot)) {
	next := s.state.Clone()
	mutate(&next)
	next.SelectedIDs = selectable(next, next.SelectedIDs)
	s.state = next
	s.rev++
	s.history.Push(next)
	if len(next.SelectedIDs) == 0 {
		s.focused = false
	}
	s.logger.Debug("commit", "action", action, "objects", len(next.Objects), "selected", len(next.SelectedIDs), "history", s.history.Index())
}

// Undo restores the previous history entry. It reports false when there is
// nothing to undo.
func (s *Store) Undo() bool {
	st, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.restore(st)
	s.logger.Debug("undo", "history", s.history.Index())
	return true
}

// Redo re-applies the next history entry. It reports false when there is
// nothing to redo.
func (s *Store) Redo() bool {
	st, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.restore(st)
	s.logger.Debug("redo", "history", s.history.Index())
	return true
}

func (s *Store) restore(st document.Snapshot) {
	s.state = st
	s.rev++
	if len(st.SelectedIDs) == 0 {
		s.focused = false
	}
	s.retainAll()
}

func (s *Store) retainAll() {
	r, ok := s.releaser.(ResourceRetainer)
	if !ok {
		return
	}
	for _, obj := range s.state.Objects {
		if obj.AssetURL != "" {
			r.Retain(obj)
		}
	}
}

// --- Selection ---

// selectable filters ids down to existing, unlocked objects, dropping
// duplicates and keeping order.
func selectable(st document.Snapshot, ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		obj, ok := st.Objects[id]
		if !ok || obj.Locked || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Select replaces the selection. Locked or unknown ids are dropped.
func (s *Store) Select(ids []string) {
	next := selectable(s.state, ids)
	if slices.Equal(next, s.state.SelectedIDs) {
		return
	}
	s.commit("select", func(st *document.Snapshot) {
		st.SelectedIDs = next
	})
}

// AddToSelection appends ids that are not selected yet.
func (s *Store) AddToSelection(ids []string) {
	s.Select(append(s.Selection(), ids...))
}

// ToggleSelect adds id to the selection, or removes it when already present.
func (s *Store) ToggleSelect(id string) {
	cur := s.Selection()
	if i := slices.Index(cur, id); i >= 0 {
		s.Select(slices.Delete(cur, i, i+1))
		return
	}
	s.Select(append(cur, id))
}

// ClearSelection empties the selection, which also leaves focus mode.
func (s *Store) ClearSelection() {
	s.Select(nil)
	s.focused = false
}

// --- Create / delete ---

// Add inserts objects and selects the unlocked ones. Missing ids are
// generated; parent links to unknown objects are cleared. It returns the ids
// of the inserted objects.
func (s *Store) Add(objs ...document.SceneObject) []string {
	if len(objs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(objs))
	s.commit("add", func(st *document.Snapshot) {
		for _, obj := range objs {
			if obj.ID == "" {
				obj.ID = typeid.NewObjectID()
			}
			if _, exists := st.Objects[obj.ID]; exists {
				continue
			}
			ids = append(ids, obj.ID)
			st.Objects[obj.ID] = obj
		}
		for _, id := range ids {
			obj := st.Objects[id]
			if p := obj.Parent(); p != "" {
				if _, ok := st.Objects[p]; !ok || p == id {
					obj.ParentID = nil
					st.Objects[id] = obj
				}
			}
		}
		st.SelectedIDs = ids
	})
	return ids
}

// childIndex maps each parent id to its children, sorted for stable order.
func childIndex(objects map[string]document.SceneObject) map[string][]string {
	idx := make(map[string][]string)
	for id, obj := range objects {
		if p := obj.Parent(); p != "" {
			idx[p] = append(idx[p], id)
		}
	}
	for _, children := range idx {
		sort.Strings(children)
	}
	return idx
}

// Descendants returns roots plus every object below them, breadth-first.
// Unknown roots are skipped.
func Descendants(objects map[string]document.SceneObject, roots []string) []string {
	children := childIndex(objects)
	seen := make(map[string]bool)
	var out []string
	queue := make([]string, 0, len(roots))
	for _, id := range roots {
		if _, ok := objects[id]; ok && !seen[id] {
			seen[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		for _, c := range children[id] {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	return out
}

// Delete removes the given objects and all their descendants. Each attached
// resource is released once, and only when no remaining object still points
// at it (duplicates share their source's asset).
func (s *Store) Delete(ids []string) {
	closure := Descendants(s.state.Objects, ids)
	if len(closure) == 0 {
		return
	}
	removed := make([]document.SceneObject, 0, len(closure))
	s.commit("delete", func(st *document.Snapshot) {
		for _, id := range closure {
			removed = append(removed, st.Objects[id])
			delete(st.Objects, id)
		}
	})
	if s.releaser == nil {
		return
	}
	inUse := make(map[string]bool)
	for _, obj := range s.state.Objects {
		if obj.AssetURL != "" {
			inUse[obj.AssetURL] = true
		}
	}
	for _, obj := range removed {
		if obj.AssetURL == "" || inUse[obj.AssetURL] {
			continue
		}
		inUse[obj.AssetURL] = true
		s.releaser.Release(obj)
	}
}

// DeleteSelected deletes the selection and everything below it.
func (s *Store) DeleteSelected() {
	s.Delete(s.Selection())
}

// --- Update ---

// Update applies every patch atomically per id. Unknown ids are ignored and
// transform fields of locked objects are left untouched. It reports whether
// the batch changed anything: a preview is compared with the live state, a
// commit with the last committed state so a drag's final preview still
// produces an entry.
func (s *Store) Update(updates []Update, opts UpdateOptions) bool {
	baseline := s.history.current().Objects
	if opts.SkipHistory {
		baseline = s.state.Objects
	}
	if !changesAny(s.state.Objects, baseline, updates) {
		return false
	}

	apply := func(st *document.Snapshot) {
		for _, u := range updates {
			obj, ok := st.Objects[u.ID]
			if !ok {
				continue
			}
			st.Objects[u.ID] = applyPatch(obj, u.Fields)
		}
	}

	if opts.SkipHistory {
		apply(&s.state)
		s.rev++
		return true
	}
	s.commit("update", apply)
	return true
}

// changesAny reports whether applying updates to live yields an object that
// differs from its counterpart in baseline.
func changesAny(live, baseline map[string]document.SceneObject, updates []Update) bool {
	patched := make(map[string]document.SceneObject)
	for _, u := range updates {
		obj, ok := patched[u.ID]
		if !ok {
			if obj, ok = live[u.ID]; !ok {
				continue
			}
		}
		patched[u.ID] = applyPatch(obj, u.Fields)
	}
	for id, obj := range patched {
		before, ok := baseline[id]
		if !ok || !sameObject(before, obj) {
			return true
		}
	}
	return false
}

func sameObject(a, b document.SceneObject) bool {
	return a.Name == b.Name &&
		a.Visible == b.Visible &&
		a.Locked == b.Locked &&
		a.AssetURL == b.AssetURL &&
		a.Parent() == b.Parent() &&
		a.Position == b.Position &&
		a.Rotation == b.Rotation &&
		a.Scale == b.Scale &&
		bytes.Equal(a.Data, b.Data)
}

func applyPatch(obj document.SceneObject, p ObjectPatch) document.SceneObject {
	if p.Name != nil {
		obj.Name = *p.Name
	}
	if p.Visible != nil {
		obj.Visible = *p.Visible
	}
	if p.AssetURL != nil {
		obj.AssetURL = *p.AssetURL
	}
	if p.Data != nil {
		obj.Data = slices.Clone(p.Data)
	}
	if obj.Locked {
		return obj
	}
	if p.Position != nil {
		obj.Position = *p.Position
	}
	if p.Rotation != nil {
		obj.Rotation = *p.Rotation
	}
	if p.Scale != nil {
		obj.Scale = *p.Scale
	}
	return obj
}

// --- Visibility / lock ---

// ToggleVisibility flips id's visibility and gives every descendant the same
// new value.
func (s *Store) ToggleVisibility(id string) {
	obj, ok := s.state.Objects[id]
	if !ok {
		return
	}
	visible := !obj.Visible
	closure := Descendants(s.state.Objects, []string{id})
	s.commit("visibility", func(st *document.Snapshot) {
		for _, cid := range closure {
			o := st.Objects[cid]
			o.Visible = visible
			st.Objects[cid] = o
		}
	})
}

// ToggleLock flips id's lock and gives every descendant the same new value.
// Objects that become locked leave the selection.
func (s *Store) ToggleLock(id string) {
	obj, ok := s.state.Objects[id]
	if !ok {
		return
	}
	locked := !obj.Locked
	closure := Descendants(s.state.Objects, []string{id})
	s.commit("lock", func(st *document.Snapshot) {
		for _, cid := range closure {
			o := st.Objects[cid]
			o.Locked = locked
			st.Objects[cid] = o
		}
	})
}

// --- Duplicate ---

// selectedRoots returns the unlocked selected ids none of whose ancestors is
// also selected.
func selectedRoots(st document.Snapshot) []string {
	selected := make(map[string]bool, len(st.SelectedIDs))
	for _, id := range st.SelectedIDs {
		selected[id] = true
	}
	var roots []string
	for _, id := range st.SelectedIDs {
		obj, ok := st.Objects[id]
		if !ok || obj.Locked || hasSelectedAncestor(st.Objects, obj, selected) {
			continue
		}
		roots = append(roots, id)
	}
	return roots
}

func hasSelectedAncestor(objects map[string]document.SceneObject, obj document.SceneObject, selected map[string]bool) bool {
	seen := map[string]bool{obj.ID: true}
	for p := obj.Parent(); p != "" && !seen[p]; p = objects[p].Parent() {
		if selected[p] {
			return true
		}
		seen[p] = true
	}
	return false
}

// Duplicate copies every selected root (children are not copied), offsets
// each copy by one translate increment on x and z and selects the copies.
func (s *Store) Duplicate() []string {
	roots := selectedRoots(s.state)
	if len(roots) == 0 {
		return nil
	}
	step := s.snap.Translate
	ids := make([]string, 0, len(roots))
	s.commit("duplicate", func(st *document.Snapshot) {
		for _, id := range roots {
			obj := st.Objects[id]
			obj.ID = typeid.NewObjectID()
			if obj.ParentID != nil {
				parent := *obj.ParentID
				obj.ParentID = &parent
			}
			obj.Data = slices.Clone(obj.Data)
			obj.Position = obj.Position.Add(mgl64.Vec3{step, 0, step})
			st.Objects[obj.ID] = obj
			ids = append(ids, obj.ID)
		}
		st.SelectedIDs = ids
	})
	return ids
}
