package collab

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/inamate/sculpt/internal/document"
	"github.com/inamate/sculpt/internal/engine"
)

var (
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrObjectNotFound   = errors.New("object not found")
	// ErrNoEffect reports an operation whose preconditions were not met
	// (too few objects, nothing to undo...). The state is unchanged.
	ErrNoEffect = errors.New("operation had no effect")
)

// DocumentState holds the authoritative document state for a room
type DocumentState struct {
	mu        sync.RWMutex
	eng       *engine.Engine
	serverSeq int64
	dirty     bool
	opLog     []Operation // applied since the last save
}

// NewDocumentState creates a new document state from an initial document
func NewDocumentState(doc *document.Document, opts ...engine.StoreOption) *DocumentState {
	eng := engine.NewEngine(opts...)
	eng.SetDocument(doc)
	return &DocumentState{
		eng:   eng,
		opLog: make([]Operation, 0),
	}
}

// GetDocument returns a copy of the current document
func (ds *DocumentState) GetDocument() *document.Document {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.eng.Document()
}

// SyncPayload returns the full state for a doc.sync message.
func (ds *DocumentState) SyncPayload() DocSyncPayload {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	h := ds.eng.Store().History()
	return DocSyncPayload{
		Document:  ds.eng.Document(),
		ServerSeq: ds.serverSeq,
		CanUndo:   h.CanUndo(),
		CanRedo:   h.CanRedo(),
	}
}

// Exists reports whether the document holds an object with id.
func (ds *DocumentState) Exists(id string) bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	_, ok := ds.eng.Store().Object(id)
	return ok
}

func (ds *DocumentState) ServerSeq() int64 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.serverSeq
}

// TakeDirty returns the document when it changed since the last call, and
// clears the flag.
func (ds *DocumentState) TakeDirty() (*document.Document, []Operation, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if !ds.dirty {
		return nil, nil, false
	}
	ops := ds.opLog
	ds.dirty = false
	ds.opLog = make([]Operation, 0)
	return ds.eng.Document(), ops, true
}

// ApplyOperation applies an operation to the document and returns the server
// sequence plus the ids of any objects it created.
func (ds *DocumentState) ApplyOperation(op Operation) (int64, []string, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	created, err := ds.applyOperationLocked(op)
	if err != nil {
		return 0, nil, err
	}

	ds.serverSeq++
	ds.dirty = true
	ds.opLog = append(ds.opLog, op)

	return ds.serverSeq, created, nil
}

// applyOperationLocked applies the operation without locking (caller must hold lock)
func (ds *DocumentState) applyOperationLocked(op Operation) ([]string, error) {
	s := ds.eng.Store()
	switch op.Type {
	case OpObjectAdd:
		return nonEmpty(s.Add(op.Objects...))
	case OpObjectsDelete:
		if !anyExists(s, op.ObjectIDs) {
			return nil, fmt.Errorf("%w: %v", ErrObjectNotFound, op.ObjectIDs)
		}
		s.Delete(op.ObjectIDs)
		return nil, nil
	case OpObjectsUpdate:
		return nil, check(s.Update(op.Updates, engine.UpdateOptions{}))
	case OpObjectsDuplicate:
		return nonEmpty(s.Duplicate())
	case OpSelectionSet:
		s.Select(op.ObjectIDs)
		return nil, nil
	case OpSelectionToggle:
		s.ToggleSelect(op.ObjectID)
		return nil, nil
	case OpObjectVisibility:
		return nil, ds.applyToggle(op, op.Visible, func(o document.SceneObject) bool { return o.Visible }, s.ToggleVisibility)
	case OpObjectLocked:
		return nil, ds.applyToggle(op, op.Locked, func(o document.SceneObject) bool { return o.Locked }, s.ToggleLock)
	case OpObjectsGroup:
		id, ok := s.Group()
		if !ok {
			return nil, ErrNoEffect
		}
		return []string{id}, nil
	case OpObjectsUngroup:
		if len(s.Ungroup()) == 0 {
			return nil, ErrNoEffect
		}
		return nil, nil
	case OpObjectsAlign:
		return nil, check(s.Align(op.Axis, op.Edge))
	case OpObjectsDistribute:
		return nil, check(s.Distribute(op.Axis))
	case OpObjectsMirror:
		return nil, check(s.Mirror(op.Axis))
	case OpHistoryUndo:
		return nil, check(s.Undo())
	case OpHistoryRedo:
		return nil, check(s.Redo())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

// applyToggle drives a cascading toggle towards the requested value. A nil
// value toggles unconditionally.
func (ds *DocumentState) applyToggle(op Operation, want *bool, current func(document.SceneObject) bool, toggle func(id string)) error {
	obj, ok := ds.eng.Store().Object(op.ObjectID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, op.ObjectID)
	}
	if want != nil && current(obj) == *want {
		return nil
	}
	toggle(op.ObjectID)
	return nil
}

func anyExists(s *engine.Store, ids []string) bool {
	for _, id := range ids {
		if _, ok := s.Object(id); ok {
			return true
		}
	}
	return false
}

func check(ok bool) error {
	if !ok {
		return ErrNoEffect
	}
	return nil
}

func nonEmpty(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, ErrNoEffect
	}
	return ids, nil
}

// GetServerTimestamp returns the current server timestamp
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
