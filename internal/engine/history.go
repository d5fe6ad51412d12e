package engine

import "github.com/inamate/sculpt/internal/document"

// DefaultHistoryLimit bounds the number of retained entries.
const DefaultHistoryLimit = 100

// History is a linear undo timeline of immutable snapshots. Entry 0 is the
// state the timeline started from; index points at the entry matching the
// live state.
type History struct {
	entries []document.Snapshot
	index   int
	limit   int
}

// NewHistory starts a timeline at initial. A limit <= 0 keeps every entry.
func NewHistory(initial document.Snapshot, limit int) *History {
	return &History{
		entries: []document.Snapshot{initial.Clone()},
		index:   0,
		limit:   limit,
	}
}

// Push discards every entry after the current index, appends s and makes it
// current.
func (h *History) Push(s document.Snapshot) {
	h.entries = append(h.entries[:h.index+1], s.Clone())
	h.index = len(h.entries) - 1

	if h.limit > 0 && len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append([]document.Snapshot(nil), h.entries[drop:]...)
		h.index -= drop
	}
}

// Undo steps back one entry. It reports false at the start of the timeline.
func (h *History) Undo() (document.Snapshot, bool) {
	if !h.CanUndo() {
		return document.Snapshot{}, false
	}
	h.index--
	return h.entries[h.index].Clone(), true
}

// Redo steps forward one entry. It reports false at the end of the timeline.
func (h *History) Redo() (document.Snapshot, bool) {
	if !h.CanRedo() {
		return document.Snapshot{}, false
	}
	h.index++
	return h.entries[h.index].Clone(), true
}

func (h *History) CanUndo() bool { return h.index > 0 }
func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }

// current returns the entry matching the last committed state. It is shared
// with the timeline and must not be mutated.
func (h *History) current() document.Snapshot { return h.entries[h.index] }

// Len returns the number of retained entries.
func (h *History) Len() int { return len(h.entries) }

// Index returns the position of the current entry.
func (h *History) Index() int { return h.index }
