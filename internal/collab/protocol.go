package collab

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/inamate/sculpt/internal/document"
	"github.com/inamate/sculpt/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos    `json:"cursor,omitempty"`
	Hover       *mgl64.Vec3   `json:"hover,omitempty"` // world point under the pointer
	Selection   []string      `json:"selection,omitempty"`
	Drag        *DragPresence `json:"drag,omitempty"`
	DisplayName string        `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DragPresence tells other users which handle someone is holding.
type DragPresence struct {
	Mode engine.Mode `json:"mode"`
	Axis engine.Axis `json:"axis"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	UserID    string `json:"userId"`
	ServerSeq int64  `json:"serverSeq"`
}

// DocSyncPayload carries the full authoritative state after a change.
type DocSyncPayload struct {
	Document  *document.Document `json:"document"`
	ServerSeq int64              `json:"serverSeq"`
	CanUndo   bool               `json:"canUndo"`
	CanRedo   bool               `json:"canRedo"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync = "doc.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// Operation types accepted in op.submit.
const (
	OpObjectAdd         = "object.add"
	OpObjectsDelete     = "objects.delete"
	OpObjectsUpdate     = "objects.update"
	OpObjectsDuplicate  = "objects.duplicate"
	OpSelectionSet      = "selection.set"
	OpSelectionToggle   = "selection.toggle"
	OpObjectVisibility  = "object.visibility"
	OpObjectLocked      = "object.locked"
	OpObjectsGroup      = "objects.group"
	OpObjectsUngroup    = "objects.ungroup"
	OpObjectsAlign      = "objects.align"
	OpObjectsDistribute = "objects.distribute"
	OpObjectsMirror     = "objects.mirror"
	OpHistoryUndo       = "history.undo"
	OpHistoryRedo       = "history.redo"
)

// --- Operation Types ---

// Operation represents a document mutation
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`

	// For object.visibility, object.locked, selection.toggle
	ObjectID string `json:"objectId,omitempty"`

	// For objects.delete, selection.set
	ObjectIDs []string `json:"objectIds,omitempty"`

	// For object.add
	Objects []document.SceneObject `json:"objects,omitempty"`

	// For objects.update (always committed; live drags stay client side)
	Updates []engine.Update `json:"updates,omitempty"`

	// For object.visibility / object.locked: the desired value
	Visible *bool `json:"visible,omitempty"`
	Locked  *bool `json:"locked,omitempty"`

	// For objects.align / objects.distribute / objects.mirror
	Axis engine.Axis `json:"axis,omitempty"`
	Edge engine.Edge `json:"edge,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string   `json:"operationId"`
	ServerSeq       int64    `json:"serverSeq"`
	ServerTimestamp int64    `json:"serverTimestamp"`
	CreatedIDs      []string `json:"createdIds,omitempty"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}
