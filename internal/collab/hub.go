package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/sculpt/internal/document"
	"github.com/inamate/sculpt/internal/engine"
	"github.com/inamate/sculpt/internal/typeid"
)

const persistTimeout = 10 * time.Second

// DocumentLoader fetches the latest persisted document of a project. It
// returns (nil, nil) when the project has nothing saved yet.
type DocumentLoader func(ctx context.Context, projectID string) (*document.Document, error)

// DocumentSaver persists a room's document.
type DocumentSaver func(ctx context.Context, projectID string, doc *document.Document) error

type Room struct {
	projectID string
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager
	state     *DocumentState
}

func NewRoom(projectID string, state *DocumentState) *Room {
	return &Room{
		projectID: projectID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		state:     state,
	}
}

type HubOption func(*Hub)

func WithLoader(l DocumentLoader) HubOption {
	return func(h *Hub) { h.loader = l }
}

func WithSaver(s DocumentSaver) HubOption {
	return func(h *Hub) { h.saver = s }
}

// WithEngineOptions configures the engine of every room.
func WithEngineOptions(opts ...engine.StoreOption) HubOption {
	return func(h *Hub) { h.engineOpts = append(h.engineOpts, opts...) }
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // projectID -> room
	register   chan *Client
	unregister chan *Client

	loader     DocumentLoader
	saver      DocumentSaver
	engineOpts []engine.StoreOption
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run serves registrations until ctx is done, then saves every room.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			h.saveAll()
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// loadState builds the document state of a new room.
func (h *Hub) loadState(projectID string) *DocumentState {
	var doc *document.Document
	if h.loader != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		loaded, err := h.loader(ctx, projectID)
		if err != nil {
			slog.Error("load document", "project", projectID, "error", err)
		}
		doc = loaded
	}
	if doc == nil {
		doc = document.NewEmptyDocument(projectID, "Untitled")
	}
	return NewDocumentState(doc, h.engineOpts...)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		room = NewRoom(client.ProjectID, h.loadState(client.ProjectID))
		h.rooms[client.ProjectID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	welcome, _ := json.Marshal(WelcomePayload{
		ClientID:  client.ClientID,
		UserID:    client.UserID,
		ServerSeq: room.state.ServerSeq(),
	})
	client.Send(&Message{Type: TypeWelcome, ProjectID: client.ProjectID, Payload: welcome})
	client.Send(h.syncMessage(room))

	// Send current presence state to new client
	stateMsg := room.presence.StateMessage()
	if stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg := &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}
	h.broadcastToRoom(client.ProjectID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)
	room.presence.Remove(client.UserID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.ProjectID)
	}
	h.mu.Unlock()

	if empty {
		h.saveRoom(room)
	}

	// Broadcast leave to remaining clients
	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		UserID: client.UserID,
	})
	leaveMsg := &Message{
		Type:    TypePresenceLeave,
		UserID:  client.UserID,
		Payload: leavePayload,
	}
	h.broadcastToRoom(client.ProjectID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) saveRoom(room *Room) {
	if h.saver == nil {
		return
	}
	doc, ops, ok := room.state.TakeDirty()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := h.saver(ctx, room.projectID, doc); err != nil {
		slog.Error("save document", "project", room.projectID, "error", err)
		return
	}
	slog.Info("document saved", "project", room.projectID, "ops", len(ops))
}

func (h *Hub) saveAll() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.saveRoom(r)
	}
}

func (h *Hub) room(projectID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[projectID]
	return room, ok
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName

	room, ok := h.room(sender.ProjectID)
	if !ok {
		return
	}

	room.presence.Update(sender.UserID, &presence)

	// Broadcast to other clients in room
	outPayload, _ := json.Marshal(presence)
	outMsg := &Message{
		Type:    TypePresenceUpdate,
		UserID:  sender.UserID,
		Payload: outPayload,
	}
	h.broadcastToRoom(sender.ProjectID, outMsg, sender.ClientID)
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid op payload", "error", err, "user", sender.UserID)
		h.sendNack(sender, "", "invalid payload")
		return
	}
	op := submit.Operation
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}

	room, ok := h.room(sender.ProjectID)
	if !ok {
		return
	}

	seq, created, err := room.state.ApplyOperation(op)
	if err != nil {
		slog.Debug("op rejected", "op", op.Type, "user", sender.UserID, "error", err)
		h.sendNack(sender, op.ID, err.Error())
		return
	}

	ack, _ := json.Marshal(OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: GetServerTimestamp(),
		CreatedIDs:      created,
	})
	sender.Send(&Message{Type: TypeOpAck, Seq: seq, Payload: ack})

	broadcast, _ := json.Marshal(OperationBroadcastPayload{Operation: op, UserID: sender.UserID, ServerSeq: seq})
	h.broadcastToRoom(sender.ProjectID, &Message{Type: TypeOpBroadcast, UserID: sender.UserID, Seq: seq, Payload: broadcast}, sender.ClientID)

	room.presence.PruneSelections(room.state.Exists)
	h.broadcastToRoom(sender.ProjectID, h.syncMessage(room), "")
}

func (h *Hub) sendNack(c *Client, opID, reason string) {
	payload, _ := json.Marshal(OperationNackPayload{OperationID: opID, Reason: reason})
	c.Send(&Message{Type: TypeOpNack, Payload: payload})
}

func (h *Hub) syncMessage(room *Room) *Message {
	p := room.state.SyncPayload()
	payload, _ := json.Marshal(p)
	return &Message{Type: TypeDocSync, ProjectID: room.projectID, Seq: p.ServerSeq, Payload: payload}
}

func (h *Hub) broadcastToRoom(projectID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[projectID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
