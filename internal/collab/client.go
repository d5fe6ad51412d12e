package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	// Operations carry whole objects on add, so the limit is well above a
	// presence update.
	readLimit  = 256 * 1024
	sendBuffer = 256
)

// Client is one websocket connection joined to a project room. The hub owns
// the send channel and closes it when the client leaves.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	UserID      string
	DisplayName string
	ProjectID   string
	ClientID    string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, projectID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		UserID:      userID,
		DisplayName: displayName,
		ProjectID:   projectID,
		ClientID:    clientID,
	}
}

// stamp overwrites the identity fields of an inbound message; clients
// cannot speak for another user or room.
func (c *Client) stamp(msg *Message) {
	msg.UserID = c.UserID
	msg.ClientID = c.ClientID
	msg.ProjectID = c.ProjectID
}

// ReadPump decodes inbound messages until the connection drops or the peer
// sends something that is not a Message, then unregisters the client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(readLimit)

	for {
		var msg Message
		err := wsjson.Read(ctx, c.conn, &msg)
		switch {
		case err == nil:
			c.stamp(&msg)
			c.hub.handleMessage(c, &msg)
		case closedNormally(err):
			return
		case isDecodeError(err):
			// wsjson has already closed the connection with
			// StatusInvalidFramePayloadData.
			slog.Warn("invalid message", "error", err, "user", c.UserID)
			return
		default:
			slog.Debug("read error", "error", err, "user", c.UserID)
			return
		}
	}
}

// WritePump drains the send channel onto the connection and pings the peer
// so idle proxies keep the socket open.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, data); err != nil {
				slog.Debug("write error", "error", err, "user", c.UserID)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// Send queues msg for the write pump. A slow client loses messages rather
// than stalling the hub; the next doc.sync brings it back in line.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err, "type", msg.Type)
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "user", c.UserID, "type", msg.Type)
	}
}

func closedNormally(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
