package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
)

func TestClientStamp(t *testing.T) {
	c := NewClient(nil, nil, "u1", "Alice", "proj_a", "c1")
	msg := Message{Type: TypePresenceUpdate, UserID: "someone-else", ProjectID: "proj_b"}
	c.stamp(&msg)

	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, "c1", msg.ClientID)
	assert.Equal(t, "proj_a", msg.ProjectID)
}

func TestClientSendDropsWhenFull(t *testing.T) {
	c := NewClient(nil, nil, "u1", "Alice", "proj_a", "c1")
	for i := 0; i < sendBuffer+10; i++ {
		c.Send(&Message{Type: TypeWelcome})
	}
	assert.Len(t, c.send, sendBuffer)

	var msg Message
	assert.NoError(t, json.Unmarshal(<-c.send, &msg))
	assert.Equal(t, TypeWelcome, msg.Type)
}

func TestReadErrorClassification(t *testing.T) {
	var target Message
	decodeErr := fmt.Errorf("failed to read JSON message: %w", json.Unmarshal([]byte("{"), &target))
	typeErr := fmt.Errorf("wrapped: %w", json.Unmarshal([]byte(`{"type":1}`), &target))

	assert.True(t, isDecodeError(decodeErr))
	assert.True(t, isDecodeError(typeErr))
	assert.False(t, isDecodeError(errors.New("connection reset")))

	assert.True(t, closedNormally(websocket.CloseError{Code: websocket.StatusGoingAway}))
	assert.False(t, closedNormally(websocket.CloseError{Code: websocket.StatusPolicyViolation}))
	assert.False(t, closedNormally(errors.New("eof")))
}
