package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/sunmoon/internal/entity"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	SessionID string           `json:"session_id,omitempty"`
	Cell      *int             `json:"cell,omitempty"`
	Full      bool             `json:"full,omitempty"`
	Snapshot  *entity.Snapshot `json:"snapshot,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func (that *connection) sendMessage(action string, payload Payload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	responseBytes, err := json.Marshal(Message{
		Action:  action,
		Payload: payloadBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err = that.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err = that.ws.WriteMessage(websocket.TextMessage, responseBytes); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *connection) sendSnapshot(action string, snapshot entity.Snapshot) error {
	return that.sendMessage(action, Payload{SessionID: snapshot.ID, Snapshot: &snapshot})
}

func (that *connection) sendErrorResponse(action, errorMsg string) error {
	if err := that.sendMessage(action, Payload{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}
