package session

import (
	"encoding/json"

	"github.com/Danveyd/NewCatroid/internal/geom"
	"github.com/Danveyd/NewCatroid/internal/scene"
)

type Message struct {
	Type     string          `json:"type"`
	SceneID  string          `json:"sceneId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// PresencePayload is one user's activity on the stage. Pointer is in stage
// coordinates. Hover is filled in by the server with the sprite under the
// pointer. Held names the sprite the user is dragging; one user at a time.
type PresencePayload struct {
	Pointer     *geom.Point2 `json:"pointer,omitempty"`
	Hover       string       `json:"hover,omitempty"`
	Held        string       `json:"held,omitempty"`
	DisplayName string       `json:"displayName,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"

	// Collision sensing
	TypeSceneTick      = "scene.tick"
	TypeCollisionPairs = "collision.pairs"
)

// WelcomePayload carries the room's current scene to a new client.
type WelcomePayload struct {
	ClientID  string       `json:"clientId"`
	ServerSeq int64        `json:"serverSeq"`
	Scene     *scene.Scene `json:"scene"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation scene.Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	ServerSeq       int64  `json:"serverSeq"`
	Revision        uint64 `json:"revision"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation scene.Operation `json:"operation"`
	UserID    string          `json:"userId"`
	ServerSeq int64           `json:"serverSeq"`
}

// TickPayload optionally carries touch points to test against every
// visible sprite.
type TickPayload struct {
	Touches []geom.Point2 `json:"touches,omitempty"`
	Radius  float32       `json:"radius,omitempty"`
}

// CollisionPayload is the sensor state of a scene revision.
type CollisionPayload struct {
	Revision uint64             `json:"revision"`
	Pairs    []scene.SpritePair `json:"pairs"`
	Edge     []string           `json:"edge"`
	Touched  []string           `json:"touched,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(msgType string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data = json.RawMessage(`null`)
	}
	return &Message{Type: msgType, Payload: data}
}
