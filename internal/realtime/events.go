package realtime

import (
	"encoding/json"
	"fmt"
)

// Event names carried over the socket. Cinema events are scoped to watch
// party rooms, voice events to in-room audio, call events to 1:1 calls.
const (
	EventUserStatusChange = "user_status_change"

	EventCinemaJoin        = "cinema:join"
	EventCinemaUserJoined  = "cinema:user-joined"
	EventCinemaAction      = "cinema:action"
	EventCinemaHeartbeat   = "cinema:heartbeat"
	EventCinemaRequestSync = "cinema:request_sync"
	EventCinemaSyncState   = "cinema:sync_state"
	EventCinemaMessage     = "cinema:message"

	EventVoiceJoin         = "voice:join"
	EventVoiceOffer        = "voice:offer"
	EventVoiceAnswer       = "voice:answer"
	EventVoiceICECandidate = "voice:ice-candidate"

	EventCallInvite       = "call:invite"
	EventCallAnswer       = "call:answer"
	EventCallICECandidate = "call:ice-candidate"
	EventCallEnd          = "call:end"
	EventCallReject       = "call:reject"

	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventMarkRead       = "mark_read"
	EventMessagesRead   = "messages_read"
	EventMessageDeleted = "message_deleted"

	EventError = "error"
)

// Event is the wire envelope. Data stays raw so signaling payloads (SDP, ICE)
// pass through the server untouched.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewEvent(name string, payload interface{}) (*Event, error) {
	if payload == nil {
		return &Event{Name: name}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("realtime: marshal %s payload: %w", name, err)
	}
	return &Event{Name: name, Data: data}, nil
}

type StatusChangePayload struct {
	UserID     string `json:"userId"`
	IsOnline   bool   `json:"isOnline"`
	LastActive string `json:"lastActive,omitempty"`
}

type CinemaJoinPayload struct {
	RoomID string `json:"roomId"`
}

type CinemaUserJoinedPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type CinemaActionPayload struct {
	Type        string  `json:"type"`
	CurrentTime float64 `json:"currentTime"`
	RoomID      string  `json:"roomId"`
	SenderID    string  `json:"senderId,omitempty"`
}

type CinemaHeartbeatPayload struct {
	RoomID      string  `json:"roomId"`
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
	SenderID    string  `json:"senderId,omitempty"`
}

type CinemaRequestSyncPayload struct {
	RoomID   string `json:"roomId"`
	SenderID string `json:"senderId,omitempty"`
}

type CinemaSyncStatePayload struct {
	To          string  `json:"to,omitempty"`
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
}

type CinemaMessagePayload struct {
	RoomID    string `json:"roomId"`
	Text      string `json:"text"`
	SenderID  string `json:"senderId,omitempty"`
	Username  string `json:"username,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// attachField sets a single string field on an otherwise opaque JSON object.
// Used to stamp the sender identity onto relayed signaling payloads.
func attachField(data json.RawMessage, key, value string) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("realtime: payload is not an object: %w", err)
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	fields[key] = raw
	return json.Marshal(fields)
}
