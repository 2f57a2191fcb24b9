package realtime

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"social-realtime-backend/internal/dto"
	internaljwt "social-realtime-backend/internal/jwt"
	messageservice "social-realtime-backend/internal/service/message"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MessageStore is the durable message collaborator. The relay never touches
// storage apart from these two calls.
type MessageStore interface {
	SendMessage(ctx context.Context, senderID string, req dto.SendMessageRequest) (dto.MessageRecord, error)
	MarkRead(ctx context.Context, readerID string, req dto.MarkReadRequest) (messageservice.MarkReadResult, error)
}

type Authenticator func(token string) (internaljwt.Identity, error)

type Handler struct {
	hub          *Hub
	store        MessageStore
	authenticate Authenticator
	now          func() time.Time
}

func NewHandler(hub *Hub, store MessageStore) *Handler {
	return &Handler{
		hub:   hub,
		store: store,
		authenticate: func(token string) (internaljwt.Identity, error) {
			return internaljwt.ParseIdentity(token, internaljwt.RoleUser)
		},
		now: time.Now,
	}
}

// ServeWS authenticates the handshake and upgrades the connection. A bad or
// missing token is terminal: the connection never reaches the registry.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) error {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil
	}

	identity, err := h.authenticate(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil // Upgrade already wrote the response
	}

	cl := newClient(conn, identity.UserID, identity.Username)

	online, err := NewEvent(EventUserStatusChange, StatusChangePayload{
		UserID:   cl.UserID,
		IsOnline: true,
	})
	if err != nil {
		conn.Close()
		return err
	}
	h.hub.ops <- registerOp{client: cl, notice: online}

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h)
	return nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (h *Handler) unregister(cl *Client) {
	offline, err := NewEvent(EventUserStatusChange, StatusChangePayload{
		UserID:     cl.UserID,
		IsOnline:   false,
		LastActive: h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		offline = nil
	}
	h.hub.ops <- unregisterOp{client: cl, notice: offline}
}

func (h *Handler) sendError(cl *Client, message string) {
	event, err := NewEvent(EventError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	h.hub.ops <- deliverOp{client: cl, event: event}
}

// handleEvent routes one inbound event. Runs on the connection's read
// goroutine, so per-sender ordering is preserved end to end. A bad payload
// drops only this event, never the loop.
func (h *Handler) handleEvent(cl *Client, event *Event) {
	var err error
	switch event.Name {
	case EventCinemaJoin:
		err = h.handleCinemaJoin(cl, event)
	case EventCinemaAction:
		err = h.handleCinemaAction(cl, event)
	case EventCinemaHeartbeat:
		err = h.handleCinemaHeartbeat(cl, event)
	case EventCinemaRequestSync:
		err = h.handleCinemaRequestSync(cl, event)
	case EventCinemaSyncState:
		err = h.handleCinemaSyncState(cl, event)
	case EventCinemaMessage:
		err = h.handleCinemaMessage(cl, event)
	case EventVoiceJoin:
		err = h.handleVoiceJoin(cl, event)
	case EventVoiceOffer, EventVoiceAnswer, EventVoiceICECandidate,
		EventCallInvite, EventCallAnswer, EventCallICECandidate,
		EventCallEnd, EventCallReject:
		err = h.handleDirectedSignal(cl, event)
	case EventSendMessage:
		err = h.handleSendMessage(cl, event)
	case EventMarkRead:
		err = h.handleMarkRead(cl, event)
	default:
		log.Printf("Unknown event %q from client %s", event.Name, cl.UserID)
		h.sendError(cl, "unknown event")
		return
	}

	if err != nil {
		h.sendError(cl, err.Error())
	}
}
