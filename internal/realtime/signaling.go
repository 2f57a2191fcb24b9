package realtime

import (
	"encoding/json"
	"errors"
)

// The signaling relay is pure store-and-forward. SDP offers, answers and ICE
// candidates are opaque payloads; the server only reads the routing fields
// and stamps the sender on before forwarding.

type directedPayload struct {
	To string `json:"to"`
}

// handleVoiceJoin announces a newcomer to the room's voice mesh. Existing
// members respond with directed voice:offer events.
func (h *Handler) handleVoiceJoin(cl *Client, event *Event) error {
	var payload CinemaJoinPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.RoomID == "" {
		return errMissingRoom
	}

	data, err := attachField(event.Data, "from", cl.UserID)
	if err != nil {
		return err
	}
	if data, err = attachField(data, "username", cl.Username); err != nil {
		return err
	}

	h.hub.ops <- broadcastOp{
		roomID: payload.RoomID,
		event:  &Event{Name: event.Name, Data: data},
		skip:   cl,
	}
	return nil
}

// handleDirectedSignal forwards any targeted signaling event (voice offers
// and answers, ICE candidates, call invites and teardowns) verbatim to the
// target identity's self-addressed room.
func (h *Handler) handleDirectedSignal(cl *Client, event *Event) error {
	var routing directedPayload
	if err := json.Unmarshal(event.Data, &routing); err != nil || routing.To == "" {
		return errors.New("signal target is required")
	}

	data, err := attachField(event.Data, "from", cl.UserID)
	if err != nil {
		return err
	}
	if event.Name == EventCallInvite {
		if data, err = attachField(data, "fromUsername", cl.Username); err != nil {
			return err
		}
	}

	h.hub.ops <- broadcastOp{
		roomID: IdentityRoom(routing.To),
		event:  &Event{Name: event.Name, Data: data},
	}
	return nil
}
