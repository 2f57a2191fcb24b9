package realtime

import (
	"encoding/json"
	"errors"
)

var errMissingRoom = errors.New("roomId is required")

// handleCinemaJoin adds the caller to a watch party room, creating it on
// first join. Existing members get a membership notice; the joiner does not.
func (h *Handler) handleCinemaJoin(cl *Client, event *Event) error {
	var payload CinemaJoinPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.RoomID == "" {
		return errMissingRoom
	}

	notice, err := NewEvent(EventCinemaUserJoined, CinemaUserJoinedPayload{
		UserID:   cl.UserID,
		Username: cl.Username,
	})
	if err != nil {
		return err
	}

	h.hub.ops <- joinOp{client: cl, roomID: payload.RoomID, notice: notice}
	return nil
}

// handleCinemaAction relays a play/pause/seek to everyone else in the room.
// The sender identity is stamped on so receivers can discard their own echo.
// Host authority is a client contract; the relay does not verify it.
func (h *Handler) handleCinemaAction(cl *Client, event *Event) error {
	var payload CinemaActionPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.RoomID == "" {
		return errMissingRoom
	}
	switch payload.Type {
	case "play", "pause", "seek":
	default:
		return errors.New("unknown action type")
	}

	payload.SenderID = cl.UserID
	relayed, err := NewEvent(EventCinemaAction, payload)
	if err != nil {
		return err
	}

	h.hub.ops <- broadcastOp{roomID: payload.RoomID, event: relayed, skip: cl}
	return nil
}

func (h *Handler) handleCinemaHeartbeat(cl *Client, event *Event) error {
	var payload CinemaHeartbeatPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.RoomID == "" {
		return errMissingRoom
	}

	payload.SenderID = cl.UserID
	relayed, err := NewEvent(EventCinemaHeartbeat, payload)
	if err != nil {
		return err
	}

	h.hub.ops <- broadcastOp{roomID: payload.RoomID, event: relayed, skip: cl}
	return nil
}

// handleCinemaRequestSync is the late joiner half of the resync protocol: the
// request goes to the whole room, the host answers with a directed
// sync_state. The server never needs to know who the host is.
func (h *Handler) handleCinemaRequestSync(cl *Client, event *Event) error {
	var payload CinemaRequestSyncPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.RoomID == "" {
		return errMissingRoom
	}

	payload.SenderID = cl.UserID
	relayed, err := NewEvent(EventCinemaRequestSync, payload)
	if err != nil {
		return err
	}

	h.hub.ops <- broadcastOp{roomID: payload.RoomID, event: relayed, skip: cl}
	return nil
}

func (h *Handler) handleCinemaSyncState(cl *Client, event *Event) error {
	var payload CinemaSyncStatePayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.To == "" {
		return errors.New("sync target is required")
	}

	target := payload.To
	payload.To = ""
	directed, err := NewEvent(EventCinemaSyncState, payload)
	if err != nil {
		return err
	}

	h.hub.ops <- broadcastOp{roomID: IdentityRoom(target), event: directed}
	return nil
}

// handleCinemaMessage is room chat. Unlike playback actions the sender gets
// the echo back, so every member renders the same transcript.
func (h *Handler) handleCinemaMessage(cl *Client, event *Event) error {
	var payload CinemaMessagePayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.RoomID == "" {
		return errMissingRoom
	}

	payload.SenderID = cl.UserID
	payload.Username = cl.Username
	payload.Timestamp = h.now().Unix()
	relayed, err := NewEvent(EventCinemaMessage, payload)
	if err != nil {
		return err
	}

	h.hub.ops <- broadcastOp{roomID: payload.RoomID, event: relayed}
	return nil
}
