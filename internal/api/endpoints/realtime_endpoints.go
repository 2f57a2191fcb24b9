package endpoints

import (
	"net/http"

	"social-realtime-backend/internal/realtime"
)

type RealtimeEndpoints interface {
	Websocket(http.ResponseWriter, *http.Request) error
	Rooms(http.ResponseWriter, *http.Request) error
}

type realtimeEndpoints struct {
	handler *realtime.Handler
	hub     *realtime.Hub
}

func NewRealtimeEndpoints(handler *realtime.Handler, hub *realtime.Hub) RealtimeEndpoints {
	return &realtimeEndpoints{
		handler: handler,
		hub:     hub,
	}
}

func (h *realtimeEndpoints) Websocket(w http.ResponseWriter, r *http.Request) error {
	return h.handler.ServeWS(w, r)
}

// Rooms lists the active watch party rooms, for operational visibility.
func (h *realtimeEndpoints) Rooms(w http.ResponseWriter, r *http.Request) error {
	return WriteJSON(w, http.StatusOK, h.hub.Rooms())
}
