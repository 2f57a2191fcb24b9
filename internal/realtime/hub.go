package realtime

import (
	"log"
)

// The hub owns every room and connection. All mutations and broadcasts go
// through one ops channel consumed by a single goroutine, which gives the
// protocol its FIFO-per-sender ordering and keeps room state race free
// without locks.
type Hub struct {
	ops   chan hubOp
	rooms map[string]*Room
	conns map[*Client]bool
}

type hubOp interface{}

type registerOp struct {
	client *Client
	notice *Event // presence online, delivered to every other connection
}

type unregisterOp struct {
	client *Client
	notice *Event // presence offline
}

type joinOp struct {
	client *Client
	roomID string
	notice *Event // membership notice for existing members, may be nil
}

type broadcastOp struct {
	roomID string
	event  *Event
	skip   *Client // connection excluded from delivery, usually the sender
}

type deliverOp struct {
	client *Client
	event  *Event
}

type roomsOp struct {
	reply chan []RoomInfo
}

func NewHub() *Hub {
	return &Hub{
		ops:   make(chan hubOp, 256),
		rooms: make(map[string]*Room),
		conns: make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for op := range h.ops {
		switch op := op.(type) {
		case registerOp:
			h.register(op)
		case unregisterOp:
			h.unregister(op)
		case joinOp:
			h.join(op)
		case broadcastOp:
			h.broadcastRoom(op.roomID, op.event, op.skip)
		case deliverOp:
			if h.conns[op.client] {
				h.send(op.client, op.event)
			}
		case roomsOp:
			op.reply <- h.snapshotRooms()
		}
	}
}

func (h *Hub) register(op registerOp) {
	h.conns[op.client] = true
	incConnections()

	// Implicit self-addressed room so "send to user X" is a room broadcast.
	h.addToRoom(op.client, IdentityRoom(op.client.UserID), op.client.UserID)

	if op.notice != nil {
		h.broadcastAll(op.notice, op.client)
	}
	setRooms(len(h.rooms))
}

func (h *Hub) unregister(op unregisterOp) {
	if !h.conns[op.client] {
		// Force-dropped for slow consumption. The offline notice still goes
		// out exactly once, from here, when the read pump winds down.
		if op.client.dropped && op.notice != nil {
			op.client.dropped = false
			h.broadcastAll(op.notice, op.client)
		}
		return
	}
	delete(h.conns, op.client)
	decConnections()

	for roomID := range op.client.rooms {
		h.removeFromRoom(op.client, roomID)
	}
	close(op.client.send)

	if op.notice != nil {
		h.broadcastAll(op.notice, op.client)
	}
	setRooms(len(h.rooms))
}

func (h *Hub) join(op joinOp) {
	if !h.conns[op.client] {
		return
	}
	if op.notice != nil {
		if room, ok := h.rooms[op.roomID]; ok {
			for client := range room.Clients {
				if client != op.client {
					h.send(client, op.notice)
				}
			}
		}
	}
	h.addToRoom(op.client, op.roomID, op.client.UserID)
	setRooms(len(h.rooms))
}

// addToRoom creates the room on first join; the creator is recorded as host.
// Host identity is informational only, the relay does not enforce it.
func (h *Hub) addToRoom(client *Client, roomID, creator string) {
	room, ok := h.rooms[roomID]
	if !ok {
		room = &Room{
			ID:      roomID,
			Host:    creator,
			Clients: make(map[*Client]bool),
		}
		h.rooms[roomID] = room
	}
	room.Clients[client] = true
	client.rooms[roomID] = true
}

func (h *Hub) removeFromRoom(client *Client, roomID string) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(room.Clients, client)
	delete(client.rooms, roomID)
	if len(room.Clients) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) broadcastRoom(roomID string, event *Event, skip *Client) {
	room, ok := h.rooms[roomID]
	if !ok {
		// Target offline or room gone. Normal, not an error.
		return
	}
	for client := range room.Clients {
		if client == skip {
			continue
		}
		h.send(client, event)
	}
}

func (h *Hub) broadcastAll(event *Event, skip *Client) {
	for client := range h.conns {
		if client == skip {
			continue
		}
		h.send(client, event)
	}
}

func (h *Hub) send(client *Client, event *Event) {
	select {
	case client.send <- event:
		addDelivered(1)
	default:
		// Slow consumer. Drop the connection rather than block the hub.
		log.Printf("Dropping client %s: send buffer full", client.UserID)
		client.dropped = true
		delete(h.conns, client)
		decConnections()
		for roomID := range client.rooms {
			h.removeFromRoom(client, roomID)
		}
		close(client.send)
	}
}

func (h *Hub) snapshotRooms() []RoomInfo {
	rooms := make([]RoomInfo, 0, len(h.rooms))
	for _, room := range h.rooms {
		if room.isIdentityRoom() {
			continue
		}
		info := RoomInfo{
			ID:      room.ID,
			Host:    room.Host,
			Members: make([]string, 0, len(room.Clients)),
		}
		for client := range room.Clients {
			info.Members = append(info.Members, client.UserID)
		}
		rooms = append(rooms, info)
	}
	return rooms
}

// Rooms returns a point-in-time view of the active watch party rooms.
func (h *Hub) Rooms() []RoomInfo {
	reply := make(chan []RoomInfo, 1)
	h.ops <- roomsOp{reply: reply}
	return <-reply
}
