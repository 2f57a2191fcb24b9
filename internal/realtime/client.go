package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	Conn     *websocket.Conn
	UserID   string
	Username string

	send     chan *Event
	done     chan struct{} // Signal for coordinating goroutine shutdown
	mu       sync.Mutex    // Mutex for connection access
	isClosed bool          // Flag to track connection state

	// Touched only by the hub goroutine.
	rooms   map[string]bool
	dropped bool
}

func newClient(conn *websocket.Conn, userID, username string) *Client {
	return &Client{
		Conn:     conn,
		UserID:   userID,
		Username: username,
		send:     make(chan *Event, 32),
		done:     make(chan struct{}),
		rooms:    make(map[string]bool),
	}
}

func (cl *Client) keepAlive() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteMessage(websocket.PingMessage, nil)
			cl.mu.Unlock()

			if err != nil {
				log.Printf("Ping error for client %s: %v", cl.UserID, err)
				return
			}
		}
	}
}

func (cl *Client) writeMessage() {
	defer func() {
		cl.mu.Lock()
		cl.isClosed = true
		cl.Conn.Close()
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.done:
			return
		case event, ok := <-cl.send:
			if !ok {
				return
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteJSON(event)
			cl.mu.Unlock()

			if err != nil {
				log.Printf("Error sending event to client %s: %v", cl.UserID, err)
				return
			}
		}
	}
}

func (cl *Client) readMessage(h *Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in readMessage: %v", r)
		}

		close(cl.done)
		h.unregister(cl)
		log.Printf("Client %s disconnected", cl.UserID)
	}()

	cl.Conn.SetReadLimit(512 * 1024) // Set a reasonable read limit

	for {
		_, raw, err := cl.Conn.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				if closeErr.Code == websocket.CloseNormalClosure ||
					closeErr.Code == websocket.CloseGoingAway ||
					closeErr.Code == websocket.CloseNoStatusReceived {
					break
				}
			}
			log.Printf("Error reading message from client %s: %v", cl.UserID, err)
			break
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil || event.Name == "" {
			h.sendError(cl, "malformed event")
			continue
		}

		h.handleEvent(cl, &event)
	}
}
