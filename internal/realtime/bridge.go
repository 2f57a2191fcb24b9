package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"social-realtime-backend/internal/dto"
	"social-realtime-backend/internal/env"

	"github.com/go-redis/redis/v8"
)

// The REST layer runs in separate processes; Redis pub/sub bridges the
// server-originated fan-outs (message deletion happens over plain HTTP, not
// the socket) into the hub.

const eventsChannel = "realtime:events"

var redisClient *redis.Client

func init() {
	redisClient = redis.NewClient(&redis.Options{
		Addr:     env.Get(env.EventRedisURL),
		Password: env.Get(env.EventRedisPass),
		DB:       0,
	})
}

type ServerEvent struct {
	Type         string   `json:"type"`
	MessageID    string   `json:"messageId,omitempty"`
	DeleterID    string   `json:"deleterId,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

const ServerEventMessageDeleted = "message_deleted"

// Publish is the REST-side entry point onto the bridge.
func Publish(event ServerEvent) error {
	if event.Type == "" {
		return fmt.Errorf("realtime publish: event type required")
	}
	if redisClient == nil {
		return fmt.Errorf("realtime publish: redis client not initialised")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime publish: marshal event: %w", err)
	}

	if err := redisClient.Publish(context.Background(), eventsChannel, string(payload)).Err(); err != nil {
		return fmt.Errorf("realtime publish: redis publish: %w", err)
	}
	return nil
}

// SubscribeToServerEvents consumes the bridge channel for the lifetime of
// the process.
func (h *Handler) SubscribeToServerEvents() {
	go h.subscribeToServerEvents(redisClient)
}

func (h *Handler) subscribeToServerEvents(client *redis.Client) {
	subscriber := client.Subscribe(context.Background(), eventsChannel)
	defer subscriber.Close()

	ch := subscriber.Channel()
	for msg := range ch {
		var event ServerEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("Malformed server event on %s: %v", eventsChannel, err)
			continue
		}
		h.dispatchServerEvent(event)
	}
	log.Printf("Unsubscribed from Redis channel: %s", eventsChannel)
}

func (h *Handler) dispatchServerEvent(event ServerEvent) {
	switch event.Type {
	case ServerEventMessageDeleted:
		notice, err := NewEvent(EventMessageDeleted, dto.MessageDeletedNotice{
			MessageID: event.MessageID,
		})
		if err != nil {
			return
		}
		// Every conversation participant except the deleter hears about it.
		for _, userID := range event.Participants {
			if userID == event.DeleterID {
				continue
			}
			h.hub.ops <- broadcastOp{roomID: IdentityRoom(userID), event: notice}
		}
	default:
		log.Printf("Unknown server event type %q", event.Type)
	}
}
