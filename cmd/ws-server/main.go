package main

import (
	"log"

	"social-realtime-backend/internal/api"
	"social-realtime-backend/internal/api/router"
	"social-realtime-backend/internal/database"
	"social-realtime-backend/internal/env"
	"social-realtime-backend/internal/queue"
	"social-realtime-backend/internal/realtime"
	messageservice "social-realtime-backend/internal/service/message"
)

func main() {
	env.MustValidate()

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	hub := realtime.NewHub()
	go hub.Run()
	handler := realtime.NewHandler(hub, messageservice.New(db))

	server := api.NewAPIServer(
		":83",
		queueManager,
		hub,
		handler,
		router.UtilsRoutes("/api/realtime/v1"),
		router.RealtimeRoutes("/api/realtime/v1"),
	)

	handler.SubscribeToServerEvents()

	server.Run()
}
