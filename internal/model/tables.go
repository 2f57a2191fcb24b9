package model

const (
	ConversationsTable = "realtime-conversations"
	MessagesTable      = "realtime-messages"
)
