package model

import (
	"fmt"
	"sort"
)

// ConversationID derives the durable conversation key for a direct-message
// pair. It is order independent so both participants resolve the same record.
func ConversationID(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return fmt.Sprintf("%s--%s", ids[0], ids[1])
}

func MessagePK(conversationID, messageID string) string {
	return fmt.Sprintf("%s#%s", conversationID, messageID)
}

type ConversationItem struct {
	ConversationID string   `dynamodbav:"conversationId"`
	Participants   []string `dynamodbav:"participants"`
	CreatedAt      string   `dynamodbav:"createdAt"`
	UpdatedAt      string   `dynamodbav:"updatedAt"`
	LastMessageAt  string   `dynamodbav:"lastMessageAt"`
}

type MessageItem struct {
	PK             string      `dynamodbav:"pk"`
	MessageID      string      `dynamodbav:"messageId"`
	ConversationID string      `dynamodbav:"conversationId"`
	SenderID       string      `dynamodbav:"senderId"`
	ReceiverID     string      `dynamodbav:"receiverId"`
	Content        string      `dynamodbav:"content,omitempty"`
	AudioURL       string      `dynamodbav:"audioUrl,omitempty"`
	ReadBy         []ReadEntry `dynamodbav:"readBy,omitempty"`
	ReaderIDs      []string    `dynamodbav:"readerIds,stringset,omitempty"`
	CreatedAt      string      `dynamodbav:"createdAt"`
}

type ReadEntry struct {
	UserID string `dynamodbav:"userId"`
	ReadAt string `dynamodbav:"readAt"`
}

// HasRead reports whether the identity is already recorded as a reader.
func (m MessageItem) HasRead(userID string) bool {
	for _, entry := range m.ReadBy {
		if entry.UserID == userID {
			return true
		}
	}
	return false
}
