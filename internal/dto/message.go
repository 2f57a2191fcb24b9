package dto

type MessageRecord struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId"`
	Content        string `json:"content,omitempty"`
	AudioURL       string `json:"audioUrl,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content,omitempty"`
	AudioURL   string `json:"audioUrl,omitempty"`
}

type MarkReadRequest struct {
	MessageIDs  []string `json:"messageIds"`
	OtherUserID string   `json:"otherUserId"`
}

type MessagesReadNotice struct {
	MessageIDs []string `json:"messageIds"`
	ReadBy     string   `json:"readBy"`
	ReadAt     string   `json:"readAt"`
}

type MessageDeletedNotice struct {
	MessageID string `json:"messageId"`
}
