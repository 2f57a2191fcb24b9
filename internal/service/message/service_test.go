package message

import (
	"context"
	"errors"
	"testing"
	"time"

	"social-realtime-backend/internal/dto"
	"social-realtime-backend/internal/model"
)

type memoryRepository struct {
	conversations map[string]model.ConversationItem
	messages      map[string]model.MessageItem

	createMessageCalls int
	failCreateMessage  bool
	failAddReadEntry   bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		conversations: make(map[string]model.ConversationItem),
		messages:      make(map[string]model.MessageItem),
	}
}

func (r *memoryRepository) GetConversation(_ context.Context, conversationID string) (model.ConversationItem, error) {
	conversation, ok := r.conversations[conversationID]
	if !ok {
		return model.ConversationItem{}, ErrNotFound
	}
	return conversation, nil
}

func (r *memoryRepository) CreateConversation(_ context.Context, conversation model.ConversationItem) error {
	r.conversations[conversation.ConversationID] = conversation
	return nil
}

func (r *memoryRepository) UpdateConversationActivity(_ context.Context, conversationID, updatedAt, lastMessageAt string) error {
	conversation, ok := r.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conversation.UpdatedAt = updatedAt
	conversation.LastMessageAt = lastMessageAt
	r.conversations[conversationID] = conversation
	return nil
}

func (r *memoryRepository) CreateMessage(_ context.Context, message model.MessageItem) error {
	r.createMessageCalls++
	if r.failCreateMessage {
		return errors.New("dynamodb unavailable")
	}
	r.messages[message.PK] = message
	return nil
}

func (r *memoryRepository) GetMessage(_ context.Context, conversationID, messageID string) (model.MessageItem, error) {
	message, ok := r.messages[model.MessagePK(conversationID, messageID)]
	if !ok {
		return model.MessageItem{}, ErrNotFound
	}
	return message, nil
}

func (r *memoryRepository) AddReadEntry(_ context.Context, conversationID, messageID string, entry model.ReadEntry) (bool, error) {
	if r.failAddReadEntry {
		return false, errors.New("dynamodb unavailable")
	}
	pk := model.MessagePK(conversationID, messageID)
	message, ok := r.messages[pk]
	if !ok {
		// Conditional write on a missing item fails the condition.
		return false, nil
	}
	if message.HasRead(entry.UserID) {
		return false, nil
	}
	message.ReadBy = append(message.ReadBy, entry)
	message.ReaderIDs = append(message.ReaderIDs, entry.UserID)
	r.messages[pk] = message
	return true, nil
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestService(repo Repository) *Service {
	return NewWithRepository(repo, fixedClock)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected service error, got %v", err)
	}
	if svcErr.Code != ErrorCodeValidation {
		t.Fatalf("expected validation error, got %s: %s", svcErr.Code, svcErr.Message)
	}
}

func TestSendMessageCreatesConversationOnFirstMessage(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo)

	record, err := service.SendMessage(context.Background(), "alice", dto.SendMessageRequest{
		ReceiverID: "bob",
		Content:    "hey",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if record.MessageID == "" {
		t.Fatal("expected generated message id")
	}
	if record.ConversationID != model.ConversationID("alice", "bob") {
		t.Fatalf("unexpected conversation id %q", record.ConversationID)
	}
	if record.SenderID != "alice" || record.ReceiverID != "bob" || record.Content != "hey" {
		t.Fatalf("unexpected record: %+v", record)
	}

	conversation, ok := repo.conversations[record.ConversationID]
	if !ok {
		t.Fatal("conversation was not created")
	}
	if len(conversation.Participants) != 2 {
		t.Fatalf("unexpected participants: %v", conversation.Participants)
	}
	if repo.createMessageCalls != 1 {
		t.Fatalf("expected exactly one message write, got %d", repo.createMessageCalls)
	}
}

func TestSendMessageReusesConversationRegardlessOfDirection(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo)

	first, err := service.SendMessage(context.Background(), "alice", dto.SendMessageRequest{ReceiverID: "bob", Content: "one"})
	if err != nil {
		t.Fatalf("first SendMessage: %v", err)
	}
	second, err := service.SendMessage(context.Background(), "bob", dto.SendMessageRequest{ReceiverID: "alice", Content: "two"})
	if err != nil {
		t.Fatalf("second SendMessage: %v", err)
	}

	if first.ConversationID != second.ConversationID {
		t.Fatalf("expected a single conversation, got %q and %q", first.ConversationID, second.ConversationID)
	}
	if len(repo.conversations) != 1 {
		t.Fatalf("expected one conversation, got %d", len(repo.conversations))
	}
	if repo.createMessageCalls != 2 {
		t.Fatalf("expected two message writes, got %d", repo.createMessageCalls)
	}
}

func TestSendMessageValidation(t *testing.T) {
	service := newTestService(newMemoryRepository())
	ctx := context.Background()

	cases := []struct {
		name     string
		senderID string
		req      dto.SendMessageRequest
	}{
		{"missing receiver", "alice", dto.SendMessageRequest{Content: "hey"}},
		{"self message", "alice", dto.SendMessageRequest{ReceiverID: "alice", Content: "hey"}},
		{"empty content", "alice", dto.SendMessageRequest{ReceiverID: "bob"}},
		{"missing sender", "", dto.SendMessageRequest{ReceiverID: "bob", Content: "hey"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.SendMessage(ctx, tc.senderID, tc.req)
			assertValidationError(t, err)
		})
	}
}

func TestSendMessageAcceptsAudioOnly(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo)

	record, err := service.SendMessage(context.Background(), "alice", dto.SendMessageRequest{
		ReceiverID: "bob",
		AudioURL:   "https://cdn.example.com/clip.ogg",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if record.AudioURL == "" || record.Content != "" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestSendMessagePersistFailure(t *testing.T) {
	repo := newMemoryRepository()
	repo.failCreateMessage = true
	service := newTestService(repo)

	_, err := service.SendMessage(context.Background(), "alice", dto.SendMessageRequest{ReceiverID: "bob", Content: "hey"})

	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Code != ErrorCodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestMarkReadReportsOnlyNewReceipts(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	var sent []string
	for _, content := range []string{"one", "two", "three"} {
		record, err := service.SendMessage(ctx, "alice", dto.SendMessageRequest{ReceiverID: "bob", Content: content})
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		sent = append(sent, record.MessageID)
	}

	result, err := service.MarkRead(ctx, "bob", dto.MarkReadRequest{MessageIDs: sent[:2], OtherUserID: "alice"})
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if result.SenderID != "alice" {
		t.Fatalf("expected notice target alice, got %q", result.SenderID)
	}
	if len(result.MessageIDs) != 2 {
		t.Fatalf("expected two new receipts, got %v", result.MessageIDs)
	}
	if result.ReadAt == "" {
		t.Fatal("expected readAt timestamp")
	}

	// Repeat plus one fresh id: only the fresh one is reported.
	result, err = service.MarkRead(ctx, "bob", dto.MarkReadRequest{MessageIDs: sent, OtherUserID: "alice"})
	if err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	if len(result.MessageIDs) != 1 || result.MessageIDs[0] != sent[2] {
		t.Fatalf("expected only the third message, got %v", result.MessageIDs)
	}

	// Fully redundant call yields an empty result, not an error.
	result, err = service.MarkRead(ctx, "bob", dto.MarkReadRequest{MessageIDs: sent, OtherUserID: "alice"})
	if err != nil {
		t.Fatalf("third MarkRead: %v", err)
	}
	if len(result.MessageIDs) != 0 {
		t.Fatalf("expected no new receipts, got %v", result.MessageIDs)
	}
}

func TestMarkReadUnknownMessageIsSilent(t *testing.T) {
	service := newTestService(newMemoryRepository())

	result, err := service.MarkRead(context.Background(), "bob", dto.MarkReadRequest{
		MessageIDs:  []string{"ghost"},
		OtherUserID: "alice",
	})
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if len(result.MessageIDs) != 0 {
		t.Fatalf("expected no receipts for unknown message, got %v", result.MessageIDs)
	}
}

func TestMarkReadValidation(t *testing.T) {
	service := newTestService(newMemoryRepository())
	ctx := context.Background()

	_, err := service.MarkRead(ctx, "bob", dto.MarkReadRequest{OtherUserID: "alice"})
	assertValidationError(t, err)

	_, err = service.MarkRead(ctx, "bob", dto.MarkReadRequest{MessageIDs: []string{"m1"}})
	assertValidationError(t, err)

	_, err = service.MarkRead(ctx, "", dto.MarkReadRequest{MessageIDs: []string{"m1"}, OtherUserID: "alice"})
	assertValidationError(t, err)
}

func TestConversationParticipants(t *testing.T) {
	repo := newMemoryRepository()
	service := newTestService(repo)
	ctx := context.Background()

	record, err := service.SendMessage(ctx, "alice", dto.SendMessageRequest{ReceiverID: "bob", Content: "hey"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	participants, err := service.ConversationParticipants(ctx, record.ConversationID)
	if err != nil {
		t.Fatalf("ConversationParticipants: %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("unexpected participants: %v", participants)
	}

	_, err = service.ConversationParticipants(ctx, "missing")
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Code != ErrorCodeNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}
