package message

import (
	"context"
	"errors"
	"time"

	"social-realtime-backend/internal/database"
	"social-realtime-backend/internal/dto"
	"social-realtime-backend/internal/model"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeInternal   ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type MarkReadResult struct {
	// SenderID is the identity that originally sent the marked messages and
	// should receive the messages_read notice.
	SenderID   string
	MessageIDs []string
	ReadAt     string
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

// SendMessage resolves or creates the conversation between sender and
// receiver, then persists the message. Exactly one message write happens per
// call; delivery is the caller's job and must only follow a nil error.
func (s *Service) SendMessage(ctx context.Context, senderID string, req dto.SendMessageRequest) (dto.MessageRecord, error) {
	if senderID == "" {
		return dto.MessageRecord{}, newError(ErrorCodeValidation, "sender is required", nil)
	}
	if req.ReceiverID == "" {
		return dto.MessageRecord{}, newError(ErrorCodeValidation, "receiverId is required", nil)
	}
	if req.ReceiverID == senderID {
		return dto.MessageRecord{}, newError(ErrorCodeValidation, "cannot message yourself", nil)
	}
	if req.Content == "" && req.AudioURL == "" {
		return dto.MessageRecord{}, newError(ErrorCodeValidation, "message content is required", nil)
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	conversationID := model.ConversationID(senderID, req.ReceiverID)

	_, err := s.repo.GetConversation(ctx, conversationID)
	if errors.Is(err, ErrNotFound) {
		conversation := model.ConversationItem{
			ConversationID: conversationID,
			Participants:   []string{senderID, req.ReceiverID},
			CreatedAt:      now,
			UpdatedAt:      now,
			LastMessageAt:  now,
		}
		if err := s.repo.CreateConversation(ctx, conversation); err != nil {
			return dto.MessageRecord{}, newError(ErrorCodeInternal, "failed to save message", err)
		}
	} else if err != nil {
		return dto.MessageRecord{}, newError(ErrorCodeInternal, "failed to save message", err)
	} else {
		if err := s.repo.UpdateConversationActivity(ctx, conversationID, now, now); err != nil {
			return dto.MessageRecord{}, newError(ErrorCodeInternal, "failed to save message", err)
		}
	}

	messageID := uuid.NewString()
	item := model.MessageItem{
		PK:             model.MessagePK(conversationID, messageID),
		MessageID:      messageID,
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     req.ReceiverID,
		Content:        req.Content,
		AudioURL:       req.AudioURL,
		CreatedAt:      now,
	}

	if err := s.repo.CreateMessage(ctx, item); err != nil {
		return dto.MessageRecord{}, newError(ErrorCodeInternal, "failed to save message", err)
	}

	return dto.MessageRecord{
		MessageID:      item.MessageID,
		ConversationID: item.ConversationID,
		SenderID:       item.SenderID,
		ReceiverID:     item.ReceiverID,
		Content:        item.Content,
		AudioURL:       item.AudioURL,
		CreatedAt:      item.CreatedAt,
	}, nil
}

// MarkRead records read receipts for the reader. Receipts are idempotent: a
// message already read by this identity is skipped, and the result only lists
// newly recorded ids so callers do not re-notify the sender.
func (s *Service) MarkRead(ctx context.Context, readerID string, req dto.MarkReadRequest) (MarkReadResult, error) {
	if readerID == "" {
		return MarkReadResult{}, newError(ErrorCodeValidation, "reader is required", nil)
	}
	if req.OtherUserID == "" {
		return MarkReadResult{}, newError(ErrorCodeValidation, "otherUserId is required", nil)
	}
	if len(req.MessageIDs) == 0 {
		return MarkReadResult{}, newError(ErrorCodeValidation, "messageIds is required", nil)
	}

	readAt := s.now().UTC().Format(time.RFC3339Nano)
	conversationID := model.ConversationID(readerID, req.OtherUserID)

	result := MarkReadResult{
		SenderID: req.OtherUserID,
		ReadAt:   readAt,
	}

	for _, messageID := range req.MessageIDs {
		added, err := s.repo.AddReadEntry(ctx, conversationID, messageID, model.ReadEntry{
			UserID: readerID,
			ReadAt: readAt,
		})
		if err != nil {
			return MarkReadResult{}, newError(ErrorCodeInternal, "failed to update read state", err)
		}
		if added {
			result.MessageIDs = append(result.MessageIDs, messageID)
		}
	}

	return result, nil
}

// ConversationParticipants returns the identities party to a conversation,
// used for deletion fan-out.
func (s *Service) ConversationParticipants(ctx context.Context, conversationID string) ([]string, error) {
	conversation, err := s.repo.GetConversation(ctx, conversationID)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(ErrorCodeNotFound, "conversation not found", err)
	}
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load conversation", err)
	}
	return conversation.Participants, nil
}
