package message

import (
	"context"
	"errors"
	"strings"

	"social-realtime-backend/internal/database"
	"social-realtime-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("message repository: not found")

type Repository interface {
	GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error)
	CreateConversation(ctx context.Context, conversation model.ConversationItem) error
	UpdateConversationActivity(ctx context.Context, conversationID, updatedAt, lastMessageAt string) error
	CreateMessage(ctx context.Context, message model.MessageItem) error
	GetMessage(ctx context.Context, conversationID, messageID string) (model.MessageItem, error)
	AddReadEntry(ctx context.Context, conversationID, messageID string, entry model.ReadEntry) (bool, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	var conversation model.ConversationItem
	err := r.db.Client.GetItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		&conversation,
	)
	if err != nil {
		if isNotFound(err) {
			return model.ConversationItem{}, ErrNotFound
		}
		return model.ConversationItem{}, err
	}
	return conversation, nil
}

func (r *DynamoRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	return r.db.Client.PutItem(ctx, model.ConversationsTable, conversation)
}

func (r *DynamoRepository) UpdateConversationActivity(ctx context.Context, conversationID, updatedAt, lastMessageAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET updatedAt = :updatedAt, lastMessageAt = :lastMessageAt",
		map[string]types.AttributeValue{
			":updatedAt":     &types.AttributeValueMemberS{Value: updatedAt},
			":lastMessageAt": &types.AttributeValueMemberS{Value: lastMessageAt},
		},
		nil,
		nil,
	)
}

func (r *DynamoRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	return r.db.Client.PutItem(ctx, model.MessagesTable, message)
}

func (r *DynamoRepository) GetMessage(ctx context.Context, conversationID, messageID string) (model.MessageItem, error) {
	var message model.MessageItem
	err := r.db.Client.GetItem(
		ctx,
		model.MessagesTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.MessagePK(conversationID, messageID)},
		},
		&message,
	)
	if err != nil {
		if isNotFound(err) {
			return model.MessageItem{}, ErrNotFound
		}
		return model.MessageItem{}, err
	}
	return message, nil
}

// AddReadEntry records a read receipt once per reader. The conditional update
// keeps mark_read idempotent even when two devices of the same identity race.
func (r *DynamoRepository) AddReadEntry(ctx context.Context, conversationID, messageID string, entry model.ReadEntry) (bool, error) {
	readerSet := &types.AttributeValueMemberSS{Value: []string{entry.UserID}}
	entryValue := &types.AttributeValueMemberL{
		Value: []types.AttributeValue{
			&types.AttributeValueMemberM{
				Value: map[string]types.AttributeValue{
					"userId": &types.AttributeValueMemberS{Value: entry.UserID},
					"readAt": &types.AttributeValueMemberS{Value: entry.ReadAt},
				},
			},
		},
	}

	return r.db.Client.UpdateItemConditional(
		ctx,
		model.MessagesTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.MessagePK(conversationID, messageID)},
		},
		"SET readBy = list_append(if_not_exists(readBy, :empty), :entry) ADD readerIds :reader",
		"attribute_exists(pk) AND (attribute_not_exists(readerIds) OR NOT contains(readerIds, :readerId))",
		map[string]types.AttributeValue{
			":empty":    &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":entry":    entryValue,
			":reader":   readerSet,
			":readerId": &types.AttributeValueMemberS{Value: entry.UserID},
		},
		nil,
	)
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "item not found")
}
