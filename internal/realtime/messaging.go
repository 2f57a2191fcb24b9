package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"social-realtime-backend/internal/dto"
	messageservice "social-realtime-backend/internal/service/message"
)

const storeTimeout = 10 * time.Second

// handleSendMessage persists through the message store and only then emits:
// receive_message to the receiver, message_sent back to the sender. A failed
// write surfaces as an error event and nothing is delivered.
func (h *Handler) handleSendMessage(cl *Client, event *Event) error {
	var req dto.SendMessageRequest
	if err := json.Unmarshal(event.Data, &req); err != nil || req.ReceiverID == "" {
		return errors.New("receiverId is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	record, err := h.store.SendMessage(ctx, cl.UserID, req)
	if err != nil {
		var svcErr *messageservice.Error
		if errors.As(err, &svcErr) && svcErr.Code == messageservice.ErrorCodeValidation {
			return svcErr
		}
		log.Printf("send_message persist failed for %s: %v", cl.UserID, err)
		return errors.New("failed to send message")
	}

	received, err := NewEvent(EventReceiveMessage, record)
	if err != nil {
		return err
	}
	ack, err := NewEvent(EventMessageSent, record)
	if err != nil {
		return err
	}

	h.hub.ops <- broadcastOp{roomID: IdentityRoom(record.ReceiverID), event: received}
	h.hub.ops <- broadcastOp{roomID: IdentityRoom(cl.UserID), event: ack}
	return nil
}

// handleMarkRead updates read state idempotently and notifies the original
// sender once. A second mark_read for the same message/reader pair records
// nothing new and emits nothing.
func (h *Handler) handleMarkRead(cl *Client, event *Event) error {
	var req dto.MarkReadRequest
	if err := json.Unmarshal(event.Data, &req); err != nil || req.OtherUserID == "" || len(req.MessageIDs) == 0 {
		return errors.New("messageIds and otherUserId are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	result, err := h.store.MarkRead(ctx, cl.UserID, req)
	if err != nil {
		var svcErr *messageservice.Error
		if errors.As(err, &svcErr) && svcErr.Code == messageservice.ErrorCodeValidation {
			return svcErr
		}
		log.Printf("mark_read persist failed for %s: %v", cl.UserID, err)
		return errors.New("failed to update read state")
	}

	if len(result.MessageIDs) == 0 {
		return nil
	}

	notice, err := NewEvent(EventMessagesRead, dto.MessagesReadNotice{
		MessageIDs: result.MessageIDs,
		ReadBy:     cl.UserID,
		ReadAt:     result.ReadAt,
	})
	if err != nil {
		return err
	}

	h.hub.ops <- broadcastOp{roomID: IdentityRoom(result.SenderID), event: notice}
	return nil
}
