// Package messages relays chat messages into rooms.
package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// Service persists messages and fans them out to room subscribers.
type Service struct {
	store store.Store
}

// New creates a message service.
func New(st store.Store) *Service {
	return &Service{store: st}
}

// SendMessage stores a message from senderID in roomID. An empty msgType
// means text.
func (s *Service) SendMessage(ctx context.Context, senderID, roomID, content string, msgType store.MessageType) (*core.Plan, error) {
	if strings.TrimSpace(content) == "" {
		return nil, core.Validation("message content cannot be empty")
	}
	if msgType == "" {
		msgType = store.MessageTypeText
	}
	if msgType != store.MessageTypeText && msgType != store.MessageTypeImg {
		return nil, core.Validation("unknown message type %q", msgType)
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, core.NotFound("room not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if !room.HasMember(senderID) {
		return nil, core.Forbidden("you are not a member of this room")
	}

	sender, err := s.store.GetUserByID(ctx, senderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, core.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get sender: %w", err)
	}

	msg := &store.Message{
		Content:  content,
		Type:     msgType,
		SenderID: &sender.ID,
		Sender:   sender,
		RoomID:   room.ID,
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	plan := &core.Plan{}
	plan.ToRoom(room.ID, core.AddMessageEvent(msg))
	return plan, nil
}

// RemoveMessage deletes a message authored by senderID. Messages of other
// users are reported as missing.
func (s *Service) RemoveMessage(ctx context.Context, senderID, messageID string) (*core.Plan, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, core.NotFound("message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg.SenderID == nil || *msg.SenderID != senderID {
		return nil, core.NotFound("message not found")
	}

	if err := s.store.DeleteMessage(ctx, msg.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("delete message: %w", err)
	}

	plan := &core.Plan{}
	plan.ToRoom(msg.RoomID, core.RemoveMessageEvent(msg.RoomID, msg.ID))
	return plan, nil
}
