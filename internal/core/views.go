package core

import (
	"time"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// UserView is the public shape of a user.
type UserView struct {
	ID         string         `json:"id"`
	Username   string         `json:"username"`
	Nickname   string         `json:"nickname"`
	UserRole   store.UserRole `json:"userRole"`
	AvatarSrc  string         `json:"avatarSrc"`
	CreateTime time.Time      `json:"createTime"`
}

// NewUserView strips private fields from u.
func NewUserView(u *store.User) UserView {
	return UserView{
		ID:         u.ID,
		Username:   u.Username,
		Nickname:   u.Nickname,
		UserRole:   u.Role,
		AvatarSrc:  u.AvatarSrc,
		CreateTime: u.CreatedAt,
	}
}

// UserViews maps NewUserView over users.
func UserViews(users []*store.User) []UserView {
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, NewUserView(u))
	}
	return views
}

// MessageView is the public shape of a message. Sender is nil for messages
// whose author no longer exists.
type MessageView struct {
	ID          string            `json:"id"`
	Sender      *UserView         `json:"sender"`
	Content     string            `json:"content"`
	MessageType store.MessageType `json:"messageType"`
	SendTime    time.Time         `json:"sendTime"`
}

// NewMessageView builds the view of m. m.Sender should be loaded.
func NewMessageView(m *store.Message) MessageView {
	view := MessageView{
		ID:          m.ID,
		Content:     m.Content,
		MessageType: m.Type,
		SendTime:    m.CreatedAt,
	}
	if m.Sender != nil {
		sender := NewUserView(m.Sender)
		view.Sender = &sender
	}
	return view
}

// RoomView is the public shape of a room including recent history.
type RoomView struct {
	ID         string         `json:"id"`
	CreateTime time.Time      `json:"createTime"`
	Name       string         `json:"name"`
	Members    []UserView     `json:"members"`
	Messages   []MessageView  `json:"messages"`
	RoomType   store.RoomType `json:"roomType"`
	AvatarSrc  string         `json:"avatarSrc,omitempty"`
	OwnerID    *string        `json:"ownerId,omitempty"`
	Notice     string         `json:"notice"`
}

// NewRoomView builds the view of room. For friend rooms a non-nil friend
// supplies the displayed name and avatar.
func NewRoomView(room *store.Room, messages []*store.Message, friend *store.User) RoomView {
	view := RoomView{
		ID:         room.ID,
		CreateTime: room.CreatedAt,
		Name:       room.Name,
		Members:    UserViews(room.Members),
		Messages:   make([]MessageView, 0, len(messages)),
		RoomType:   room.Type,
		OwnerID:    room.OwnerID,
		Notice:     room.Notice,
	}
	for _, m := range messages {
		view.Messages = append(view.Messages, NewMessageView(m))
	}
	if room.Type == store.RoomTypeFriend && friend != nil {
		view.Name = friend.Nickname
		view.AvatarSrc = friend.AvatarSrc
	}
	return view
}

// FriendOf returns the other member of a two-member friend room as seen by
// viewerID, or nil when the room is not in that shape.
func FriendOf(room *store.Room, viewerID string) *store.User {
	if room.Type != store.RoomTypeFriend || len(room.Members) != 2 {
		return nil
	}
	for _, m := range room.Members {
		if m.ID != viewerID {
			return m
		}
	}
	return nil
}

// FriendView is a friendship as seen by one party; User is the other party.
type FriendView struct {
	ID           string             `json:"id"`
	User         UserView           `json:"user"`
	FriendStatus store.FriendStatus `json:"friendStatus"`
	CreateTime   time.Time          `json:"createTime"`
	RoomID       *string            `json:"roomId,omitempty"`
	IsRequester  *bool              `json:"isRequester,omitempty"`
}

// NewFriendView builds the view of f for the party that is not friend.
// IsRequester is set only while the request is pending and tells whether
// friend sent it.
func NewFriendView(f *store.Friendship, friend *store.User) FriendView {
	view := FriendView{
		ID:           f.ID,
		User:         NewUserView(friend),
		FriendStatus: f.Status,
		CreateTime:   f.CreatedAt,
		RoomID:       f.RoomID,
	}
	if f.Status == store.FriendStatusRequested {
		isRequester := f.RequesterID == friend.ID
		view.IsRequester = &isRequester
	}
	return view
}
