package proto

import (
	"encoding/json"
	"strings"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Handshake is the first frame of a websocket connection.
type Handshake struct {
	Auth struct {
		Token string `json:"token"`
	} `json:"auth"`
}

// BearerToken strips the scheme from a "<scheme> <token>" credential.
// A credential without a scheme is returned as is.
func BearerToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if scheme, token, ok := strings.Cut(raw, " "); ok && scheme != "" {
		return strings.TrimSpace(token)
	}
	return raw
}

// Inbound event names.
const (
	EventSendMessage       = "sendMessage"
	EventRemoveMessage     = "removeMessage"
	EventRequestFriend     = "requestFriend"
	EventAcceptFriend      = "acceptFriend"
	EventDeclineFriend     = "declineFriend"
	EventRemoveFriend      = "removeFriend"
	EventCreateRoom        = "createRoom"
	EventRemoveRoom        = "removeRoom"
	EventAddRoomMembers    = "addRoomMembers"
	EventDeleteRoomMembers = "deleteRoomMembers"
	EventLeaveRoom         = "leaveRoom"
	EventUpdateRoomName    = "updateRoomName"
	EventUpdateRoomNotice  = "updateRoomNotice"
)

// SendMessageData posts a message to a room.
type SendMessageData struct {
	RoomID      string `json:"roomId" validate:"required,uuid"`
	Content     string `json:"content" validate:"required"`
	MessageType string `json:"messageType" validate:"omitempty,oneof=text img"`
}

// RemoveMessageData deletes one of the caller's messages.
type RemoveMessageData struct {
	MessageID string `json:"messageId" validate:"required,uuid"`
}

// RequestFriendData targets a user, or the friend room of an earlier friendship.
type RequestFriendData struct {
	AddresseeID string `json:"addresseeId" validate:"required_without=RoomID,omitempty,uuid"`
	RoomID      string `json:"roomId" validate:"required_without=AddresseeID,omitempty,uuid"`
}

// FriendshipData names a friendship.
type FriendshipData struct {
	FriendshipID string `json:"friendshipId" validate:"required,uuid"`
}

// RemoveFriendData selects a friendship by id or by its room.
type RemoveFriendData struct {
	FriendshipID string `json:"friendshipId" validate:"required_without=RoomID,omitempty,uuid"`
	RoomID       string `json:"roomId" validate:"required_without=FriendshipID,omitempty,uuid"`
}

// CreateRoomData creates a group room; the caller is added as owner.
type CreateRoomData struct {
	Name      string   `json:"name" validate:"required,max=64"`
	MemberIDs []string `json:"memberIds" validate:"required,min=2,unique,dive,uuid"`
}

// RoomData names a room.
type RoomData struct {
	RoomID string `json:"roomId" validate:"required,uuid"`
}

// RoomMembersData adds or removes room members.
type RoomMembersData struct {
	RoomID    string   `json:"roomId" validate:"required,uuid"`
	MemberIDs []string `json:"memberIds" validate:"required,min=1,unique,dive,uuid"`
}

// RoomNameData renames a room.
type RoomNameData struct {
	RoomID string `json:"roomId" validate:"required,uuid"`
	Name   string `json:"name" validate:"required,max=64"`
}

// RoomNoticeData replaces a room's notice.
type RoomNoticeData struct {
	RoomID string `json:"roomId" validate:"required,uuid"`
	Notice string `json:"notice" validate:"required,max=512"`
}
