package core

import "github.com/vovakirdan/wirechat-gateway/internal/store"

// EventName is the outbound channel a notification is emitted on.
type EventName string

const (
	// EventInitRooms delivers the room snapshot right after authentication.
	EventInitRooms EventName = "initRooms"
	// EventRoom carries a RoomEvent.
	EventRoom EventName = "room"
	// EventFriend carries a FriendEvent.
	EventFriend EventName = "friend"
	// EventMsgToClient carries a Toast.
	EventMsgToClient EventName = "msgToClient"
	// EventException carries a failure message for the initiating connection.
	EventException EventName = "exception"
	// EventUnauthorized is sent to a connection right before it is evicted.
	EventUnauthorized EventName = "unauthorized"
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Name EventName
	Data any
}

// RoomAction discriminates RoomEvent payloads.
type RoomAction string

const (
	RoomAddRoom       RoomAction = "addRoom"
	RoomRemoveRoom    RoomAction = "removeRoom"
	RoomAddMembers    RoomAction = "addMembers"
	RoomRemoveMembers RoomAction = "removeMembers"
	RoomUpdateName    RoomAction = "updateName"
	RoomUpdateNotice  RoomAction = "updateNotice"
	RoomAddMessage    RoomAction = "addMessage"
	RoomRemoveMessage RoomAction = "removeMessage"
)

// RoomEvent is the payload of EventRoom, keyed by Ev.
type RoomEvent struct {
	Ev        RoomAction   `json:"ev"`
	RoomID    string       `json:"roomId,omitempty"`
	Room      *RoomView    `json:"room,omitempty"`
	Members   []UserView   `json:"members,omitempty"`
	MemberIDs []string     `json:"memberIds,omitempty"`
	Name      *string      `json:"name,omitempty"`
	Notice    *string      `json:"notice,omitempty"`
	Message   *MessageView `json:"message,omitempty"`
	MessageID string       `json:"messageId,omitempty"`
}

// FriendAction discriminates FriendEvent payloads.
type FriendAction string

const (
	FriendAdd    FriendAction = "addFriend"
	FriendUpdate FriendAction = "updateFriend"
	FriendRemove FriendAction = "removeFriend"
)

// FriendEvent is the payload of EventFriend, keyed by Ev.
type FriendEvent struct {
	Ev           FriendAction       `json:"ev"`
	Friend       *FriendView        `json:"friend,omitempty"`
	FriendshipID string             `json:"friendshipId,omitempty"`
	FriendStatus store.FriendStatus `json:"friendStatus,omitempty"`
	RoomID       *string            `json:"roomId,omitempty"`
}

// ToastStatus is the severity of a Toast.
type ToastStatus string

const (
	ToastSuccess ToastStatus = "success"
	ToastInfo    ToastStatus = "info"
	ToastWarning ToastStatus = "warning"
	ToastError   ToastStatus = "error"
)

// Toast is a human-readable notice shown by the client.
type Toast struct {
	Status  ToastStatus `json:"status"`
	Message string      `json:"message"`
}

func roomEvent(payload RoomEvent) Event {
	return Event{Name: EventRoom, Data: payload}
}

// AddRoomEvent announces a room (with history) the receiver now belongs to.
func AddRoomEvent(view RoomView) Event {
	return roomEvent(RoomEvent{Ev: RoomAddRoom, RoomID: view.ID, Room: &view})
}

// RemoveRoomEvent tells the receiver a room is gone from its list.
func RemoveRoomEvent(roomID string) Event {
	return roomEvent(RoomEvent{Ev: RoomRemoveRoom, RoomID: roomID})
}

// AddMembersEvent lists users appended to a room.
func AddMembersEvent(roomID string, members []*store.User) Event {
	return roomEvent(RoomEvent{Ev: RoomAddMembers, RoomID: roomID, Members: UserViews(members)})
}

// RemoveMembersEvent lists user ids removed from a room.
func RemoveMembersEvent(roomID string, memberIDs []string) Event {
	return roomEvent(RoomEvent{Ev: RoomRemoveMembers, RoomID: roomID, MemberIDs: memberIDs})
}

// UpdateNameEvent carries a room's new name.
func UpdateNameEvent(roomID, name string) Event {
	return roomEvent(RoomEvent{Ev: RoomUpdateName, RoomID: roomID, Name: &name})
}

// UpdateNoticeEvent carries a room's new notice.
func UpdateNoticeEvent(roomID, notice string) Event {
	return roomEvent(RoomEvent{Ev: RoomUpdateNotice, RoomID: roomID, Notice: &notice})
}

// AddMessageEvent carries a new message of a room.
func AddMessageEvent(m *store.Message) Event {
	view := NewMessageView(m)
	return roomEvent(RoomEvent{Ev: RoomAddMessage, RoomID: m.RoomID, Message: &view})
}

// RemoveMessageEvent names a deleted message.
func RemoveMessageEvent(roomID, messageID string) Event {
	return roomEvent(RoomEvent{Ev: RoomRemoveMessage, RoomID: roomID, MessageID: messageID})
}

// AddFriendEvent carries a friendship as seen by the receiver; friend is the other party.
func AddFriendEvent(f *store.Friendship, friend *store.User) Event {
	view := NewFriendView(f, friend)
	return Event{Name: EventFriend, Data: FriendEvent{Ev: FriendAdd, Friend: &view}}
}

// UpdateFriendEvent carries a friendship's new status and room.
func UpdateFriendEvent(f *store.Friendship) Event {
	return Event{Name: EventFriend, Data: FriendEvent{
		Ev:           FriendUpdate,
		FriendshipID: f.ID,
		FriendStatus: f.Status,
		RoomID:       f.RoomID,
	}}
}

// RemoveFriendEvent names a friendship the receiver should drop.
func RemoveFriendEvent(friendshipID string) Event {
	return Event{Name: EventFriend, Data: FriendEvent{Ev: FriendRemove, FriendshipID: friendshipID}}
}

// InitRoomsEvent is the snapshot pushed once per authenticated connection.
func InitRoomsEvent(rooms []RoomView) Event {
	return Event{Name: EventInitRooms, Data: rooms}
}

// ToastEvent wraps a Toast.
func ToastEvent(status ToastStatus, message string) Event {
	return Event{Name: EventMsgToClient, Data: Toast{Status: status, Message: message}}
}

// ExceptionEvent reports a failed command to its sender.
func ExceptionEvent(message string) Event {
	return Event{Name: EventException, Data: message}
}

// UnauthorizedEvent is sent to an evicted connection.
func UnauthorizedEvent(message string) Event {
	return Event{Name: EventUnauthorized, Data: message}
}
