package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned (wrapped) when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned (wrapped) when a unique constraint is violated.
var ErrConflict = errors.New("conflict")

// UserRole defines the role of a user.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
	UserRoleGhost UserRole = "ghost"
)

// User represents a user in the system.
type User struct {
	ID           string
	Username     string
	Nickname     string
	Role         UserRole
	AvatarSrc    string
	PasswordHash string
	CreatedAt    time.Time
}

// RoomType defines different types of rooms.
type RoomType string

const (
	RoomTypePublic RoomType = "public"
	RoomTypeFriend RoomType = "friend"
	RoomTypeSingle RoomType = "single"
)

// DefaultNotice is the notice a room starts with.
const DefaultNotice = "no notice yet"

// Room represents a chat room. Members are ordered by join time.
type Room struct {
	ID        string
	Name      string
	OwnerID   *string // set for group rooms only
	Notice    string
	Type      RoomType
	CreatedAt time.Time
	Members   []*User
}

// HasMember reports whether userID is in the member list.
func (r *Room) HasMember(userID string) bool {
	for _, m := range r.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// IsOwner reports whether userID owns the room.
func (r *Room) IsOwner(userID string) bool {
	return r.OwnerID != nil && *r.OwnerID == userID
}

// MemberIDs returns member ids in join order.
func (r *Room) MemberIDs() []string {
	ids := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// MessageType defines the content kind of a message.
type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeImg  MessageType = "img"
)

// Message represents a persisted chat message.
type Message struct {
	ID        string
	Content   string
	Type      MessageType
	SenderID  *string // nil once the sender account is gone
	Sender    *User
	RoomID    string
	CreatedAt time.Time
}

// FriendStatus defines friend relationship status.
type FriendStatus string

const (
	FriendStatusRequested FriendStatus = "requested"
	FriendStatusAccepted  FriendStatus = "accepted"
	FriendStatusDeclined  FriendStatus = "declined"
)

// Friendship represents a friend relationship between two users.
type Friendship struct {
	ID          string
	RequesterID string
	AddresseeID string
	RoomID      *string
	Status      FriendStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Involves reports whether userID is one of the two parties.
func (f *Friendship) Involves(userID string) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// Other returns the party that is not userID.
func (f *Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser inserts a user. ID and CreatedAt are filled in.
	CreateUser(ctx context.Context, user *User) error

	// CreateUserWithRoom inserts a user together with a room whose only member is that user.
	CreateUserWithRoom(ctx context.Context, user *User, room *Room) error

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUsersByIDs returns the users that exist among ids, in no particular order.
	GetUsersByIDs(ctx context.Context, ids []string) ([]*User, error)

	// UpdateUser persists nickname, avatar, role and password hash.
	UpdateUser(ctx context.Context, user *User) error
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom inserts a room and its initial members in one transaction.
	CreateRoom(ctx context.Context, room *Room, memberIDs []string) error

	// GetRoom retrieves a room with members loaded.
	GetRoom(ctx context.Context, id string) (*Room, error)

	// ListUserRooms lists rooms userID is a member of, with members loaded.
	ListUserRooms(ctx context.Context, userID string) ([]*Room, error)

	// UpdateRoom persists name and notice.
	UpdateRoom(ctx context.Context, room *Room) error

	// AddMembers appends members; ids already present are ignored.
	AddMembers(ctx context.Context, roomID string, userIDs []string) error

	// RemoveMembers removes members and returns the member count left in
	// the same transaction; absent ids are ignored.
	RemoveMembers(ctx context.Context, roomID string, userIDs []string) (int, error)

	// DeleteRoom removes the room and its member rows.
	DeleteRoom(ctx context.Context, id string) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message. ID and CreatedAt are filled in when empty.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// ListRecentMessages returns the newest limit messages of a room, oldest first,
	// with senders loaded.
	ListRecentMessages(ctx context.Context, roomID string, limit int) ([]*Message, error)

	// DeleteMessage removes a single message.
	DeleteMessage(ctx context.Context, id string) error

	// DeleteRoomMessages removes every message of a room.
	DeleteRoomMessages(ctx context.Context, roomID string) error
}

// FriendshipStore handles friendship persistence.
type FriendshipStore interface {
	// CreateFriendship inserts a friendship. ID and timestamps are filled in.
	CreateFriendship(ctx context.Context, f *Friendship) error

	// UpdateFriendship persists status, room and parties.
	UpdateFriendship(ctx context.Context, f *Friendship) error

	// GetFriendship retrieves a friendship by ID.
	GetFriendship(ctx context.Context, id string) (*Friendship, error)

	// FindFriendshipBetween finds the record for an unordered pair of users.
	FindFriendshipBetween(ctx context.Context, userA, userB string) (*Friendship, error)

	// FindFriendshipByRoom finds the record bound to roomID in which userID is a party.
	FindFriendshipByRoom(ctx context.Context, roomID, userID string) (*Friendship, error)

	// ListFriendships lists non-declined friendships of a user.
	ListFriendships(ctx context.Context, userID string) ([]*Friendship, error)

	// DeleteFriendship removes a friendship record.
	DeleteFriendship(ctx context.Context, id string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore
	FriendshipStore

	// Close closes the underlying database connection.
	Close() error
}
