package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a registered user.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Online       bool
	CreatedAt    time.Time
}

// RoomType defines different types of rooms.
type RoomType string

const (
	RoomTypePublic  RoomType = "public"
	RoomTypePrivate RoomType = "private"
	RoomTypeDirect  RoomType = "direct"
)

// Room represents persisted chat room metadata. Live occupancy is tracked by
// the core, not here.
type Room struct {
	ID        int64
	Name      string
	Type      RoomType
	OwnerID   *int64
	CreatedAt time.Time
}

// MessageType classifies persisted message content.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

// Message represents a persisted chat message. Exactly one of Room and
// ReceiverID is set.
type Message struct {
	ID         int64
	SenderID   int64
	SenderName string
	ReceiverID *int64
	Room       string
	Content    string
	Type       MessageType
	FileURL    string
	FileName   string
	Read       bool
	ReadAt     *time.Time
	Reactions  map[string][]int64
	CreatedAt  time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SetUserOnline updates a user's durable online flag.
	SetUserOnline(ctx context.Context, userID int64, online bool) error

	// ListOnlineUsers lists users whose online flag is set.
	ListOnlineUsers(ctx context.Context) ([]*User, error)
}

// RoomStore handles room metadata persistence.
type RoomStore interface {
	// CreateRoom creates a new room.
	CreateRoom(ctx context.Context, name string, roomType RoomType, ownerID *int64) (*Room, error)

	// GetRoomByName retrieves a room by name.
	GetRoomByName(ctx context.Context, name string) (*Room, error)

	// ListRooms lists all rooms.
	ListRooms(ctx context.Context) ([]*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and returns its durable id.
	SaveMessage(ctx context.Context, msg *Message) (int64, error)

	// GetMessage retrieves a message with its reactions.
	// Returns ErrNotFound if the id is unknown.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// MarkMessageRead sets the read flag and timestamp once. Returns the
	// updated message and whether this call performed the transition;
	// marking an already-read message is a no-op, not an error.
	MarkMessageRead(ctx context.Context, id int64) (*Message, bool, error)

	// AddReaction inserts (reaction, userID) into the message's reaction
	// set. Returns whether the entry was newly added; repeats are no-ops.
	AddReaction(ctx context.Context, id int64, reaction string, userID int64) (bool, error)

	// ListRoomMessages retrieves the most recent messages of a room.
	ListRoomMessages(ctx context.Context, room string, limit int) ([]*Message, error)

	// ListDirectMessages retrieves the most recent messages between two users.
	ListDirectMessages(ctx context.Context, userA, userB int64, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
