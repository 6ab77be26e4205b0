package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventReceiveMessage delivers a room message.
	EventReceiveMessage EventKind = iota
	// EventPrivateMessage delivers a direct message.
	EventPrivateMessage
	// EventTyping relays a typing indicator.
	EventTyping
	// EventUserOnline announces a user's session coming up.
	EventUserOnline
	// EventUserOffline announces a user's session going down.
	EventUserOffline
	// EventOnlineUsers delivers the online snapshot to a new connection.
	EventOnlineUsers
	// EventUserJoinedRoom notifies room members about a join.
	EventUserJoinedRoom
	// EventUserLeftRoom notifies room members about a leave.
	EventUserLeftRoom
	// EventRoomJoined acknowledges a join to the requester.
	EventRoomJoined
	// EventMessageReaction broadcasts an added reaction.
	EventMessageReaction
	// EventMessageRead notifies a sender that their message was read.
	EventMessageRead
	// EventError notifies the requesting client about a domain error.
	EventError
)

// OnlineUser is one entry of the online snapshot.
type OnlineUser struct {
	UserID   int64
	Username string
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind      EventKind
	Room      string
	UserID    int64
	Username  string
	IsTyping  bool
	Private   bool
	Message   *Message
	Users     []OnlineUser
	MessageID int64
	Reaction  string
	ReadBy    int64
	ReadAt    time.Time
	Error     *CoreError
}
