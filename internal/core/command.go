package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin registers the connection's user session.
	CommandJoin CommandKind = iota
	// CommandJoinRoom subscribes the user to a room.
	CommandJoinRoom
	// CommandLeaveRoom unsubscribes the user from a room.
	CommandLeaveRoom
	// CommandSendMessage delivers a chat message to a room or a user.
	CommandSendMessage
	// CommandTyping relays a typing indicator.
	CommandTyping
	// CommandMarkRead marks a message as read and notifies its sender.
	CommandMarkRead
	// CommandAddReaction adds a reaction to a message.
	CommandAddReaction
)

// Command represents an action requested by a client.
type Command struct {
	Kind       CommandKind
	Room       string
	ReceiverID *int64
	Message    Message
	IsTyping   bool
	MessageID  int64
	Reaction   string
}
