package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound event types.
const (
	InboundTypeJoin        = "join"
	InboundTypeJoinRoom    = "join_room"
	InboundTypeLeaveRoom   = "leave_room"
	InboundTypeSendMessage = "send_message"
	InboundTypeTyping      = "typing"
	InboundTypeMarkRead    = "mark_read"
	InboundTypeAddReaction = "add_reaction"
)

// Outbound event types.
const (
	OutboundReceiveMessage  = "receive_message"
	OutboundPrivateMessage  = "private_message"
	OutboundTyping          = "typing"
	OutboundUserOnline      = "user_online"
	OutboundUserOffline     = "user_offline"
	OutboundOnlineUsers     = "online_users"
	OutboundUserJoinedRoom  = "user_joined_room"
	OutboundUserLeftRoom    = "user_left_room"
	OutboundMessageReaction = "message_reaction"
	OutboundMessageRead     = "message_read"
	OutboundRoomJoined      = "room_joined"
	OutboundMessageError    = "message_error"
)

// JoinData registers the user's session.
type JoinData struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// RoomData names a room for join_room / leave_room.
type RoomData struct {
	Room string `json:"room"`
}

// SendMessageData is a chat message from the client. Exactly one of Room and
// Receiver must be set.
type SendMessageData struct {
	Content     string `json:"content"`
	Room        string `json:"room,omitempty"`
	Receiver    *int64 `json:"receiver,omitempty"`
	MessageType string `json:"messageType,omitempty"`
	FileURL     string `json:"fileUrl,omitempty"`
	FileName    string `json:"fileName,omitempty"`
}

// TypingData is a typing indicator from the client.
type TypingData struct {
	Room     string `json:"room,omitempty"`
	Receiver *int64 `json:"receiver,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

// MarkReadData requests a read receipt for a message.
type MarkReadData struct {
	MessageID int64 `json:"messageId"`
}

// AddReactionData adds a reaction to a message.
type AddReactionData struct {
	MessageID int64  `json:"messageId"`
	Reaction  string `json:"reaction"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessagePayload carries a delivered chat message.
type MessagePayload struct {
	ID          int64      `json:"id"`
	Sender      int64      `json:"sender"`
	SenderName  string     `json:"senderName"`
	Receiver    *int64     `json:"receiver,omitempty"`
	Room        string     `json:"room,omitempty"`
	Content     string     `json:"content"`
	MessageType string     `json:"messageType"`
	FileURL     string     `json:"fileUrl,omitempty"`
	FileName    string     `json:"fileName,omitempty"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// PresencePayload announces a user going online or offline.
type PresencePayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// OnlineUserPayload is one entry of the online_users snapshot.
type OnlineUserPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// RoomEventPayload notifies room members about a join or leave.
type RoomEventPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Room     string `json:"room"`
}

// RoomJoinedPayload acknowledges a join to the requester.
type RoomJoinedPayload struct {
	Room string `json:"room"`
}

// TypingPayload relays a typing indicator.
type TypingPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
	Room     string `json:"room,omitempty"`
	Type     string `json:"type,omitempty"` // "private" for direct typing
}

// ReactionPayload broadcasts an added reaction.
type ReactionPayload struct {
	MessageID int64  `json:"messageId"`
	Reaction  string `json:"reaction"`
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
}

// ReadPayload notifies a sender that their message was read.
type ReadPayload struct {
	MessageID int64     `json:"messageId"`
	ReadBy    int64     `json:"readBy"`
	ReadAt    time.Time `json:"readAt"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
