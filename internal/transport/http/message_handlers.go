package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomcast/server/internal/store"
)

// defaultHistoryLimit caps message history responses.
const defaultHistoryLimit = 50

// MessageHandlers provides HTTP handlers for message history.
type MessageHandlers struct {
	store store.MessageStore
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.MessageStore, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{store: st, log: logger}
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID          int64              `json:"id"`
	Sender      int64              `json:"sender"`
	SenderName  string             `json:"senderName"`
	Receiver    *int64             `json:"receiver,omitempty"`
	Room        string             `json:"room,omitempty"`
	Content     string             `json:"content"`
	MessageType string             `json:"messageType"`
	FileURL     string             `json:"fileUrl,omitempty"`
	FileName    string             `json:"fileName,omitempty"`
	Read        bool               `json:"read"`
	ReadAt      string             `json:"readAt,omitempty"`
	Reactions   map[string][]int64 `json:"reactions,omitempty"`
	CreatedAt   string             `json:"createdAt"`
}

// ListMessages returns room history (?room=) or direct history (?userId=)
// for the authenticated user.
// GET /api/messages
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	room := c.Query("room")
	peer := c.Query("userId")

	var (
		messages []*store.Message
		err      error
	)
	switch {
	case room != "" && peer == "":
		messages, err = h.store.ListRoomMessages(c.Request.Context(), room, limit)
	case peer != "" && room == "":
		var peerID int64
		peerID, err = strconv.ParseInt(peer, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid userId"})
			return
		}
		messages, err = h.store.ListDirectMessages(c.Request.Context(), uid, peerID, limit)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "exactly one of room or userId is required"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, messageResponse(msg))
	}
	c.JSON(http.StatusOK, response)
}

func messageResponse(msg *store.Message) MessageResponse {
	resp := MessageResponse{
		ID:          msg.ID,
		Sender:      msg.SenderID,
		SenderName:  msg.SenderName,
		Receiver:    msg.ReceiverID,
		Room:        msg.Room,
		Content:     msg.Content,
		MessageType: string(msg.Type),
		FileURL:     msg.FileURL,
		FileName:    msg.FileName,
		Read:        msg.Read,
		Reactions:   msg.Reactions,
		CreatedAt:   msg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if msg.ReadAt != nil {
		resp.ReadAt = msg.ReadAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
