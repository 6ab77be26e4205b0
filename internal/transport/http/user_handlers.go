package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomcast/server/internal/presence"
	"github.com/roomcast/server/internal/store"
)

// UserHandlers provides HTTP handlers for user presence endpoints.
type UserHandlers struct {
	users  store.UserStore
	status presence.Status
	log    *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(users store.UserStore, status presence.Status, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{users: users, status: status, log: logger}
}

// OnlineUserResponse represents an online user in API responses.
type OnlineUserResponse struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// ListOnline reports which users are currently online.
// GET /api/users/online
func (h *UserHandlers) ListOnline(c *gin.Context) {
	ids, err := h.status.OnlineUserIDs(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list online users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]OnlineUserResponse, 0, len(ids))
	for _, id := range ids {
		user, err := h.users.GetUserByID(c.Request.Context(), id)
		if err != nil {
			continue
		}
		response = append(response, OnlineUserResponse{UserID: user.ID, Username: user.Username, Online: true})
	}
	c.JSON(http.StatusOK, response)
}
