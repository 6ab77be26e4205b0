package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomcast/server/internal/core"
	"github.com/roomcast/server/internal/store"
)

// RoomHandlers provides HTTP handlers for room management endpoints.
// Persisted metadata comes from the store; live occupancy from the hub.
type RoomHandlers struct {
	store store.RoomStore
	hub   *core.Hub
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.RoomStore, hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store: st,
		hub:   hub,
		log:   logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	OwnerID   *int64 `json:"owner_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// MembersResponse lists a room's live occupants.
type MembersResponse struct {
	Room    string  `json:"room"`
	Members []int64 `json:"members"`
}

// CreateRoom handles room creation.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room, err := h.store.CreateRoom(c.Request.Context(), req.Name, store.RoomTypePublic, &uid)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "room with this name already exists"})
			return
		}
		h.log.Error().Err(err).Str("room_name", req.Name).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room_name", room.Name).Int64("room_id", room.ID).Int64("owner_id", uid).Msg("room created")
	c.JSON(http.StatusCreated, roomResponse(room))
}

// ListRooms handles listing rooms.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.store.ListRooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, roomResponse(room))
	}
	c.JSON(http.StatusOK, response)
}

// ListMembers reports a room's live occupants from the hub.
// GET /api/rooms/:name/members
func (h *RoomHandlers) ListMembers(c *gin.Context) {
	name := c.Param("name")
	members := h.hub.MembersOf(name)
	if members == nil {
		members = []int64{}
	}
	c.JSON(http.StatusOK, MembersResponse{Room: name, Members: members})
}

func roomResponse(room *store.Room) RoomResponse {
	return RoomResponse{
		ID:        room.ID,
		Name:      room.Name,
		Type:      string(room.Type),
		OwnerID:   room.OwnerID,
		CreatedAt: room.CreatedAt.Format(time.RFC3339),
	}
}
