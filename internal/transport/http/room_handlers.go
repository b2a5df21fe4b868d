package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/service/rooms"
)

// RoomHandlers provides read-only HTTP access to rooms. Room changes go
// through the websocket gateway.
type RoomHandlers struct {
	service *rooms.Service
	log     *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(svc *rooms.Service, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		service: svc,
		log:     logger,
	}
}

// Mine returns the caller's rooms with recent history, the same views the
// websocket pushes as initRooms.
// GET /api/room/mine
func (h *RoomHandlers) Mine(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	views, err := h.service.Snapshot(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, views)
}
