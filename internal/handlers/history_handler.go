package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/middleware"
	"github.com/thousandways/scitore-api/internal/services"
)

type HistoryHandler struct {
	playback *services.PlaybackService
}

func NewHistoryHandler(playback *services.PlaybackService) *HistoryHandler {
	return &HistoryHandler{playback: playback}
}

func (h *HistoryHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdatePlayHistoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	upd, err := services.NewPlaybackUpdate(&req)
	if err != nil {
		return respondError(c, err, "update_play_history")
	}
	if !middleware.IsSelf(c, upd.UserID.String()) {
		return forbidden(c)
	}

	history, err := h.playback.Upsert(c.UserContext(), upd)
	if err != nil {
		return respondError(c, err, "update_play_history")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: history})
}

func (h *HistoryHandler) List(c *fiber.Ctx) error {
	userID, ok := parseID(c, "userId")
	if !ok {
		return badRequest(c, "Invalid userId")
	}
	history, err := h.playback.ListForUser(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err, "list_play_history")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: history})
}

// Get answers 200 with null data when the playlist was never played.
func (h *HistoryHandler) Get(c *fiber.Ctx) error {
	userID, ok := parseID(c, "userId")
	if !ok {
		return badRequest(c, "Invalid userId")
	}
	playlistID, ok := parseID(c, "playlistId")
	if !ok {
		return badRequest(c, "Invalid playlistId")
	}
	history, err := h.playback.Get(c.UserContext(), userID, playlistID)
	if err != nil {
		return respondError(c, err, "get_play_history")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: history})
}
