package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/middleware"
	"github.com/thousandways/scitore-api/internal/services"
)

type BookmarkHandler struct {
	bookmarks *services.BookmarkService
}

func NewBookmarkHandler(bookmarks *services.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks}
}

func (h *BookmarkHandler) Toggle(c *fiber.Ctx) error {
	var req dto.ToggleBookmarkRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.UserID == "" || req.PlaylistID == "" {
		return badRequest(c, "userId and playlistId are required")
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return badRequest(c, "userId is not a valid id")
	}
	playlistID, err := uuid.Parse(req.PlaylistID)
	if err != nil {
		return badRequest(c, "playlistId is not a valid id")
	}
	if !middleware.IsSelf(c, req.UserID) {
		return forbidden(c)
	}

	bookmarked, err := h.bookmarks.Toggle(c.UserContext(), userID, playlistID)
	if err != nil {
		return respondError(c, err, "toggle_bookmark")
	}
	return c.JSON(dto.BookmarkStatusResponse{Success: true, Bookmarked: bookmarked})
}

func (h *BookmarkHandler) List(c *fiber.Ctx) error {
	userID, ok := parseID(c, "userId")
	if !ok {
		return badRequest(c, "Invalid userId")
	}
	bookmarks, err := h.bookmarks.List(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err, "list_bookmarks")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: bookmarks})
}

func (h *BookmarkHandler) Status(c *fiber.Ctx) error {
	userID, ok := parseID(c, "userId")
	if !ok {
		return badRequest(c, "Invalid userId")
	}
	playlistID, ok := parseID(c, "playlistId")
	if !ok {
		return badRequest(c, "Invalid playlistId")
	}
	bookmarked, err := h.bookmarks.IsBookmarked(c.UserContext(), userID, playlistID)
	if err != nil {
		return respondError(c, err, "bookmark_status")
	}
	return c.JSON(dto.BookmarkStatusResponse{Success: true, Bookmarked: bookmarked})
}
