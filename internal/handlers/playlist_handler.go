package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/services"
)

type PlaylistHandler struct {
	playlists *services.PlaylistService
}

func NewPlaylistHandler(playlists *services.PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists}
}

func (h *PlaylistHandler) Create(c *fiber.Ctx) error {
	var req dto.PlaylistRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	playlist, err := h.playlists.Create(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err, "create_playlist")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{Success: true, Data: playlist})
}

func (h *PlaylistHandler) CreateBulk(c *fiber.Ctx) error {
	var req dto.BulkPlaylistRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid data. Expected 'playlist' object and 'chapters' array.")
	}
	playlist, err := h.playlists.CreateBulk(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err, "create_playlist_bulk")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{Success: true, Data: playlist})
}

func (h *PlaylistHandler) List(c *fiber.Ctx) error {
	page := services.NewPage(c.QueryInt("page", 1), c.QueryInt("limit", 20))
	playlists, total, err := h.playlists.List(c.UserContext(), page)
	if err != nil {
		return respondError(c, err, "list_playlists")
	}
	return c.JSON(dto.PageResponse{Success: true, Data: playlists, Pagination: page.Pagination(total)})
}

func (h *PlaylistHandler) Search(c *fiber.Ctx) error {
	playlists, err := h.playlists.Search(c.UserContext(), c.Query("q"), c.Query("category"))
	if err != nil {
		return respondError(c, err, "search_playlists")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: playlists})
}

func (h *PlaylistHandler) Get(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid playlist id")
	}
	playlist, err := h.playlists.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, "get_playlist")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: playlist})
}

func (h *PlaylistHandler) Update(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid playlist id")
	}
	var req dto.PlaylistRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	playlist, err := h.playlists.Update(c.UserContext(), id, &req)
	if err != nil {
		return respondError(c, err, "update_playlist")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: playlist})
}

func (h *PlaylistHandler) UpdateChapters(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid playlist id")
	}
	var req dto.UpdateChaptersRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "chapters must be an array of Audio IDs")
	}
	playlist, err := h.playlists.UpdateChapters(c.UserContext(), id, req.Chapters)
	if err != nil {
		return respondError(c, err, "update_chapters")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: playlist})
}

func (h *PlaylistHandler) Delete(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid playlist id")
	}
	if err := h.playlists.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err, "delete_playlist")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: fiber.Map{"message": "Playlist deleted successfully"}})
}
