package handlers

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/services"
)

const audioFormField = "audio"

type AudioHandler struct {
	audio *services.AudioService
}

func NewAudioHandler(audio *services.AudioService) *AudioHandler {
	return &AudioHandler{audio: audio}
}

func (h *AudioHandler) Create(c *fiber.Ctx) error {
	var req dto.AudioRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	audio, err := h.audio.Create(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err, "create_audio")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{Success: true, Data: audio})
}

// Upload takes a multipart body with the file under "audio" and optional
// metadata fields alongside it.
func (h *AudioHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile(audioFormField)
	if err != nil {
		return badRequest(c, "No audio file provided")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "Unreadable audio file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return badRequest(c, "Unreadable audio file")
	}

	meta, err := audioMetaFromForm(c)
	if err != nil {
		return badRequest(c, "Invalid audio metadata")
	}

	audio, err := h.audio.Upload(c.UserContext(), &services.AudioUpload{
		Data:        data,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
	}, meta)
	if err != nil {
		return respondError(c, err, "upload_audio")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{Success: true, Data: audio})
}

func (h *AudioHandler) List(c *fiber.Ctx) error {
	page := services.NewPage(c.QueryInt("page", 1), c.QueryInt("limit", 20))
	audios, total, err := h.audio.List(c.UserContext(), page)
	if err != nil {
		return respondError(c, err, "list_audio")
	}
	return c.JSON(dto.PageResponse{Success: true, Data: audios, Pagination: page.Pagination(total)})
}

func (h *AudioHandler) Get(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid audio id")
	}
	audio, err := h.audio.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, "get_audio")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: audio})
}

func (h *AudioHandler) Update(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid audio id")
	}
	var req dto.AudioRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	audio, err := h.audio.Update(c.UserContext(), id, &req)
	if err != nil {
		return respondError(c, err, "update_audio")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: audio})
}

func (h *AudioHandler) Delete(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid audio id")
	}
	if err := h.audio.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err, "delete_audio")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: fiber.Map{"message": "Audio deleted successfully"}})
}

// audioMetaFromForm reads the optional metadata fields sent with an upload.
// Tags are comma separated.
func audioMetaFromForm(c *fiber.Ctx) (*dto.AudioRequest, error) {
	meta := &dto.AudioRequest{}
	str := func(key string) *string {
		if v := c.FormValue(key); v != "" {
			return &v
		}
		return nil
	}
	meta.Title = str("title")
	meta.Description = str("description")
	meta.Image = str("image")
	meta.Author = str("author")

	if v := c.FormValue("tags"); v != "" {
		tags := make([]string, 0)
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		meta.Tags = &tags
	}
	if v := c.FormValue("duration"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, errors.New("negative duration")
		}
		meta.Duration = &d
	}
	if v := c.FormValue("gold"); v != "" {
		g, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		meta.Gold = &g
	}
	return meta, nil
}
