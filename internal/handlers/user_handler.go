package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/services"
)

// UserHandler serves /api/users/:id. Routes are guarded by RequireSelf.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user id")
	}
	user, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, "get_user")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: dto.NewUserResponse(user)})
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user id")
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid user data")
	}

	user, err := h.users.Update(c.UserContext(), id, &req)
	if err != nil {
		return respondError(c, err, "update_user")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: dto.NewUserResponse(user)})
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user id")
	}
	if err := h.users.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err, "delete_user")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: fiber.Map{"message": "Account deleted successfully"}})
}
