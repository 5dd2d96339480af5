package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	var req dto.GoogleLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.GoogleLogin(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err, "google_login")
	}
	return c.JSON(resp)
}

func (h *AuthHandler) AppleLogin(c *fiber.Ctx) error {
	var req dto.AppleLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.AppleLogin(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err, "apple_login")
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Refresh(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err, "refresh")
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.Logout(c.UserContext(), &req); err != nil {
		return respondError(c, err, "logout")
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: fiber.Map{"message": "Logged out successfully"}})
}
