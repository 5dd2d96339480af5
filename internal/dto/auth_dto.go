package dto

import (
	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/models"
)

type GoogleLoginRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type AppleLoginRequest struct {
	IDToken     string `json:"idToken"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	Success      bool        `json:"success"`
	IsNewUser    bool        `json:"isNewUser"`
	User         UserSummary `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type UserSummary struct {
	ID     uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Gender string    `json:"gender"`
	Age    *int      `json:"age"`
}

func NewUserSummary(u *models.User) UserSummary {
	return UserSummary{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Gender: u.Gender,
		Age:    u.Age,
	}
}
