package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/models"
)

// UpdateUserRequest wraps the editable profile fields under "user". Absent
// fields are left untouched.
type UpdateUserRequest struct {
	User *UserFields `json:"user"`
}

type UserFields struct {
	Name     *string `json:"name"`
	Gender   *string `json:"gender"`
	Age      *int    `json:"age"`
	Language *string `json:"language"`
	FCMToken *string `json:"fcmToken"`
	Platform *string `json:"platform"`
}

type UserResponse struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Gender           string     `json:"gender"`
	Age              *int       `json:"age"`
	Language         string     `json:"language"`
	FCMToken         string     `json:"fcmToken"`
	Platform         string     `json:"platform"`
	IsPremium        bool       `json:"isPremium"`
	PremiumExpiresAt *time.Time `json:"premiumExpiresAt"`
	PremiumPlan      *string    `json:"premiumPlan"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Gender:           u.Gender,
		Age:              u.Age,
		Language:         u.Language,
		FCMToken:         u.FCMToken,
		Platform:         u.Platform,
		IsPremium:        u.IsPremium,
		PremiumExpiresAt: u.PremiumExpiresAt,
		PremiumPlan:      u.PremiumPlan,
	}
}
