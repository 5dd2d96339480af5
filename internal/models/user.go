package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is created on the first successful social login. Entitlement fields
// are owned by the billing webhook.
type User struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string     `gorm:"not null;size:255;uniqueIndex" json:"email"`
	EmailVerified    bool       `gorm:"not null;default:false" json:"-"`
	Name             string     `gorm:"size:255" json:"name"`
	Gender           string     `gorm:"size:50" json:"gender"`
	Age              *int       `json:"age"`
	Language         string     `gorm:"size:50" json:"language"`
	AppleUserID      *string    `gorm:"size:255;uniqueIndex" json:"-"`
	FCMToken         string     `gorm:"size:512" json:"fcmToken"`
	Platform         string     `gorm:"size:50" json:"platform"`
	Role             string     `gorm:"size:20;default:'user'" json:"-"`
	IsPremium        bool       `gorm:"not null" json:"isPremium"`
	PremiumExpiresAt *time.Time `json:"premiumExpiresAt"`
	PremiumPlan      *string    `gorm:"size:255" json:"premiumPlan"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps email lookups case-insensitive.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	u.Name = strings.TrimSpace(u.Name)
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
