package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntitlementEvent records a processed billing webhook event so that
// redeliveries are acknowledged without being applied twice.
type EntitlementEvent struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EventID     string     `gorm:"size:255;not null;uniqueIndex" json:"event_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Type        string     `gorm:"size:50" json:"type"`
	ProductID   string     `gorm:"size:255" json:"product_id"`
	IsPremium   bool       `gorm:"not null" json:"is_premium"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ProcessedAt time.Time  `gorm:"not null" json:"processed_at"`
}

func (e *EntitlementEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
