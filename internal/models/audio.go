package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audio is a single playable track. Playlists reference it by id.
type Audio struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string                      `gorm:"size:500" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Image       string                      `gorm:"type:text" json:"image"`
	Author      string                      `gorm:"size:255" json:"author"`
	URL         string                      `gorm:"type:text;not null" json:"url"`
	StorageKey  string                      `gorm:"size:500" json:"-"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Duration    *float64                    `json:"duration"`
	Gold        bool                        `gorm:"not null" json:"gold"`
	CreatedAt   time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

func (Audio) TableName() string {
	return "audios"
}

func (a *Audio) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Tags == nil {
		a.Tags = datatypes.JSONSlice[string]{}
	}
	return nil
}
