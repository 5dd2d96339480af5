package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Playlist keeps its chapters as an ordered list of Audio ids. Deleting an
// Audio does not touch playlists; population skips ids that no longer resolve.
type Playlist struct {
	ID          uuid.UUID                      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string                         `gorm:"size:500;not null" json:"title"`
	Description string                         `gorm:"type:text" json:"description"`
	Category    string                         `gorm:"size:255;index" json:"category"`
	Images      datatypes.JSONSlice[string]    `json:"images"`
	Author      string                         `gorm:"size:255;not null" json:"author"`
	ChapterIDs  datatypes.JSONSlice[uuid.UUID] `json:"chapterIds"`
	Tags        datatypes.JSONSlice[string]    `json:"tags"`
	Duration    *float64                       `json:"duration"`
	CreatedAt   time.Time                      `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time                      `json:"updatedAt"`

	Chapters []Audio `gorm:"-" json:"chapters"`
}

func (p *Playlist) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Images == nil {
		p.Images = datatypes.JSONSlice[string]{}
	}
	if p.ChapterIDs == nil {
		p.ChapterIDs = datatypes.JSONSlice[uuid.UUID]{}
	}
	if p.Tags == nil {
		p.Tags = datatypes.JSONSlice[string]{}
	}
	return nil
}
