package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlayHistory is the playback cursor of one user inside one playlist.
type PlayHistory struct {
	ID                  uuid.UUID                      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              uuid.UUID                      `gorm:"type:uuid;not null;uniqueIndex:idx_play_history_user_playlist,priority:1" json:"userId"`
	PlaylistID          uuid.UUID                      `gorm:"type:uuid;not null;uniqueIndex:idx_play_history_user_playlist,priority:2" json:"playlistId"`
	CurrentChapterIndex int                            `gorm:"not null" json:"currentChapterIndex"`
	CurrentChapterID    *uuid.UUID                     `gorm:"type:uuid" json:"currentChapterId"`
	PositionSeconds     float64                        `gorm:"not null" json:"positionSeconds"`
	CompletedChapters   datatypes.JSONSlice[uuid.UUID] `json:"completedChapters"`
	IsCompleted         bool                           `gorm:"not null" json:"isCompleted"`
	LastPlayedAt        time.Time                      `gorm:"not null;index" json:"lastPlayedAt"`
	CreatedAt           time.Time                      `json:"createdAt"`
	UpdatedAt           time.Time                      `json:"updatedAt"`

	Playlist *Playlist `gorm:"foreignKey:PlaylistID" json:"playlist,omitempty"`
}

func (PlayHistory) TableName() string {
	return "play_histories"
}

func (h *PlayHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
