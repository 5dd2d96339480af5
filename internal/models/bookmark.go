package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookmarkPlaylist exists iff the user bookmarked the playlist.
type BookmarkPlaylist struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_user_playlist,priority:1" json:"userId"`
	PlaylistID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_user_playlist,priority:2" json:"playlistId"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	Playlist *Playlist `gorm:"foreignKey:PlaylistID" json:"playlist,omitempty"`
}

func (b *BookmarkPlaylist) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
