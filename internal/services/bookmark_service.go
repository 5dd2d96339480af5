package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/models"
	"gorm.io/gorm"
)

type BookmarkService struct {
	db        *gorm.DB
	playlists *PlaylistService
}

func NewBookmarkService(db *gorm.DB, playlists *PlaylistService) *BookmarkService {
	return &BookmarkService{db: db, playlists: playlists}
}

// Toggle flips the bookmark and reports the resulting state.
func (s *BookmarkService) Toggle(ctx context.Context, userID, playlistID uuid.UUID) (bool, error) {
	var bookmarked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND playlist_id = ?", userID, playlistID).Delete(&models.BookmarkPlaylist{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			bookmarked = false
			return nil
		}

		if err := tx.Create(&models.BookmarkPlaylist{UserID: userID, PlaylistID: playlistID}).Error; err != nil {
			return err
		}
		bookmarked = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with a concurrent toggle that created the row
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle bookmark: %w", err)
	}
	return bookmarked, nil
}

func (s *BookmarkService) List(ctx context.Context, userID uuid.UUID) ([]models.BookmarkPlaylist, error) {
	var bookmarks []models.BookmarkPlaylist
	err := s.db.WithContext(ctx).
		Preload("Playlist").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookmarks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	playlists := make([]*models.Playlist, 0, len(bookmarks))
	for i := range bookmarks {
		if bookmarks[i].Playlist != nil {
			playlists = append(playlists, bookmarks[i].Playlist)
		}
	}
	if err := s.playlists.PopulateChapters(ctx, playlists...); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

func (s *BookmarkService) IsBookmarked(ctx context.Context, userID, playlistID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.BookmarkPlaylist{}).
		Where("user_id = ? AND playlist_id = ?", userID, playlistID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark: %w", err)
	}
	return count > 0, nil
}
