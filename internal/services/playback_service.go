package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlaybackUpdate replaces every mutable field of a history row.
type PlaybackUpdate struct {
	UserID            uuid.UUID
	PlaylistID        uuid.UUID
	ChapterIndex      int
	ChapterID         *uuid.UUID
	PositionSeconds   float64
	CompletedChapters []uuid.UUID
	IsCompleted       bool
}

// NewPlaybackUpdate validates a client payload. Missing numbers and lists
// become zero values.
func NewPlaybackUpdate(req *dto.UpdatePlayHistoryRequest) (*PlaybackUpdate, error) {
	if req.UserID == "" || req.PlaylistID == "" {
		return nil, validationError("userId and playlistId are required")
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, validationError("userId is not a valid id")
	}
	playlistID, err := uuid.Parse(req.PlaylistID)
	if err != nil {
		return nil, validationError("playlistId is not a valid id")
	}

	upd := &PlaybackUpdate{
		UserID:            userID,
		PlaylistID:        playlistID,
		CompletedChapters: []uuid.UUID{},
	}
	if req.CurrentChapterIndex != nil {
		upd.ChapterIndex = *req.CurrentChapterIndex
	}
	if req.PositionSeconds != nil {
		upd.PositionSeconds = *req.PositionSeconds
	}
	if req.IsCompleted != nil {
		upd.IsCompleted = *req.IsCompleted
	}
	if req.CurrentChapterID != "" {
		chapterID, err := uuid.Parse(req.CurrentChapterID)
		if err != nil {
			return nil, validationError("currentChapterId is not a valid id")
		}
		upd.ChapterID = &chapterID
	}
	for _, raw := range req.CompletedChapters {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, validationError("completedChapters must contain valid ids")
		}
		upd.CompletedChapters = append(upd.CompletedChapters, id)
	}

	if upd.ChapterIndex < 0 || upd.PositionSeconds < 0 {
		return nil, validationError("currentChapterIndex and positionSeconds must not be negative")
	}
	return upd, nil
}

type PlaybackService struct {
	db        *gorm.DB
	playlists *PlaylistService
	now       func() time.Time
}

func NewPlaybackService(db *gorm.DB, playlists *PlaylistService) *PlaybackService {
	return &PlaybackService{db: db, playlists: playlists, now: time.Now}
}

// Upsert writes the cursor for (user, playlist). Concurrent writers are
// last-write-wins; lastPlayedAt is always the server time.
func (s *PlaybackService) Upsert(ctx context.Context, upd *PlaybackUpdate) (*models.PlayHistory, error) {
	completed := upd.CompletedChapters
	if completed == nil {
		completed = []uuid.UUID{}
	}

	row := models.PlayHistory{
		UserID:              upd.UserID,
		PlaylistID:          upd.PlaylistID,
		CurrentChapterIndex: upd.ChapterIndex,
		CurrentChapterID:    upd.ChapterID,
		PositionSeconds:     upd.PositionSeconds,
		CompletedChapters:   datatypes.JSONSlice[uuid.UUID](completed),
		IsCompleted:         upd.IsCompleted,
		LastPlayedAt:        s.now().UTC(),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "playlist_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_chapter_index",
			"current_chapter_id",
			"position_seconds",
			"completed_chapters",
			"is_completed",
			"last_played_at",
			"updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert play history: %w", err)
	}

	stored, err := s.Get(ctx, upd.UserID, upd.PlaylistID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("play history missing after upsert")
	}
	return stored, nil
}

// ListForUser returns every cursor of the user, most recently played first,
// with the playlist and its chapters populated.
func (s *PlaybackService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.PlayHistory, error) {
	var history []models.PlayHistory
	err := s.db.WithContext(ctx).
		Preload("Playlist").
		Where("user_id = ?", userID).
		Order("last_played_at DESC").
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list play history: %w", err)
	}

	playlists := make([]*models.Playlist, 0, len(history))
	for i := range history {
		if history[i].Playlist != nil {
			playlists = append(playlists, history[i].Playlist)
		}
	}
	if err := s.playlists.PopulateChapters(ctx, playlists...); err != nil {
		return nil, err
	}
	return history, nil
}

// Get returns the cursor for one playlist, or nil when the user never played it.
func (s *PlaybackService) Get(ctx context.Context, userID, playlistID uuid.UUID) (*models.PlayHistory, error) {
	var history models.PlayHistory
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND playlist_id = ?", userID, playlistID).
		Take(&history).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch play history: %w", err)
	}
	return &history, nil
}
