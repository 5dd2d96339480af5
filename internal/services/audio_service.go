package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/models"
	"github.com/thousandways/scitore-api/internal/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const untitled = "Untitled"

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

func (p Page) Pagination(total int64) dto.Pagination {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return dto.Pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

type AudioUpload struct {
	Data        []byte
	Filename    string
	ContentType string
}

type AudioService struct {
	db    *gorm.DB
	store storage.ObjectStore
}

func NewAudioService(db *gorm.DB, store storage.ObjectStore) *AudioService {
	return &AudioService{db: db, store: store}
}

func (s *AudioService) Create(ctx context.Context, req *dto.AudioRequest) (*models.Audio, error) {
	if req.URL == nil || strings.TrimSpace(*req.URL) == "" {
		return nil, validationError("No audio URL provided")
	}

	audio := newAudio(req)
	audio.URL = strings.TrimSpace(*req.URL)
	if err := s.db.WithContext(ctx).Create(audio).Error; err != nil {
		return nil, fmt.Errorf("failed to create audio: %w", err)
	}
	return audio, nil
}

// Upload stores the blob, then the row. The duration is probed from the MP3
// stream unless the caller supplied one.
func (s *AudioService) Upload(ctx context.Context, upload *AudioUpload, meta *dto.AudioRequest) (*models.Audio, error) {
	if upload == nil || len(upload.Data) == 0 {
		return nil, validationError("No audio file provided")
	}
	if !storage.IsAudioContentType(upload.ContentType) {
		return nil, validationError("Only audio files are allowed")
	}

	obj, err := s.store.Upload(ctx, upload.Data, upload.Filename, upload.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	audio := newAudio(meta)
	audio.URL = obj.URL
	audio.StorageKey = obj.Key
	if audio.Title == untitled && upload.Filename != "" {
		audio.Title = strings.TrimSuffix(filepath.Base(upload.Filename), filepath.Ext(upload.Filename))
	}
	if audio.Duration == nil {
		if d, err := storage.ProbeMP3Duration(bytes.NewReader(upload.Data)); err == nil {
			audio.Duration = &d
		} else {
			slog.Info("could not probe audio duration", "file", upload.Filename, "error", err)
		}
	}

	if err := s.db.WithContext(ctx).Create(audio).Error; err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			slog.Error("failed to remove orphaned upload", "key", obj.Key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create audio: %w", err)
	}
	return audio, nil
}

func (s *AudioService) List(ctx context.Context, page Page) ([]models.Audio, int64, error) {
	var (
		audios []models.Audio
		total  int64
	)
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Audio{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audio: %w", err)
	}
	err := db.Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&audios).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audio: %w", err)
	}
	return audios, total, nil
}

func (s *AudioService) Get(ctx context.Context, id uuid.UUID) (*models.Audio, error) {
	var audio models.Audio
	if err := s.db.WithContext(ctx).Take(&audio, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("audio %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}
	return &audio, nil
}

func (s *AudioService) Update(ctx context.Context, id uuid.UUID, req *dto.AudioRequest) (*models.Audio, error) {
	audio, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Author != nil {
		updates["author"] = *req.Author
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.URL != nil {
		if strings.TrimSpace(*req.URL) == "" {
			return nil, validationError("url must not be empty")
		}
		updates["url"] = strings.TrimSpace(*req.URL)
	}
	if req.Tags != nil {
		updates["tags"] = datatypes.JSONSlice[string](nonNilStrings(*req.Tags))
	}
	if req.Duration != nil {
		updates["duration"] = *req.Duration
	}
	if req.Gold != nil {
		updates["gold"] = *req.Gold
	}
	if len(updates) == 0 {
		return audio, nil
	}

	if err := s.db.WithContext(ctx).Model(audio).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update audio: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes the row. A failure to remove the stored blob is logged and
// does not stop the row deletion.
func (s *AudioService) Delete(ctx context.Context, id uuid.UUID) error {
	audio, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if audio.StorageKey != "" {
		if err := s.store.Delete(ctx, audio.StorageKey); err != nil {
			slog.Warn("object storage delete failed", "key", audio.StorageKey, "error", fmt.Errorf("%w: %v", ErrUpstream, err))
		}
	}

	if err := s.db.WithContext(ctx).Delete(&models.Audio{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete audio: %w", err)
	}
	return nil
}

func newAudio(req *dto.AudioRequest) *models.Audio {
	audio := &models.Audio{Title: untitled, Tags: datatypes.JSONSlice[string]{}}
	if req == nil {
		return audio
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		audio.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		audio.Description = *req.Description
	}
	if req.Image != nil {
		audio.Image = *req.Image
	}
	if req.Author != nil {
		audio.Author = *req.Author
	}
	if req.Tags != nil {
		audio.Tags = datatypes.JSONSlice[string](nonNilStrings(*req.Tags))
	}
	if req.Duration != nil {
		d := *req.Duration
		audio.Duration = &d
	}
	if req.Gold != nil {
		audio.Gold = *req.Gold
	}
	return audio
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
