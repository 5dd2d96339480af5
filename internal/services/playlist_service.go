package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const searchLimit = 20

type PlaylistService struct {
	db *gorm.DB
}

func NewPlaylistService(db *gorm.DB) *PlaylistService {
	return &PlaylistService{db: db}
}

func (s *PlaylistService) Create(ctx context.Context, req *dto.PlaylistRequest) (*models.Playlist, error) {
	playlist, err := newPlaylist(req)
	if err != nil {
		return nil, err
	}
	if req.Chapters != nil {
		ids, err := parseIDs(*req.Chapters, "chapters")
		if err != nil {
			return nil, err
		}
		playlist.ChapterIDs = ids
	}

	if err := s.db.WithContext(ctx).Create(playlist).Error; err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	return s.Get(ctx, playlist.ID)
}

// CreateBulk creates the chapter audio rows and the playlist that lists them
// in one transaction.
func (s *PlaylistService) CreateBulk(ctx context.Context, req *dto.BulkPlaylistRequest) (*models.Playlist, error) {
	if req.Playlist == nil || req.Chapters == nil {
		return nil, validationError("Invalid data. Expected 'playlist' object and 'chapters' array.")
	}
	playlist, err := newPlaylist(req.Playlist)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make(datatypes.JSONSlice[uuid.UUID], 0, len(req.Chapters))
		for i, ch := range req.Chapters {
			if strings.TrimSpace(ch.URL) == "" {
				return validationError(fmt.Sprintf("chapter %d has no url", i))
			}
			audio := &models.Audio{
				Title:       ch.Title,
				Description: ch.Description,
				Image:       ch.Image,
				Author:      ch.Author,
				URL:         strings.TrimSpace(ch.URL),
				Tags:        datatypes.JSONSlice[string](nonNilStrings(ch.Tags)),
				Duration:    ch.Duration,
			}
			if audio.Title == "" {
				audio.Title = "Untitled Chapter"
			}
			if audio.Author == "" {
				audio.Author = playlist.Author
			}
			if err := tx.Create(audio).Error; err != nil {
				return fmt.Errorf("failed to create chapter %d: %w", i, err)
			}
			ids = append(ids, audio.ID)
		}

		playlist.ChapterIDs = ids
		if err := tx.Create(playlist).Error; err != nil {
			return fmt.Errorf("failed to create playlist: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, playlist.ID)
}

func (s *PlaylistService) List(ctx context.Context, page Page) ([]models.Playlist, int64, error) {
	var (
		playlists []models.Playlist
		total     int64
	)
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Playlist{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count playlists: %w", err)
	}
	err := db.Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&playlists).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list playlists: %w", err)
	}
	if err := s.PopulateChapters(ctx, playlistPtrs(playlists)...); err != nil {
		return nil, 0, err
	}
	return playlists, total, nil
}

// Search matches q against title or category, or category alone when q is
// empty. Matching is a case-insensitive substring match.
func (s *PlaylistService) Search(ctx context.Context, q, category string) ([]models.Playlist, error) {
	tx := s.db.WithContext(ctx).Model(&models.Playlist{})
	if q = strings.TrimSpace(q); q != "" {
		pattern := likePattern(q)
		tx = tx.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\'`, pattern, pattern)
	} else if category = strings.TrimSpace(category); category != "" {
		tx = tx.Where(`LOWER(category) LIKE ? ESCAPE '\'`, likePattern(category))
	}

	var playlists []models.Playlist
	if err := tx.Order("created_at DESC").Limit(searchLimit).Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("failed to search playlists: %w", err)
	}
	if err := s.PopulateChapters(ctx, playlistPtrs(playlists)...); err != nil {
		return nil, err
	}
	return playlists, nil
}

func (s *PlaylistService) Get(ctx context.Context, id uuid.UUID) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := s.db.WithContext(ctx).Take(&playlist, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("playlist %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}
	if err := s.PopulateChapters(ctx, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

func (s *PlaylistService) Update(ctx context.Context, id uuid.UUID, req *dto.PlaylistRequest) (*models.Playlist, error) {
	playlist, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, validationError("title must not be empty")
		}
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Author != nil {
		if strings.TrimSpace(*req.Author) == "" {
			return nil, validationError("author must not be empty")
		}
		updates["author"] = strings.TrimSpace(*req.Author)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Images != nil {
		updates["images"] = datatypes.JSONSlice[string](nonNilStrings(*req.Images))
	}
	if req.Tags != nil {
		updates["tags"] = datatypes.JSONSlice[string](nonNilStrings(*req.Tags))
	}
	if req.Duration != nil {
		updates["duration"] = *req.Duration
	}
	if len(updates) == 0 {
		return playlist, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Playlist{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update playlist: %w", err)
	}
	return s.Get(ctx, id)
}

// UpdateChapters replaces the ordered chapter list.
func (s *PlaylistService) UpdateChapters(ctx context.Context, id uuid.UUID, chapters []string) (*models.Playlist, error) {
	if chapters == nil {
		return nil, validationError("chapters must be an array of Audio IDs")
	}
	ids, err := parseIDs(chapters, "chapters")
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.Playlist{}).
		Where("id = ?", id).
		Update("chapter_ids", ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update chapters: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *PlaylistService) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Playlist{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete playlist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("playlist %w", ErrNotFound)
	}
	return nil
}

// PopulateChapters resolves every playlist's chapter ids with one query.
// Order is kept; ids with no matching audio are left out.
func (s *PlaylistService) PopulateChapters(ctx context.Context, playlists ...*models.Playlist) error {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, p := range playlists {
		for _, id := range p.ChapterIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	byID := make(map[uuid.UUID]models.Audio, len(ids))
	if len(ids) > 0 {
		var audios []models.Audio
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&audios).Error; err != nil {
			return fmt.Errorf("failed to populate chapters: %w", err)
		}
		for _, a := range audios {
			byID[a.ID] = a
		}
	}

	for _, p := range playlists {
		p.Chapters = make([]models.Audio, 0, len(p.ChapterIDs))
		for _, id := range p.ChapterIDs {
			if a, ok := byID[id]; ok {
				p.Chapters = append(p.Chapters, a)
			}
		}
	}
	return nil
}

func newPlaylist(req *dto.PlaylistRequest) (*models.Playlist, error) {
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return nil, validationError("title is required")
	}
	if req.Author == nil || strings.TrimSpace(*req.Author) == "" {
		return nil, validationError("author is required")
	}

	p := &models.Playlist{
		Title:  strings.TrimSpace(*req.Title),
		Author: strings.TrimSpace(*req.Author),
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Images != nil {
		p.Images = datatypes.JSONSlice[string](nonNilStrings(*req.Images))
	}
	if req.Tags != nil {
		p.Tags = datatypes.JSONSlice[string](nonNilStrings(*req.Tags))
	}
	if req.Duration != nil {
		d := *req.Duration
		p.Duration = &d
	}
	return p, nil
}

func parseIDs(raw []string, field string) (datatypes.JSONSlice[uuid.UUID], error) {
	ids := make(datatypes.JSONSlice[uuid.UUID], 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, validationError(field + " must contain valid ids")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func playlistPtrs(playlists []models.Playlist) []*models.Playlist {
	ptrs := make([]*models.Playlist, len(playlists))
	for i := range playlists {
		ptrs[i] = &playlists[i]
	}
	return ptrs
}

// likePattern lowercases s and escapes LIKE wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
