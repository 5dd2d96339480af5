package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/models"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// Update writes only the profile fields present in the request. Email,
// provider ids and entitlement state are never client-editable.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req *dto.UpdateUserRequest) (*models.User, error) {
	if req == nil || req.User == nil {
		return nil, validationError("Invalid user data")
	}
	f := req.User

	updates := map[string]interface{}{}
	if f.Name != nil {
		updates["name"] = strings.TrimSpace(*f.Name)
	}
	if f.Gender != nil {
		updates["gender"] = *f.Gender
	}
	if f.Age != nil {
		if *f.Age < 0 {
			return nil, validationError("age must not be negative")
		}
		updates["age"] = *f.Age
	}
	if f.Language != nil {
		updates["language"] = *f.Language
	}
	if f.FCMToken != nil {
		updates["fcm_token"] = *f.FCMToken
	}
	if f.Platform != nil {
		updates["platform"] = *f.Platform
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes the user and everything keyed by the user id.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		dependents := []interface{}{
			&models.PlayHistory{},
			&models.BookmarkPlaylist{},
			&models.RefreshToken{},
			&models.EntitlementEvent{},
		}
		for _, m := range dependents {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("failed to delete user data: %w", err)
			}
		}
		return nil
	})
}
