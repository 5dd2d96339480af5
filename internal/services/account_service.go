package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thousandways/scitore-api/internal/models"
	"gorm.io/gorm"
)

const defaultDisplayName = "User"

// AccountService maps verified provider claims onto local users.
type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

// ReconcileGoogle finds the user by email or creates one. No Google subject
// is stored, so the email is the only link to the account.
func (s *AccountService) ReconcileGoogle(ctx context.Context, claims *VerifiedClaims) (*models.User, bool, error) {
	email := models.NormalizeEmail(claims.Email)

	user, err := s.findByEmail(ctx, email)
	if err == nil {
		if err := s.markEmailVerified(ctx, user, claims); err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	created := &models.User{Email: email, Name: claims.DisplayName, EmailVerified: claims.EmailVerified}
	if err := s.db.WithContext(ctx).Create(created).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// a concurrent first login won the insert
			if existing, findErr := s.findByEmail(ctx, email); findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to create Google user: %w", err)
	}
	return created, true, nil
}

// ReconcileApple matches on the Apple subject or the email, so later logins
// without an email and accounts first created through Google both resolve to
// the same user. A matched user without an Apple id gets it linked.
func (s *AccountService) ReconcileApple(ctx context.Context, claims *VerifiedClaims) (*models.User, bool, error) {
	email := models.NormalizeEmail(claims.Email)
	appleUserID := claims.SubjectID

	user, err := s.findByAppleID(ctx, appleUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.findByEmail(ctx, email)
	}

	switch {
	case err == nil:
		if user.AppleUserID == nil {
			if err := s.db.WithContext(ctx).Model(user).Update("apple_user_id", appleUserID).Error; err != nil {
				return nil, false, fmt.Errorf("failed to link Apple id: %w", err)
			}
			user.AppleUserID = &appleUserID
			slog.Info("linked apple id to existing user", "user_id", user.ID.String())
		} else if *user.AppleUserID != appleUserID {
			slog.Warn("apple login matched user with a different apple id", "user_id", user.ID.String())
		}
		if err := s.markEmailVerified(ctx, user, claims); err != nil {
			return nil, false, err
		}
		return user, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	name := claims.DisplayName
	if name == "" {
		name = defaultDisplayName
	}
	created := &models.User{
		Email:         email,
		Name:          name,
		AppleUserID:   &appleUserID,
		EmailVerified: claims.EmailVerified,
	}
	if err := s.db.WithContext(ctx).Create(created).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// a concurrent first login won the insert
			existing, findErr := s.findByAppleID(ctx, appleUserID)
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				existing, findErr = s.findByEmail(ctx, email)
			}
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to create Apple user: %w", err)
	}
	return created, true, nil
}

// markEmailVerified records that a provider signed the user's stored email.
// Only signed emails count; a client-supplied fallback never upgrades it.
func (s *AccountService) markEmailVerified(ctx context.Context, user *models.User, claims *VerifiedClaims) error {
	if user.EmailVerified || !claims.EmailVerified || models.NormalizeEmail(claims.Email) != user.Email {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(user).Update("email_verified", true).Error; err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	user.EmailVerified = true
	return nil
}

func (s *AccountService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AccountService) findByAppleID(ctx context.Context, appleUserID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("apple_user_id = ?", appleUserID).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
