package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const EventTypeExpiration = "EXPIRATION"

// EntitlementEvent is the single shape every billing delivery is normalized
// to before any business rule runs.
type EntitlementEvent struct {
	ID             string
	Type           string
	Subject        string
	EntitlementIDs []string
	ExpiresAt      *time.Time
	ProductID      string
}

// IsPremium applies the entitlement rule: any active entitlement grants
// premium, except that an EXPIRATION event always revokes it because the
// entitlement list carried alongside it may be stale.
func (e *EntitlementEvent) IsPremium() bool {
	if e.Type == EventTypeExpiration {
		return false
	}
	return len(e.EntitlementIDs) > 0
}

// NormalizeRevenueCatPayload accepts both the nested ({"event": {...}}) and
// the flat webhook schema.
func NormalizeRevenueCatPayload(body []byte) (*EntitlementEvent, error) {
	var envelope dto.RevenueCatWebhook
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	raw := json.RawMessage(body)
	if len(envelope.Event) > 0 && string(envelope.Event) != "null" {
		raw = envelope.Event
	}

	var event dto.RevenueCatEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	subject := strings.TrimSpace(event.AppUserID)
	if subject == "" {
		return nil, fmt.Errorf("%w: missing app_user_id", ErrInvalidPayload)
	}

	normalized := &EntitlementEvent{
		ID:             strings.TrimSpace(event.ID),
		Type:           strings.TrimSpace(event.Type),
		Subject:        subject,
		EntitlementIDs: event.EntitlementIDs,
		ProductID:      strings.TrimSpace(event.ProductID),
	}
	if event.ExpirationAtMs != nil && *event.ExpirationAtMs > 0 {
		expiresAt := time.UnixMilli(*event.ExpirationAtMs).UTC()
		normalized.ExpiresAt = &expiresAt
	}
	return normalized, nil
}

type EntitlementResult struct {
	User      *models.User
	Duplicate bool
}

// EntitlementService applies billing events to user entitlement fields.
// Events never create users.
type EntitlementService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewEntitlementService(db *gorm.DB) *EntitlementService {
	return &EntitlementService{db: db, now: time.Now}
}

func (s *EntitlementService) Apply(ctx context.Context, event *EntitlementEvent) (*EntitlementResult, error) {
	user, err := s.resolveUser(ctx, event.Subject)
	if err != nil {
		return nil, err
	}

	isPremium := event.IsPremium()
	updates := map[string]interface{}{"is_premium": isPremium}
	if event.ExpiresAt != nil {
		updates["premium_expires_at"] = *event.ExpiresAt
	}
	if event.ProductID != "" {
		updates["premium_plan"] = event.ProductID
	}

	duplicate := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if event.ID != "" {
			record := models.EntitlementEvent{
				EventID:     event.ID,
				UserID:      user.ID,
				Type:        event.Type,
				ProductID:   event.ProductID,
				IsPremium:   isPremium,
				ExpiresAt:   event.ExpiresAt,
				ProcessedAt: s.now(),
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "event_id"}},
				DoNothing: true,
			}).Create(&record)
			if res.Error != nil {
				return fmt.Errorf("failed to record event: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				duplicate = true
				return nil
			}
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply entitlement: %w", err)
	}

	var fresh models.User
	if err := s.db.WithContext(ctx).First(&fresh, "id = ?", user.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}

	if duplicate {
		slog.Info("entitlement event already processed", "event_id", event.ID, "user_id", fresh.ID.String())
	}
	return &EntitlementResult{User: &fresh, Duplicate: duplicate}, nil
}

// resolveUser treats subjects containing "@" as emails, falling back to the
// internal id form.
func (s *EntitlementService) resolveUser(ctx context.Context, subject string) (*models.User, error) {
	db := s.db.WithContext(ctx)

	if strings.Contains(subject, "@") {
		var user models.User
		err := db.Where("email = ?", models.NormalizeEmail(subject)).Take(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up user by email: %w", err)
		}
	}

	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := db.Take(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user by id: %w", err)
	}
	return &user, nil
}
