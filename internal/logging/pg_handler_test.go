package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/models"
	"github.com/thousandways/scitore-api/internal/testutil"
)

func TestPGHandler(t *testing.T) {
	t.Run("persists error records with mapped columns", func(t *testing.T) {
		db := testutil.NewDB(t)
		h := NewPGHandler(db)
		logger := slog.New(h).With("request_id", "req-1")

		logger.Info("ignored")
		logger.Error("webhook failed",
			"action", "revenuecat_webhook",
			"method", "POST",
			"path", "/api/webhooks/revenuecat",
			"error", "boom",
			"latency_ms", 12.6,
			"event_type", "RENEWAL",
		)
		h.Stop()

		var logs []models.SystemLog
		if err := db.Find(&logs).Error; err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(logs) != 1 {
			t.Fatalf("expected 1 persisted record, got %d", len(logs))
		}
		got := logs[0]
		if got.RequestID != "req-1" || got.Action != "revenuecat_webhook" || got.Method != "POST" ||
			got.Path != "/api/webhooks/revenuecat" || got.Error != "boom" || got.LatencyMs != 13 {
			t.Errorf("unexpected columns: %+v", got)
		}
		if got.Level != "ERROR" || got.Message != "webhook failed" {
			t.Errorf("unexpected level/message: %s %q", got.Level, got.Message)
		}
		if string(got.Extra) != `{"event_type":"RENEWAL"}` {
			t.Errorf("unexpected extra: %s", got.Extra)
		}
	})

	t.Run("only error and above is enabled", func(t *testing.T) {
		h := NewPGHandler(testutil.NewDB(t))
		defer h.Stop()

		ctx := context.Background()
		if h.Enabled(ctx, slog.LevelWarn) || !h.Enabled(ctx, slog.LevelError) {
			t.Error("expected the handler to accept ERROR+ only")
		}
	})
}

func TestPurgeBefore(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	for _, ts := range []time.Time{now.AddDate(0, 0, -40), now.AddDate(0, 0, -31), now.AddDate(0, 0, -1)} {
		if err := db.Create(&models.SystemLog{ID: uuid.New(), Timestamp: ts, Level: "ERROR"}).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	deleted, err := PurgeBefore(db, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 rows deleted, got %d", deleted)
	}

	var remaining int64
	db.Model(&models.SystemLog{}).Count(&remaining)
	if remaining != 1 {
		t.Errorf("expected 1 row left, got %d", remaining)
	}
}
