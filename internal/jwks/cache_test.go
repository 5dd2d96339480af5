package jwks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/thousandways/scitore-api/internal/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	k1 := testutil.NewKeyPair(t, "k1")
	k2 := testutil.NewKeyPair(t, "k2")

	t.Run("serves a known kid from memory within the ttl", func(t *testing.T) {
		srv := testutil.NewJWKSServer(t, k1)
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		cache := New(srv.URL, 24*time.Hour, WithClock(clock.Now))

		first, err := cache.Key(ctx, "k1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		clock.Advance(23 * time.Hour)
		second, err := cache.Key(ctx, "k1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if first.N.Cmp(k1.Private.PublicKey.N) != 0 {
			t.Error("expected the published modulus")
		}
		if first != second {
			t.Error("expected the cached key instance")
		}
		if srv.Hits() != 1 {
			t.Errorf("expected 1 fetch, got %d", srv.Hits())
		}
	})

	t.Run("refetches once the ttl has elapsed", func(t *testing.T) {
		srv := testutil.NewJWKSServer(t, k1)
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		cache := New(srv.URL, 24*time.Hour, WithClock(clock.Now))

		if _, err := cache.Key(ctx, "k1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		clock.Advance(24*time.Hour + time.Second)
		if _, err := cache.Key(ctx, "k1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if srv.Hits() != 2 {
			t.Errorf("expected 2 fetches, got %d", srv.Hits())
		}
	})

	t.Run("refreshes on an unknown kid and finds a rotated key", func(t *testing.T) {
		srv := testutil.NewJWKSServer(t, k1)
		cache := New(srv.URL, 24*time.Hour)

		if _, err := cache.Key(ctx, "k1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		srv.Publish(k1, k2)

		key, err := cache.Key(ctx, "k2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key.N.Cmp(k2.Private.PublicKey.N) != 0 {
			t.Error("expected the rotated key")
		}
		if srv.Hits() != 2 {
			t.Errorf("expected 2 fetches, got %d", srv.Hits())
		}
	})

	t.Run("reports a kid absent after refresh", func(t *testing.T) {
		srv := testutil.NewJWKSServer(t, k1)
		cache := New(srv.URL, 24*time.Hour)

		_, err := cache.Key(ctx, "missing")
		if !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("surfaces endpoint failures", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()
		cache := New(srv.URL, time.Hour)

		_, err := cache.Key(ctx, "k1")
		if err == nil {
			t.Fatal("expected an error")
		}
		if errors.Is(err, ErrKeyNotFound) {
			t.Error("expected a fetch error, not ErrKeyNotFound")
		}
	})

	t.Run("skips non-RSA keys", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"keys":[{"kty":"EC","kid":"ec1","crv":"P-256"}]}`))
		}))
		defer srv.Close()
		cache := New(srv.URL, time.Hour)

		if _, err := cache.Key(ctx, "ec1"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("a cancelled caller does not fail the shared fetch", func(t *testing.T) {
		srv := testutil.NewJWKSServer(t, k1)
		cache := New(srv.URL, 24*time.Hour)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := cache.Key(cancelled, "k1"); err != nil {
			t.Fatalf("expected the fetch to outlive the caller, got %v", err)
		}
		if _, err := cache.Key(ctx, "k1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if srv.Hits() != 1 {
			t.Errorf("expected the fetched set to be cached, got %d fetches", srv.Hits())
		}
	})
}
