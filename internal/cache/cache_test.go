package cache

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestKey(t *testing.T) {
	a := Key("/api/playlist", "page=1")
	if a != Key("/api/playlist", "page=1") {
		t.Error("expected identical requests to share a key")
	}
	if a == Key("/api/playlist", "page=2") {
		t.Error("expected the query to be part of the key")
	}
	if !strings.HasPrefix(a, keyPrefix+":") {
		t.Errorf("expected %q prefix, got %q", keyPrefix, a)
	}
}

func TestEncodeDecode(t *testing.T) {
	body := []byte(`{"success":true}`)
	contentType, got, ok := decode(encode("application/json", body))
	if !ok || contentType != "application/json" || !bytes.Equal(got, body) {
		t.Errorf("unexpected decode result: %q %q %v", contentType, got, ok)
	}

	for _, bad := range [][]byte{nil, {0, 0}, {0, 0, 0, 9, 'a'}} {
		if _, _, ok := decode(bad); ok {
			t.Errorf("expected decode(%v) to fail", bad)
		}
	}
}

func TestDisabledCachePassesThrough(t *testing.T) {
	rc := NewResponseCache(nil, 0)
	if rc.Enabled() {
		t.Fatal("expected a nil client to disable the cache")
	}

	calls := 0
	app := fiber.New()
	group := app.Group("/catalog", rc.PurgeOnWrite())
	group.Get("/", rc.Middleware(), func(c *fiber.Ctx) error {
		calls++
		return c.SendString("fresh")
	})
	group.Post("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/catalog/", nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "fresh" || resp.Header.Get("X-Cache") != "" {
			t.Errorf("expected an uncached response, got %q X-Cache=%q", body, resp.Header.Get("X-Cache"))
		}
	}
	if calls != 2 {
		t.Errorf("expected the handler to run twice, ran %d times", calls)
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/catalog/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
}
