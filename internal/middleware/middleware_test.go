package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/config"
	"github.com/thousandways/scitore-api/internal/models"
	"github.com/thousandways/scitore-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func accessToken(t *testing.T, sub uuid.UUID, email string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub.String(),
		"email": email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func do(t *testing.T, app *fiber.App, method, path string, headers map[string]string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp.StatusCode
}

func TestRequireSelf(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	app := fiber.New()
	app.Get("/users/:id", JWTProtected(cfg), RequireSelf("id"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	me := uuid.New()
	bearer := map[string]string{"Authorization": "Bearer " + accessToken(t, me, "me@example.com", time.Hour)}

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		want    int
	}{
		{"own resource", "/users/" + me.String(), bearer, fiber.StatusOK},
		{"someone else", "/users/" + uuid.NewString(), bearer, fiber.StatusForbidden},
		{"not a uuid", "/users/me", bearer, fiber.StatusForbidden},
		{"no token", "/users/" + me.String(), nil, fiber.StatusUnauthorized},
		{"expired token", "/users/" + me.String(),
			map[string]string{"Authorization": "Bearer " + accessToken(t, me, "me@example.com", -time.Minute)},
			fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := do(t, app, fiber.MethodGet, tt.path, tt.headers); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestAdminRequired(t *testing.T) {
	db := testutil.NewDB(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("let-me-in"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	cfg := &config.Config{
		JWTSecret:      testSecret,
		AdminEmails:    " Editor@Example.com , ops@example.com",
		AdminTokenHash: string(hash),
	}

	admin := &models.User{Email: "boss@example.com", Role: "admin"}
	regular := &models.User{Email: "reader@example.com"}
	editor := &models.User{Email: "editor@example.com", EmailVerified: true}
	// signed in with Apple using a client-supplied email
	unverified := &models.User{Email: "ops@example.com"}
	for _, u := range []*models.User{admin, regular, editor, unverified} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	app := fiber.New()
	app.Post("/catalog", AdminRequired(db, cfg), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	bearer := func(id uuid.UUID, email string) map[string]string {
		return map[string]string{"Authorization": "Bearer " + accessToken(t, id, email, time.Hour)}
	}

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"admin token", map[string]string{"X-Admin-Token": "let-me-in"}, fiber.StatusCreated},
		{"wrong admin token", map[string]string{"X-Admin-Token": "guess"}, fiber.StatusUnauthorized},
		{"allow-listed verified email", bearer(editor.ID, editor.Email), fiber.StatusCreated},
		{"allow-listed unverified email", bearer(unverified.ID, unverified.Email), fiber.StatusForbidden},
		{"email claim is not trusted", bearer(regular.ID, "editor@example.com"), fiber.StatusForbidden},
		{"unknown subject with allow-listed email", bearer(uuid.New(), "editor@example.com"), fiber.StatusForbidden},
		{"admin role", bearer(admin.ID, admin.Email), fiber.StatusCreated},
		{"regular user", bearer(regular.ID, regular.Email), fiber.StatusForbidden},
		{"anonymous", nil, fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := do(t, app, fiber.MethodPost, "/catalog", tt.headers); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
