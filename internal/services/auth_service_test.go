package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/jwks"
	"github.com/thousandways/scitore-api/internal/models"
	"github.com/thousandways/scitore-api/internal/testutil"
	"gorm.io/gorm"
)

func newAuthService(t *testing.T, db *gorm.DB, google GoogleTokenValidator) (*AuthService, *testutil.KeyPair) {
	t.Helper()
	key := testutil.NewKeyPair(t, "apple-k1")
	srv := testutil.NewJWKSServer(t, key)
	cfg := testConfig()
	verifier := NewIdentityVerifier(google, jwks.New(srv.URL, 24*time.Hour), cfg)
	return NewAuthService(db, cfg, verifier, NewAccountService(db)), key
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	google := &fakeGoogle{
		tokenAudience: testIOSClientID,
		expires:       time.Now().Add(time.Hour),
		claims:        map[string]interface{}{"email": "g@example.com", "name": "Gee", "email_verified": true},
	}

	t.Run("google login issues a session for the subject", func(t *testing.T) {
		db := testutil.NewDB(t)
		svc, _ := newAuthService(t, db, google)

		resp, err := svc.GoogleLogin(ctx, &dto.GoogleLoginRequest{Token: "t", Platform: "ios"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.Success || !resp.IsNewUser || resp.User.Email != "g@example.com" {
			t.Errorf("unexpected response: %+v", resp)
		}

		claims := jwt.MapClaims{}
		if _, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(testConfig().JWTSecret), nil
		}); err != nil {
			t.Fatalf("access token does not verify: %v", err)
		}
		if claims["sub"] != resp.User.ID.String() {
			t.Errorf("expected subject %s, got %v", resp.User.ID, claims["sub"])
		}

		var stored models.RefreshToken
		if err := db.First(&stored).Error; err != nil {
			t.Fatalf("expected a stored refresh token: %v", err)
		}
		if stored.TokenHash == resp.RefreshToken {
			t.Error("expected the refresh token to be stored hashed")
		}
	})

	t.Run("apple login maps MissingEmail through", func(t *testing.T) {
		db := testutil.NewDB(t)
		svc, key := newAuthService(t, db, google)
		token := appleToken(t, key, func(c jwt.MapClaims) { delete(c, "email") })

		_, err := svc.AppleLogin(ctx, &dto.AppleLoginRequest{IDToken: token})
		if !errors.Is(err, ErrMissingEmail) {
			t.Errorf("expected ErrMissingEmail, got %v", err)
		}
	})

	t.Run("refresh rotates and the old token stops working", func(t *testing.T) {
		db := testutil.NewDB(t)
		svc, key := newAuthService(t, db, google)

		login, err := svc.AppleLogin(ctx, &dto.AppleLoginRequest{IDToken: appleToken(t, key, nil), DisplayName: "Ann"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if login.User.Name != "Ann" {
			t.Errorf("expected display name, got %q", login.User.Name)
		}

		rotated, err := svc.Refresh(ctx, &dto.RefreshRequest{RefreshToken: login.RefreshToken})
		if err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if rotated.RefreshToken == login.RefreshToken {
			t.Error("expected a new refresh token")
		}
		if rotated.User.ID != login.User.ID || rotated.IsNewUser {
			t.Errorf("unexpected refresh response: %+v", rotated)
		}

		if _, err := svc.Refresh(ctx, &dto.RefreshRequest{RefreshToken: login.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken on reuse, got %v", err)
		}
	})

	t.Run("expired and logged-out tokens are rejected", func(t *testing.T) {
		db := testutil.NewDB(t)
		svc, _ := newAuthService(t, db, google)

		login, err := svc.GoogleLogin(ctx, &dto.GoogleLoginRequest{Token: "t", Platform: "ios"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if err := svc.Logout(ctx, &dto.LogoutRequest{RefreshToken: login.RefreshToken}); err != nil {
			t.Fatalf("logout: %v", err)
		}
		if _, err := svc.Refresh(ctx, &dto.RefreshRequest{RefreshToken: login.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken after logout, got %v", err)
		}

		second, err := svc.GoogleLogin(ctx, &dto.GoogleLoginRequest{Token: "t", Platform: "ios"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
		if _, err := svc.Refresh(ctx, &dto.RefreshRequest{RefreshToken: second.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken after expiry, got %v", err)
		}
	})

	t.Run("a fallback email is stored unverified", func(t *testing.T) {
		db := testutil.NewDB(t)
		svc, key := newAuthService(t, db, google)
		token := appleToken(t, key, func(c jwt.MapClaims) { delete(c, "email") })

		resp, err := svc.AppleLogin(ctx, &dto.AppleLoginRequest{IDToken: token, Email: "Admin@Corp.com"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		var stored models.User
		if err := db.Take(&stored, "id = ?", resp.User.ID).Error; err != nil {
			t.Fatalf("reload: %v", err)
		}
		if stored.Email != "admin@corp.com" || stored.EmailVerified {
			t.Errorf("expected an unverified admin@corp.com, got %q verified=%v", stored.Email, stored.EmailVerified)
		}

		signed, err := svc.GoogleLogin(ctx, &dto.GoogleLoginRequest{Token: "t", Platform: "ios"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		var googleUser models.User
		if err := db.Take(&googleUser, "id = ?", signed.User.ID).Error; err != nil {
			t.Fatalf("reload: %v", err)
		}
		if !googleUser.EmailVerified {
			t.Error("expected a Google-signed email to be verified")
		}
	})
}
