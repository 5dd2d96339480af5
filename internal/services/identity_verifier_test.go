package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/thousandways/scitore-api/internal/config"
	"github.com/thousandways/scitore-api/internal/jwks"
	"github.com/thousandways/scitore-api/internal/testutil"
	"google.golang.org/api/idtoken"
)

const (
	testBundleID    = "com.example.scitore"
	testWebClientID = "web-client.apps.googleusercontent.com"
	testIOSClientID = "ios-client.apps.googleusercontent.com"
)

// fakeGoogle accepts any token and reports it as minted for tokenAudience.
type fakeGoogle struct {
	tokenAudience string
	expires       time.Time
	claims        map[string]interface{}
	err           error
	gotAudience   string
}

func (f *fakeGoogle) Validate(_ context.Context, _ string, audience string) (*idtoken.Payload, error) {
	f.gotAudience = audience
	if f.err != nil {
		return nil, f.err
	}
	if audience != f.tokenAudience {
		return nil, errors.New("idtoken: audience provided does not match aud claim in the JWT")
	}
	return &idtoken.Payload{
		Issuer:   "https://accounts.google.com",
		Audience: f.tokenAudience,
		Expires:  f.expires.Unix(),
		Subject:  "google-sub-1",
		Claims:   f.claims,
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		GoogleClientIDWeb: testWebClientID,
		GoogleClientIDIOS: testIOSClientID,
		AppleBundleID:     testBundleID,
		JWTSecret:         "test-secret",
		JWTAccessExpiry:   15 * time.Minute,
		JWTRefreshExpiry:  24 * time.Hour,
	}
}

func appleToken(t *testing.T, key *testutil.KeyPair, mutate func(jwt.MapClaims)) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   AppleIssuer,
		"aud":   testBundleID,
		"sub":   "apple-sub-1",
		"email": "user@example.com",
		"iat":   now.Unix(),
		"exp":   now.Add(10 * time.Minute).Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	return key.Sign(t, claims)
}

func TestIdentityVerifierGoogle(t *testing.T) {
	ctx := context.Background()
	validClaims := map[string]interface{}{"email": "a@b.com", "name": "Ada"}

	t.Run("selects the audience by platform", func(t *testing.T) {
		tests := []struct {
			platform string
			want     string
		}{
			{"android", testWebClientID},
			{"Android", testWebClientID},
			{"ios", testIOSClientID},
			{"web", testIOSClientID},
			{"", testIOSClientID},
		}
		v := NewIdentityVerifier(&fakeGoogle{}, nil, testConfig())
		for _, tt := range tests {
			if got := v.GoogleAudience(tt.platform); got != tt.want {
				t.Errorf("GoogleAudience(%q) = %q, want %q", tt.platform, got, tt.want)
			}
		}
	})

	t.Run("succeeds when the token audience matches the platform", func(t *testing.T) {
		google := &fakeGoogle{tokenAudience: testWebClientID, expires: time.Now().Add(time.Hour), claims: validClaims}
		v := NewIdentityVerifier(google, nil, testConfig())

		claims, err := v.VerifyGoogle(ctx, "token", "android")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claims.Email != "a@b.com" || claims.DisplayName != "Ada" || claims.SubjectID != "google-sub-1" {
			t.Errorf("unexpected claims: %+v", claims)
		}
		if google.gotAudience != testWebClientID {
			t.Errorf("expected audience %q, got %q", testWebClientID, google.gotAudience)
		}
	})

	t.Run("fails on an audience mismatch", func(t *testing.T) {
		google := &fakeGoogle{tokenAudience: testWebClientID, expires: time.Now().Add(time.Hour), claims: validClaims}
		v := NewIdentityVerifier(google, nil, testConfig())

		_, err := v.VerifyGoogle(ctx, "token", "ios")
		if !errors.Is(err, ErrInvalidCredential) {
			t.Errorf("expected ErrInvalidCredential, got %v", err)
		}
	})

	t.Run("fails on an expired token", func(t *testing.T) {
		google := &fakeGoogle{tokenAudience: testIOSClientID, expires: time.Now().Add(-time.Minute), claims: validClaims}
		v := NewIdentityVerifier(google, nil, testConfig())

		_, err := v.VerifyGoogle(ctx, "token", "ios")
		if !errors.Is(err, ErrInvalidCredential) {
			t.Errorf("expected ErrInvalidCredential, got %v", err)
		}
	})

	t.Run("fails when the validator rejects the signature", func(t *testing.T) {
		google := &fakeGoogle{err: errors.New("idtoken: invalid signature")}
		v := NewIdentityVerifier(google, nil, testConfig())

		_, err := v.VerifyGoogle(ctx, "token", "ios")
		if !errors.Is(err, ErrInvalidCredential) {
			t.Errorf("expected ErrInvalidCredential, got %v", err)
		}
	})

	t.Run("requires an email claim", func(t *testing.T) {
		google := &fakeGoogle{tokenAudience: testIOSClientID, expires: time.Now().Add(time.Hour), claims: map[string]interface{}{}}
		v := NewIdentityVerifier(google, nil, testConfig())

		_, err := v.VerifyGoogle(ctx, "token", "ios")
		if !errors.Is(err, ErrMissingEmail) {
			t.Errorf("expected ErrMissingEmail, got %v", err)
		}
	})

	t.Run("rejects an empty token as a validation error", func(t *testing.T) {
		v := NewIdentityVerifier(&fakeGoogle{}, nil, testConfig())

		_, err := v.VerifyGoogle(ctx, "", "ios")
		if !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestIdentityVerifierApple(t *testing.T) {
	ctx := context.Background()
	key := testutil.NewKeyPair(t, "apple-k1")
	srv := testutil.NewJWKSServer(t, key)
	verifier := NewIdentityVerifier(nil, jwks.New(srv.URL, 24*time.Hour), testConfig())

	t.Run("accepts a well-formed token", func(t *testing.T) {
		claims, err := verifier.VerifyApple(ctx, appleToken(t, key, nil), "", " Grace ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claims.SubjectID != "apple-sub-1" || claims.Email != "user@example.com" || claims.DisplayName != "Grace" {
			t.Errorf("unexpected claims: %+v", claims)
		}
	})

	t.Run("uses the fallback email when the token has none", func(t *testing.T) {
		token := appleToken(t, key, func(c jwt.MapClaims) { delete(c, "email") })

		claims, err := verifier.VerifyApple(ctx, token, "fallback@example.com", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claims.Email != "fallback@example.com" {
			t.Errorf("expected fallback email, got %q", claims.Email)
		}
	})

	t.Run("prefers the token email over the fallback", func(t *testing.T) {
		claims, err := verifier.VerifyApple(ctx, appleToken(t, key, nil), "other@example.com", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claims.Email != "user@example.com" {
			t.Errorf("expected token email, got %q", claims.Email)
		}
	})

	t.Run("fails with MissingEmail when no email is available", func(t *testing.T) {
		token := appleToken(t, key, func(c jwt.MapClaims) { delete(c, "email") })

		_, err := verifier.VerifyApple(ctx, token, "", "")
		if !errors.Is(err, ErrMissingEmail) {
			t.Errorf("expected ErrMissingEmail, got %v", err)
		}
	})

	rejected := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"wrong issuer", func(t *testing.T) string {
			return appleToken(t, key, func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" })
		}},
		{"wrong audience", func(t *testing.T) string {
			return appleToken(t, key, func(c jwt.MapClaims) { c["aud"] = "com.other.app" })
		}},
		{"expired", func(t *testing.T) string {
			return appleToken(t, key, func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() })
		}},
		{"missing expiry", func(t *testing.T) string {
			return appleToken(t, key, func(c jwt.MapClaims) { delete(c, "exp") })
		}},
		{"unknown kid", func(t *testing.T) string {
			return appleToken(t, testutil.NewKeyPair(t, "unpublished"), nil)
		}},
		{"signed by another key under a published kid", func(t *testing.T) string {
			impostor := testutil.NewKeyPair(t, "apple-k1")
			return appleToken(t, impostor, nil)
		}},
		{"HS256 token", func(t *testing.T) string {
			tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"iss": AppleIssuer, "aud": testBundleID, "sub": "x", "exp": time.Now().Add(time.Minute).Unix(),
			})
			tok.Header["kid"] = "apple-k1"
			s, _ := tok.SignedString([]byte("secret"))
			return s
		}},
		{"garbage", func(t *testing.T) string { return "not-a-jwt" }},
	}
	for _, tt := range rejected {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := verifier.VerifyApple(ctx, tt.token(t), "fallback@example.com", "")
			if !errors.Is(err, ErrInvalidCredential) {
				t.Errorf("expected ErrInvalidCredential, got %v", err)
			}
		})
	}
}
