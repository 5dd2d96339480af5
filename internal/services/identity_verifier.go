package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/thousandways/scitore-api/internal/config"
	"google.golang.org/api/idtoken"
)

const AppleIssuer = "https://appleid.apple.com"

// VerifiedClaims is what a provider vouches for after signature checks.
type VerifiedClaims struct {
	SubjectID   string
	Email       string
	DisplayName string
	// EmailVerified is false when the email came from the client rather
	// than the signed token.
	EmailVerified bool
}

// GoogleTokenValidator is satisfied by *idtoken.Validator.
type GoogleTokenValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

// AppleKeySource resolves Apple signing keys by kid, satisfied by *jwks.Cache.
type AppleKeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type appleClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type IdentityVerifier struct {
	google            GoogleTokenValidator
	googleWebClientID string
	googleIOSClientID string
	appleKeys         AppleKeySource
	appleBundleID     string
	now               func() time.Time
}

func NewIdentityVerifier(google GoogleTokenValidator, appleKeys AppleKeySource, cfg *config.Config) *IdentityVerifier {
	return &IdentityVerifier{
		google:            google,
		googleWebClientID: cfg.GoogleClientIDWeb,
		googleIOSClientID: cfg.GoogleClientIDIOS,
		appleKeys:         appleKeys,
		appleBundleID:     cfg.AppleBundleID,
		now:               time.Now,
	}
}

// GoogleAudience picks the OAuth client id a token must be minted for.
// Android Credential Manager requests tokens for the web client id; every
// other platform uses the iOS client id.
func (v *IdentityVerifier) GoogleAudience(platform string) string {
	if strings.EqualFold(platform, "android") {
		return v.googleWebClientID
	}
	return v.googleIOSClientID
}

func (v *IdentityVerifier) VerifyGoogle(ctx context.Context, token, platform string) (*VerifiedClaims, error) {
	if token == "" {
		return nil, validationError("Token is required")
	}

	audience := v.GoogleAudience(platform)
	payload, err := v.google.Validate(ctx, token, audience)
	if err != nil {
		slog.Warn("google token verification failed", "platform", platform, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if payload.Audience != audience {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidCredential)
	}
	if v.now().Unix() > payload.Expires {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidCredential)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, ErrMissingEmail
	}
	name, _ := payload.Claims["name"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)

	return &VerifiedClaims{
		SubjectID:     payload.Subject,
		Email:         email,
		DisplayName:   name,
		EmailVerified: verified,
	}, nil
}

// VerifyApple checks an Apple identity token. Apple only includes the email
// on the first authorization, so the client-supplied email is used when the
// token has none; the subject always comes from the signed token.
func (v *IdentityVerifier) VerifyApple(ctx context.Context, token, fallbackEmail, displayName string) (*VerifiedClaims, error) {
	if token == "" {
		return nil, validationError("Identity token is required")
	}

	claims := &appleClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token header has no kid")
			}
			return v.appleKeys.Key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(AppleIssuer),
		jwt.WithAudience(v.appleBundleID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		slog.Warn("apple token verification failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidCredential)
	}

	email := strings.TrimSpace(claims.Email)
	fromToken := email != ""
	if !fromToken {
		email = strings.TrimSpace(fallbackEmail)
	}
	if email == "" {
		return nil, ErrMissingEmail
	}

	return &VerifiedClaims{
		SubjectID:     claims.Subject,
		Email:         email,
		DisplayName:   strings.TrimSpace(displayName),
		EmailVerified: fromToken,
	}, nil
}
