package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/config"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const adminTokenHeader = "X-Admin-Token"

// AdminRequired guards catalog writes. It accepts:
// 1. an X-Admin-Token matching the bcrypt hash in ADMIN_TOKEN_HASH
// 2. an access token whose user has role "admin"
// 3. an access token whose user has a provider-verified email in ADMIN_EMAILS
//
// The email is read from the user row, never from the token, because an
// Apple login may carry a client-supplied email.
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)

	return func(c *fiber.Ctx) error {
		if cfg.AdminTokenHash != "" {
			if token := c.Get(adminTokenHeader); token != "" &&
				bcrypt.CompareHashAndPassword([]byte(cfg.AdminTokenHash), []byte(token)) == nil {
				return c.Next()
			}
		}

		claims, ok := bearerClaims(c, cfg.JWTSecret)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: "Unauthorized",
			})
		}

		sub, _ := claims["sub"].(string)
		if userID, err := uuid.Parse(sub); err == nil {
			var user models.User
			err := db.WithContext(c.UserContext()).
				Select("role", "email", "email_verified").
				Take(&user, "id = ?", userID).Error
			if err == nil && isAdmin(&user, adminEmails) {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: "Admin access required",
		})
	}
}

func isAdmin(user *models.User, adminEmails []string) bool {
	if user.Role == "admin" {
		return true
	}
	return user.EmailVerified && contains(adminEmails, models.NormalizeEmail(user.Email))
}

func bearerClaims(c *fiber.Ctx, secret string) (jwt.MapClaims, bool) {
	raw, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !found || raw == "" {
		return nil, false
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(p))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
