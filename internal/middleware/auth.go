package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/thousandways/scitore-api/internal/config"
	"github.com/thousandways/scitore-api/internal/dto"
)

const userLocal = "user"

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ContextKey: userLocal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// Claims returns the verified access-token claims, if any.
func Claims(c *fiber.Ctx) (jwt.MapClaims, bool) {
	token, ok := c.Locals(userLocal).(*jwt.Token)
	if !ok || token == nil {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	return claims, ok
}

// UserID returns the subject of the access token.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	claims, ok := Claims(c)
	if !ok {
		return uuid.Nil, false
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// IsSelf reports whether raw names the authenticated user.
func IsSelf(c *fiber.Ctx, raw string) bool {
	sub, ok := UserID(c)
	if !ok {
		return false
	}
	id, err := uuid.Parse(raw)
	return err == nil && id == sub
}

// RequireSelf rejects requests whose route parameter is not the token subject.
func RequireSelf(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsSelf(c, c.Params(param)) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: "Forbidden",
			})
		}
		return c.Next()
	}
}
