// Package auth protects endpoints with a static API key.
package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// Config holds the auth middleware settings.
type Config struct {
	// ApiKey is the expected key. Empty disables the check entirely,
	// which is the development default.
	ApiKey string
}

// Header is the request header carrying the API key.
const Header = "X-API-Key"

// New creates a middleware that rejects requests whose key does not
// match the configured one.
func New(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.ApiKey == "" {
			return c.Next()
		}
		given := c.Get(Header)
		if subtle.ConstantTimeCompare([]byte(given), []byte(cfg.ApiKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or missing API key",
			})
		}
		return c.Next()
	}
}
