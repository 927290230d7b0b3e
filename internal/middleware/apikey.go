package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// APIKeyLocal is the context key holding a caller-supplied AI provider key.
const APIKeyLocal = "apiKey"

// APIKeyConfig defines the config for the API key middleware
type APIKeyConfig struct {
	// Skip defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Header is the header key where to get the API key from.
	// Optional. Default: "X-API-Key"
	Header string
}

// APIKeyConfigDefault is the default config
var APIKeyConfigDefault = APIKeyConfig{
	Next:   nil,
	Header: "X-API-Key",
}

// NewAPIKey stores the caller's AI provider key from the request header in
// the context. The key is not validated here and never logged; an absent
// header leaves the local unset so handlers can fall back to the body.
func NewAPIKey(config ...APIKeyConfig) fiber.Handler {
	cfg := APIKeyConfigDefault

	if len(config) > 0 {
		cfg = config[0]

		if cfg.Header == "" {
			cfg.Header = APIKeyConfigDefault.Header
		}
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		// For "Bearer " prefixed tokens
		key := strings.TrimSpace(strings.TrimPrefix(c.Get(cfg.Header), "Bearer "))
		if key != "" {
			c.Locals(APIKeyLocal, key)
		}

		return c.Next()
	}
}

// APIKey returns the key resolved for the request: the body value when
// present, otherwise the header value stored by NewAPIKey.
func APIKey(c *fiber.Ctx, fromBody string) string {
	if k := strings.TrimSpace(fromBody); k != "" {
		return k
	}
	if k, ok := c.Locals(APIKeyLocal).(string); ok {
		return k
	}
	return ""
}
