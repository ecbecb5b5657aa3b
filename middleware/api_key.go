package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"immoflow/utils"
)

const APIKeyHeader = "X-API-Key"

// APIKey guards the chatbot API. An empty key leaves the API open.
func APIKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Next()
		}
		got := c.Get(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			utils.LogEvent("invalid_api_key", map[string]interface{}{
				"ip":       c.IP(),
				"endpoint": c.Path(),
			})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid API key",
			})
		}
		c.Locals("apiKey", true)
		return c.Next()
	}
}
