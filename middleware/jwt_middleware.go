package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"immoflow/models"
	"immoflow/store"
	"immoflow/utils"
)

// Protected authenticates dashboard sessions. The token comes from the
// Authorization header, the access_token cookie or, for websocket upgrades,
// the token query parameter. When users is non-nil the advisor must exist
// and be active.
func Protected(secret string, users store.Remote) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid authorization format", nil)
			}
			token = tokenParts[1]
		} else if token = c.Cookies("access_token"); token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization required", nil)
		}

		claims, err := utils.ParseSessionToken(token, secret)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", nil)
		}

		if users != nil {
			rows, err := users.Select(c.UserContext(), "users", store.Query{
				Filter: store.Filter{store.Eq("id", claims.UserID)},
				Limit:  1,
			})
			if err != nil {
				utils.LogError("session_user_lookup", err, map[string]interface{}{"user_id": claims.UserID})
				return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Error interno del servidor", nil)
			}
			if len(rows) == 0 {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "User not found", nil)
			}
			user, err := store.Decode[models.User](rows[0])
			if err != nil {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "User not found", nil)
			}
			if !user.Active {
				return utils.ErrorResponse(c, fiber.StatusForbidden, "Account is not active", nil)
			}
			c.Locals("user", &user)
		}

		c.Locals("userID", claims.UserID)
		c.Locals("role", claims.Role)
		return c.Next()
	}
}
