package auth

import (
	"strings"

	"github.com/Kyz7/blogaccount/internal/response"
	"github.com/Kyz7/blogaccount/internal/session"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "user_id"

// JWTProtected rejects requests without a valid bearer access token and stores
// the authenticated user id in the request locals.
func JWTProtected(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization token")
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return response.Unauthorized(c, "Invalid token format")
		}

		userID, err := sessions.ParseAccess(tokenParts[1])
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID returns the id stored by JWTProtected.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(userIDKey).(uint)
	return id, ok && id != 0
}
