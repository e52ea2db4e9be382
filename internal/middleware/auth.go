package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Amirbeek/TinyDesk/internal/token"
)

// LocalsUserID is the fiber.Ctx Locals key the verified user id is stored
// under for downstream handlers.
const LocalsUserID = "userID"

// RequireAuth gates protected routes. It extracts the bearer token, runs a
// purely local JWT verification and stashes the user id in the request
// context. It never consults the database: an account status change only
// takes effect once the current token expires.
func RequireAuth(codec *token.Codec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)
		if auth == "" {
			return unauthorized(c, "Authorization header is missing")
		}

		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return unauthorized(c, "Invalid or expired token")
		}

		userID, err := codec.Verify(parts[1])
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(LocalsUserID, userID)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": msg})
}
