package middleware

import (
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/mrshanahan/notes-service/internal/auth"
)

var bearerTokenPattern *regexp.Regexp = regexp.MustCompile(`^Bearer\s+(.*)$`)

// RequireAuthorization asks the authorizer for a decision on each
// request and rejects anything but Allow. The token comes from the
// Authorization header, falling back to cookie auth. The resulting
// policy is stored in request locals under localName for handlers
// that want the principal or forwarded claims.
func RequireAuthorization(authorizer *auth.Authorizer, localName string, cookieName string) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		var tokenStr string
		authHeaderValues, ok := c.GetReqHeaders()["Authorization"]
		if !ok || len(authHeaderValues) == 0 {
			// If no Authorization header, try cookie auth
			tokenStr = c.Cookies(cookieName)
		} else {
			match := bearerTokenPattern.FindStringSubmatch(authHeaderValues[0])
			if match == nil {
				return c.SendStatus(fiber.StatusUnauthorized)
			}
			tokenStr = match[1]
		}

		policy := authorizer.Authorize(c.Context(), tokenStr, c.Path())
		if !policy.Allowed() {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		c.Locals(localName, policy)
		return c.Next()
	}
}
