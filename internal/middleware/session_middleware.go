package middleware

import (
	"log"

	"notetaker/internal/session"

	"github.com/gofiber/fiber/v2"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "session_id"

const (
	localsUserID = "user_id"
	localsToken  = "session_token"
)

// SessionRequired is a Fiber middleware that resolves the session cookie to
// an authenticated user. Requests without an active, non-expired session are
// rejected with a pointer back to the login route.
func SessionRequired(sessions *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookieName)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message":  "Authentication required",
				"redirect": "/api/v1/auth/login",
			})
		}

		userID, ok, err := sessions.Get(c.Context(), token)
		if err != nil {
			log.Printf("Session lookup failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message":  "Authentication required",
				"redirect": "/api/v1/auth/login",
			})
		}
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message":  "Session expired, please log in again",
				"redirect": "/api/v1/auth/login",
			})
		}

		// Store the identity in Fiber context for subsequent handlers
		c.Locals(localsUserID, userID)
		c.Locals(localsToken, token)

		return c.Next()
	}
}

// UserID returns the authenticated user id set by SessionRequired. 0 if not set.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localsUserID).(uint)
	return id
}

// SessionToken returns the session token set by SessionRequired.
func SessionToken(c *fiber.Ctx) string {
	token, _ := c.Locals(localsToken).(string)
	return token
}
