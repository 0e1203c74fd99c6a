package middleware

// identity.go holds the context keys JWTAuth fills in and accessors for
// them, shared by the rate limiter and the handlers.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/section-scheduler/internal/model"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	s, _ := c.Get(ctxUserID).(string)
	return s
}

// Role returns the authenticated user's role, or "" for anonymous requests.
func Role(c echo.Context) model.Role {
	s, _ := c.Get(ctxRole).(string)
	return model.Role(s)
}
