package middleware

import "github.com/labstack/echo/v4"

// userID returns the authenticated subject, or "guest".
func userID(c echo.Context) string {
	if v, ok := c.Get(CtxUserID).(string); ok && v != "" {
		return v
	}
	return "guest"
}
