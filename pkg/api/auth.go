package api

import (
	echo "github.com/labstack/echo/v5"
)

// extractAuthor extracts the author from oauth2-proxy headers.
// Priority: X-Forwarded-User > X-Forwarded-Email > "api-client"
func extractAuthor(c *echo.Context) string {
	if user := c.Request().Header.Get("X-Forwarded-User"); user != "" {
		return user
	}
	if email := c.Request().Header.Get("X-Forwarded-Email"); email != "" {
		return email
	}
	return "api-client"
}

// extractIdentity reads per-client state (§4.J) from oauth2-proxy headers
// set by the front door. Returns empty userID for a connection that
// presented no token; callers must still accept the connection (read-only
// until authenticated) rather than rejecting it outright.
func extractIdentity(c *echo.Context) (userID, userEmail string) {
	userID = c.Request().Header.Get("X-Forwarded-User")
	userEmail = c.Request().Header.Get("X-Forwarded-Email")
	return userID, userEmail
}
