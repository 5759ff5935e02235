package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass authentication: infrastructure
// endpoints (health checks) and the credential endpoints themselves.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// AuthSkipper returns true for requests whose path should skip
// authentication. All of /api/v1/auth is public: register, login,
// forgotpassword, and resetpassword carry no bearer token by definition.
func AuthSkipper(c echo.Context) bool {
	path := c.Request().URL.Path
	if publicPaths[path] {
		return true
	}
	return strings.HasPrefix(path, "/api/v1/auth/")
}

// IsPublicPath reports whether the given path bypasses auth middleware.
func IsPublicPath(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, "/api/v1/auth/")
}
