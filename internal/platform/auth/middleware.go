package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

// Identity is the acting user attached to the request context by the
// middleware. In "lookup" mode it is resolved from the store; in "claims"
// mode it is taken directly from the token.
type Identity struct {
	ID   string
	Role string
}

// IdentityResolver loads the acting identity for a verified token subject.
// The identity service implements this; tests substitute their own.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID string) (*Identity, error)
}

// Middleware verifies the bearer token and attaches the acting identity to
// the request context. When resolver is nil the token claims are trusted
// as-is (claims mode). Public routes are bypassed via the skipper.
func Middleware(issuer *TokenIssuer, resolver IdentityResolver, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, no token")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Verify(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, token failed")
			}

			ident := &Identity{ID: claims.Subject, Role: claims.Role}
			if resolver != nil {
				resolved, err := resolver.ResolveIdentity(c.Request().Context(), claims.Subject)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, token failed")
				}
				ident = resolved
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, ident.ID)
			ctx = context.WithValue(ctx, UserRoleKey, ident.Role)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", ident.ID)
			c.Set("user_role", ident.Role)

			return next(c)
		}
	}
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

// WithIdentity returns a context carrying the given identity. Used by tests
// and CLI code paths that bypass the HTTP middleware.
func WithIdentity(ctx context.Context, id, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id)
	return context.WithValue(ctx, UserRoleKey, role)
}
