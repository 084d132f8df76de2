package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"worshipScheduling/models"
)

// RoleLookup resolves the stored user behind a principal.
type RoleLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Middleware validates the Bearer JWT on every request and injects the Principal into
// the request context. Missing, malformed and expired tokens all get the same 401.
func Middleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := ParseBearer(c.Request().Header.Get(echo.HeaderAuthorization), secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication failed").SetInternal(err)
			}
			req := c.Request()
			c.SetRequest(req.WithContext(WithPrincipal(req.Context(), p)))
			return next(c)
		}
	}
}

// RequirePrincipal returns the principal of an authenticated request.
func RequirePrincipal(c echo.Context) (*Principal, error) {
	p, ok := FromContext(c.Request().Context())
	if !ok || p == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication failed")
	}
	return p, nil
}

// RequireAdmin ensures the caller is an admin principal AND that the underlying
// user still exists with role 'admin'. A demoted or deleted admin with an old token is refused.
func RequireAdmin(users RoleLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := RequirePrincipal(c)
			if err != nil {
				return err
			}
			if !p.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			u, err := users.GetByID(c.Request().Context(), p.UserID)
			if err != nil {
				return err
			}
			if !u.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}
