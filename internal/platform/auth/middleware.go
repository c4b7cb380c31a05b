package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/preepi/recordings/internal/platform/apperror"
)

type contextKey string

const principalKey contextKey = "principal"

// Middleware authorizes the bearer token on every request and attaches the
// Principal to the request context.
func Middleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return apperror.Unauthorized("missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return apperror.Unauthorized("invalid authorization format")
			}

			principal, err := svc.Authorize(c.Request().Context(), parts[1])
			if err != nil {
				return err
			}

			ctx := context.WithValue(c.Request().Context(), principalKey, principal)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// PrincipalFrom returns the Principal set by Middleware, or nil.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// WithPrincipal returns a context carrying the given principal. Used by
// tests and internal callers.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
