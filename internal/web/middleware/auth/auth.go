// Package auth provides the bearer-token middleware for the web service.
// Every protected route declares its authorization level explicitly; the
// level is never inferred from the URL.
package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	engine "github.com/incidenta/incidenta/internal/auth"
	"github.com/incidenta/incidenta/internal/auth/token"
)

const (
	// LocalsPrincipal is the fiber locals key holding the resolved principal.
	LocalsPrincipal = "principal"
	// LocalsClaims is the fiber locals key holding the validated token claims.
	LocalsClaims = "claims"

	bearerPrefix = "Bearer "
)

// New creates a middleware that authenticates the bearer token at the given
// level and stores the principal and claims in the request locals.
func New(gate *engine.Gate, level engine.Level) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearer(c)
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		principal, claims, err := gate.Authenticate(c.UserContext(), raw, level)
		if err != nil {
			return AsHTTPError(err)
		}

		c.Locals(LocalsPrincipal, principal)
		c.Locals(LocalsClaims, claims)

		return c.Next()
	}
}

// Principal returns the principal stored by New, or nil if the route did not
// pass through the middleware.
func Principal(c *fiber.Ctx) *engine.Principal {
	p, _ := c.Locals(LocalsPrincipal).(*engine.Principal)
	return p
}

// Claims returns the token claims stored by New, or nil.
func Claims(c *fiber.Ctx) *token.Claims {
	cl, _ := c.Locals(LocalsClaims).(*token.Claims)
	return cl
}

// AsHTTPError maps authorization engine errors onto fiber errors. Handlers
// use it for their own engine calls so the status mapping stays in one place.
func AsHTTPError(err error) error {
	switch {
	case errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, engine.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, engine.ErrInvalidTwoFACode):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, engine.ErrAccountLocked),
		errors.Is(err, engine.ErrStagedSecurityRequired),
		errors.Is(err, engine.ErrInactiveAccount),
		errors.Is(err, engine.ErrInsufficientScope),
		errors.Is(err, engine.ErrPermissionDenied):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "not found")
	default:
		return err
	}
}

func bearer(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}

	return header[len(bearerPrefix):]
}
