package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

// RequireSession ensures the caller is authenticated.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireReviewer admits admins and secretaries. Department scope is checked by the services.
func RequireReviewer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !session.Role.CanReview() {
			return apperrors.NewForbidden("admin or secretary role required")
		}
		return c.Next()
	}
}

// RequireAdmin admits admins only.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !session.Role.IsAdmin() {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}
