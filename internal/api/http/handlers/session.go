package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/points-service/internal/api/dto"
	"github.com/spec-kit/points-service/internal/auth"
	"github.com/spec-kit/points-service/internal/domain"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

func currentSession(c *fiber.Ctx) (*domain.Session, error) {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return session, nil
}

// parseBody decodes and validates a JSON body into dst.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(dst)
}
