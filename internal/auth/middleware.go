package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/points-service/internal/domain"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

const sessionKey = "auth_session"

// RoleResolver maps a verified email to its role.
type RoleResolver interface {
	Resolve(ctx context.Context, email string) (domain.RoleInfo, error)
}

// AuthMiddleware validates bearer tokens and builds the caller session.
type AuthMiddleware struct {
	tokens *TokenManager
	roles  RoleResolver
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, roles RoleResolver) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, roles: roles}
}

// Handle enforces authentication for protected routes. The role is resolved on every
// request so grants and transfers apply without re-login.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	email := domain.NormalizeEmail(claims.Email)
	role, err := m.roles.Resolve(c.UserContext(), email)
	if err != nil {
		return apperrors.MapError(err)
	}

	c.Locals(sessionKey, &domain.Session{
		UserID: claims.Subject,
		Email:  email,
		Name:   claims.Name,
		Role:   role,
	})
	return c.Next()
}

// SessionFromContext retrieves the authenticated caller.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*domain.Session)
	return session, ok
}
