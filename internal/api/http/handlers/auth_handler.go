package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/points-service/internal/api/dto"
	"github.com/spec-kit/points-service/internal/auth"
	"github.com/spec-kit/points-service/internal/domain"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

const oauthStateCookie = "oauth_state"

// AuthHandler runs the Google sign-in flow and reports the current session.
type AuthHandler struct {
	google *auth.GoogleProvider
	tokens *auth.TokenManager
	logger *zap.Logger
	secure bool
}

// NewAuthHandler constructs handler. A nil provider disables the login routes.
func NewAuthHandler(google *auth.GoogleProvider, tokens *auth.TokenManager, logger *zap.Logger, secureCookies bool) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{google: google, tokens: tokens, logger: logger, secure: secureCookies}
}

// Login GET /auth/google/login redirects to the consent page.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if h.google == nil {
		return apperrors.NewUnavailable("google sign-in is not configured")
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return apperrors.NewInternalError(err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)
	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(h.google.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

// Callback GET /auth/google/callback exchanges the code and issues a session token.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	if h.google == nil {
		return apperrors.NewUnavailable("google sign-in is not configured")
	}
	state := c.Query("state")
	if state == "" || state != c.Cookies(oauthStateCookie) {
		return apperrors.NewUnauthorized("invalid oauth state")
	}
	c.ClearCookie(oauthStateCookie)

	identity, err := h.google.Exchange(c.UserContext(), c.Query("code"))
	switch {
	case errors.Is(err, auth.ErrEmailDomain):
		return apperrors.NewForbidden("account is outside the organization")
	case errors.Is(err, auth.ErrEmailNotVerified):
		return apperrors.NewForbidden("email address is not verified")
	case err != nil:
		h.logger.Warn("google exchange failed", zap.Error(err))
		return apperrors.NewUnauthorized("sign-in failed")
	}

	token, exp, err := h.tokens.GenerateToken(*identity)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: exp}})
}

// Me GET /me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMeResponse(session)})
}

// Departments GET /departments.
func (h *AuthHandler) Departments(c *fiber.Ctx) error {
	items := make([]dto.DepartmentResponse, 0, len(domain.Departments))
	for _, dept := range domain.Departments {
		items = append(items, dto.DepartmentResponse{Code: dept, Name: dept.DisplayName()})
	}
	return c.JSON(fiber.Map{"data": items})
}
