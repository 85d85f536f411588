package handlers

import (
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/points-service/internal/api/dto"
	"github.com/spec-kit/points-service/internal/service"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

// SecretariesHandler lets admins manage department secretaries.
type SecretariesHandler struct {
	service *service.SecretaryService
}

func NewSecretariesHandler(secretaryService *service.SecretaryService) *SecretariesHandler {
	return &SecretariesHandler{service: secretaryService}
}

// List GET /admin/secretaries.
func (h *SecretariesHandler) List(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	secretaries, err := h.service.List(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSecretaryList(secretaries)})
}

// Add POST /admin/secretaries.
func (h *SecretariesHandler) Add(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.AddSecretaryPayload
	if err := parseBody(c, &req); err != nil {
		return err
	}
	secretary, err := h.service.Add(c.UserContext(), session, req.Email, req.Department)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSecretaryResponse(secretary)})
}

// Remove DELETE /admin/secretaries/:email.
func (h *SecretariesHandler) Remove(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil {
		return apperrors.NewValidationError("invalid email", nil)
	}
	if err := h.service.Remove(c.UserContext(), session, email); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
