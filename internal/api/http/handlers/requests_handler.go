package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/points-service/internal/api/dto"
	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/service"
)

// RequestsHandler exposes point request endpoints for members and reviewers.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// Submit POST /requests.
func (h *RequestsHandler) Submit(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.SubmitRequestPayload
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.service.Submit(c.UserContext(), session, service.RequestSubmitInput{
		Department: req.Department,
		Task:       req.Task,
		EventDate:  req.EventDate,
		ProofURL:   req.ProofURL,
		TaskNumber: req.TaskNumber,
		Details:    req.Details,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPointRequestResponse(created)})
}

// Mine GET /requests/mine?cursor=.
func (h *RequestsHandler) Mine(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListForUser(c.UserContext(), session.UserID, c.Query("cursor"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RequestPageResponse{
		Items:      dto.NewPointRequestList(page.Items),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}})
}

// Get GET /requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	req, err := h.service.Get(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPointRequestResponse(req)})
}

// Cancel POST /requests/:id/cancel.
func (h *RequestsHandler) Cancel(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	req, err := h.service.Cancel(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPointRequestResponse(req)})
}

// ListForReview GET /admin/requests?status=&department=.
func (h *RequestsHandler) ListForReview(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	reqs, err := h.service.ListByStatus(c.UserContext(), session, c.Query("status", string(domain.RequestStatusPending)), c.Query("department"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPointRequestList(reqs)})
}

// Approve POST /admin/requests/:id/approve.
func (h *RequestsHandler) Approve(c *fiber.Ctx) error {
	return h.review(c, domain.DecisionApprove)
}

// Reject POST /admin/requests/:id/reject.
func (h *RequestsHandler) Reject(c *fiber.Ctx) error {
	return h.review(c, domain.DecisionReject)
}

func (h *RequestsHandler) review(c *fiber.Ctx, decision domain.ReviewDecision) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var payload dto.ReviewPayload
	if len(c.Body()) > 0 {
		if err := parseBody(c, &payload); err != nil {
			return err
		}
	}
	req, err := h.service.Review(c.UserContext(), session, c.Params("id"), decision, payload.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPointRequestResponse(req)})
}
