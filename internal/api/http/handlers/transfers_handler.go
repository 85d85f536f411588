package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/points-service/internal/api/dto"
	"github.com/spec-kit/points-service/internal/service"
)

// TransfersHandler exposes department transfer endpoints.
type TransfersHandler struct {
	service *service.TransferService
}

// NewTransfersHandler constructs handler.
func NewTransfersHandler(transferService *service.TransferService) *TransfersHandler {
	return &TransfersHandler{service: transferService}
}

// Initiate POST /admin/transfers.
func (h *TransfersHandler) Initiate(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.InitiateTransferPayload
	if err := parseBody(c, &req); err != nil {
		return err
	}
	inv, err := h.service.Initiate(c.UserContext(), session, req.ToEmail, req.Department)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TransferInvitationResponse{
		Transfer:  dto.NewTransferResponse(&inv.Transfer),
		AcceptURL: inv.AcceptURL,
	}})
}

// Incoming GET /transfers/incoming.
func (h *TransfersHandler) Incoming(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	transfers, err := h.service.ListIncoming(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransferList(transfers)})
}

// Outgoing GET /admin/transfers/outgoing.
func (h *TransfersHandler) Outgoing(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	transfers, err := h.service.ListOutgoing(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransferList(transfers)})
}

// Validate GET /transfers/:id?token=.
func (h *TransfersHandler) Validate(c *fiber.Ctx) error {
	transfer, err := h.service.Validate(c.UserContext(), c.Params("id"), c.Query("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransferResponse(transfer)})
}

// Accept POST /transfers/:id/accept.
func (h *TransfersHandler) Accept(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.TransferTokenPayload
	if err := parseBody(c, &req); err != nil {
		return err
	}
	transfer, err := h.service.Accept(c.UserContext(), session, c.Params("id"), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransferResponse(transfer)})
}

// Reject POST /transfers/:id/reject.
func (h *TransfersHandler) Reject(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.TransferTokenPayload
	if err := parseBody(c, &req); err != nil {
		return err
	}
	transfer, err := h.service.Reject(c.UserContext(), session, c.Params("id"), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransferResponse(transfer)})
}
