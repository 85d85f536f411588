package dto

import (
	"time"

	"github.com/spec-kit/points-service/internal/domain"
)

// InitiateTransferPayload is the body of POST /admin/transfers.
type InitiateTransferPayload struct {
	ToEmail    string `json:"to_email" validate:"required,email"`
	Department string `json:"department" validate:"required"`
}

// TransferTokenPayload carries the link token for accept and reject.
type TransferTokenPayload struct {
	Token string `json:"token" validate:"required"`
}

type TransferResponse struct {
	ID         string                `json:"id"`
	FromEmail  string                `json:"from_email"`
	ToEmail    string                `json:"to_email"`
	Department domain.Department     `json:"department"`
	Status     domain.TransferStatus `json:"status"`
	CreatedAt  time.Time             `json:"created_at"`
	ExpiresAt  time.Time             `json:"expires_at"`
	AcceptedAt *time.Time            `json:"accepted_at,omitempty"`
	RejectedAt *time.Time            `json:"rejected_at,omitempty"`
	RejectedBy *string               `json:"rejected_by,omitempty"`
}

// TransferInvitationResponse is returned once, to the initiator.
type TransferInvitationResponse struct {
	Transfer  TransferResponse `json:"transfer"`
	AcceptURL string           `json:"accept_url"`
}

func NewTransferResponse(t *domain.AdminTransfer) TransferResponse {
	return TransferResponse{
		ID:         t.ID,
		FromEmail:  t.FromEmail,
		ToEmail:    t.ToEmail,
		Department: t.Department,
		Status:     t.Status,
		CreatedAt:  t.CreatedAt,
		ExpiresAt:  t.ExpiresAt,
		AcceptedAt: t.AcceptedAt,
		RejectedAt: t.RejectedAt,
		RejectedBy: t.RejectedBy,
	}
}

func NewTransferList(transfers []domain.AdminTransfer) []TransferResponse {
	items := make([]TransferResponse, 0, len(transfers))
	for i := range transfers {
		items = append(items, NewTransferResponse(&transfers[i]))
	}
	return items
}
