package events

import (
	"time"

	"github.com/spec-kit/points-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestSubmitted  EventType = "request_submitted"
	EventRequestApproved   EventType = "request_approved"
	EventRequestRejected   EventType = "request_rejected"
	EventRequestCancelled  EventType = "request_cancelled"
	EventTaskCreated       EventType = "task_created"
	EventTaskUpdated       EventType = "task_updated"
	EventTaskDeleted       EventType = "task_deleted"
	EventTransferInitiated EventType = "transfer_initiated"
	EventTransferAccepted  EventType = "transfer_accepted"
	EventTransferRejected  EventType = "transfer_rejected"
	EventTransferExpired   EventType = "transfer_expired"
	EventSecretaryAdded    EventType = "secretary_added"
	EventSecretaryRemoved  EventType = "secretary_removed"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventRequestSubmitted,
	EventRequestApproved,
	EventRequestRejected,
	EventRequestCancelled,
	EventTaskCreated,
	EventTaskUpdated,
	EventTaskDeleted,
	EventTransferInitiated,
	EventTransferAccepted,
	EventTransferRejected,
	EventTransferExpired,
	EventSecretaryAdded,
	EventSecretaryRemoved,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	SubjectID  string            `json:"subject_id"`
	Department domain.Department `json:"department,omitempty"`
	Actor      string            `json:"actor,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    any               `json:"payload,omitempty"`
}

// RequestReviewedPayload payload.
type RequestReviewedPayload struct {
	UserEmail     string `json:"user_email"`
	Task          string `json:"task"`
	Comment       string `json:"comment,omitempty"`
	AwardedPoints *int   `json:"awarded_points,omitempty"`
}

// RequestSubmittedPayload payload.
type RequestSubmittedPayload struct {
	UserEmail string `json:"user_email"`
	Task      string `json:"task"`
}

// TaskChangedPayload payload.
type TaskChangedPayload struct {
	Description string `json:"description"`
	Points      int    `json:"points"`
}

// TransferPayload payload.
type TransferPayload struct {
	FromEmail string `json:"from_email"`
	ToEmail   string `json:"to_email"`
}

// SecretaryPayload payload.
type SecretaryPayload struct {
	Email string `json:"email"`
}
