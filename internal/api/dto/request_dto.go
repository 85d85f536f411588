package dto

import (
	"time"

	"github.com/spec-kit/points-service/internal/domain"
)

// SubmitRequestPayload is the body of POST /requests.
type SubmitRequestPayload struct {
	Department string `json:"department" validate:"required"`
	Task       string `json:"task" validate:"required,max=300"`
	EventDate  string `json:"event_date" validate:"omitempty,datetime=2006-01-02"`
	ProofURL   string `json:"proof_url" validate:"omitempty,url"`
	TaskNumber string `json:"task_number" validate:"omitempty,numeric"`
	Details    string `json:"details" validate:"max=2000"`
}

// ReviewPayload carries the reviewer comment.
type ReviewPayload struct {
	Comment string `json:"comment" validate:"max=1000"`
}

// PointRequestResponse is the API view of a request.
type PointRequestResponse struct {
	ID            string               `json:"id"`
	UserEmail     string               `json:"user_email"`
	UserName      string               `json:"user_name"`
	Department    domain.Department    `json:"department"`
	Task          string               `json:"task"`
	EventDate     *string              `json:"event_date,omitempty"`
	ProofURL      *string              `json:"proof_url,omitempty"`
	TaskNumber    *string              `json:"task_number,omitempty"`
	Details       *string              `json:"details,omitempty"`
	Status        domain.RequestStatus `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	ReviewedBy    *string              `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time           `json:"reviewed_at,omitempty"`
	AdminComment  *string              `json:"admin_comment,omitempty"`
	AwardedPoints *int                 `json:"awarded_points,omitempty"`
}

// RequestPageResponse is one page of the caller's requests.
type RequestPageResponse struct {
	Items      []PointRequestResponse `json:"items"`
	NextCursor string                 `json:"next_cursor,omitempty"`
	HasMore    bool                   `json:"has_more"`
}

// NewPointRequestResponse maps a domain request.
func NewPointRequestResponse(req *domain.PointRequest) PointRequestResponse {
	return PointRequestResponse{
		ID:            req.ID,
		UserEmail:     req.UserEmail,
		UserName:      req.UserName,
		Department:    req.Department,
		Task:          req.Task,
		EventDate:     req.EventDate,
		ProofURL:      req.ProofURL,
		TaskNumber:    req.TaskNumber,
		Details:       req.Details,
		Status:        req.Status,
		CreatedAt:     req.CreatedAt,
		ReviewedBy:    req.ReviewedBy,
		ReviewedAt:    req.ReviewedAt,
		AdminComment:  req.AdminComment,
		AwardedPoints: req.AwardedPoints,
	}
}

func NewPointRequestList(reqs []domain.PointRequest) []PointRequestResponse {
	items := make([]PointRequestResponse, 0, len(reqs))
	for i := range reqs {
		items = append(items, NewPointRequestResponse(&reqs[i]))
	}
	return items
}
