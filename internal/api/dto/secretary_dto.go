package dto

import (
	"time"

	"github.com/spec-kit/points-service/internal/domain"
)

// AddSecretaryPayload is the body of POST /admin/secretaries.
type AddSecretaryPayload struct {
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department" validate:"required"`
}

type SecretaryResponse struct {
	Email       string              `json:"email"`
	Departments []domain.Department `json:"departments"`
	CreatedBy   string              `json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
}

func NewSecretaryResponse(s *domain.Secretary) SecretaryResponse {
	depts := s.Departments
	if depts == nil {
		depts = []domain.Department{}
	}
	return SecretaryResponse{Email: s.Email, Departments: depts, CreatedBy: s.CreatedBy, CreatedAt: s.CreatedAt}
}

func NewSecretaryList(secretaries []domain.Secretary) []SecretaryResponse {
	items := make([]SecretaryResponse, 0, len(secretaries))
	for i := range secretaries {
		items = append(items, NewSecretaryResponse(&secretaries[i]))
	}
	return items
}
