package dto

import (
	"time"

	"github.com/spec-kit/points-service/internal/domain"
)

// AuthResponse wraps an issued session token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MeResponse describes the caller and their resolved role.
type MeResponse struct {
	UserID      string              `json:"user_id"`
	Email       string              `json:"email"`
	Name        string              `json:"name"`
	Role        domain.Role         `json:"role"`
	Departments []domain.Department `json:"departments"`
}

func NewMeResponse(s *domain.Session) MeResponse {
	depts := s.Role.Departments
	if depts == nil {
		depts = []domain.Department{}
	}
	return MeResponse{UserID: s.UserID, Email: s.Email, Name: s.Name, Role: s.Role.Role, Departments: depts}
}

// DepartmentResponse lists a selectable department.
type DepartmentResponse struct {
	Code domain.Department `json:"code"`
	Name string            `json:"name"`
}
