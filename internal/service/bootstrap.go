package service

import (
	"context"
	"time"

	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/repository"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

// BootstrapAdmin grants departments to an admin without a session. It is used to seed
// the first admin, who can then transfer departments and appoint secretaries.
func BootstrapAdmin(ctx context.Context, admins repository.AdminRepository, email string, departments []string, emailDomain string, now time.Time) (*domain.Admin, error) {
	email = domain.NormalizeEmail(email)
	if !domain.HasEmailDomain(email, emailDomain) {
		return nil, apperrors.NewValidationError("admin must use the organization email domain", map[string]any{"domain": emailDomain})
	}
	if len(departments) == 0 {
		return nil, apperrors.NewValidationError("at least one department is required", nil)
	}

	parsed := make([]domain.Department, 0, len(departments))
	for _, raw := range departments {
		dept, ok := domain.ParseDepartment(raw)
		if !ok {
			return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": raw})
		}
		parsed = append(parsed, dept)
	}
	for _, dept := range parsed {
		if err := admins.GrantDepartment(ctx, email, dept, now.UTC()); err != nil {
			return nil, err
		}
	}
	return admins.Get(ctx, email)
}
