package service

import (
	"context"
	"errors"

	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/repository"
)

// RoleService resolves the role of a verified email.
type RoleService struct {
	admins      repository.AdminRepository
	secretaries repository.SecretaryRepository
}

// RoleDependencies bundles repositories for role resolution.
type RoleDependencies struct {
	AdminRepo     repository.AdminRepository
	SecretaryRepo repository.SecretaryRepository
}

// NewRoleService constructs the service.
func NewRoleService(deps RoleDependencies) *RoleService {
	return &RoleService{admins: deps.AdminRepo, secretaries: deps.SecretaryRepo}
}

// Resolve looks up the admin record first, then the secretary record. An admin record
// wins even when its department list is empty. Store errors are returned unchanged.
func (s *RoleService) Resolve(ctx context.Context, email string) (domain.RoleInfo, error) {
	email = domain.NormalizeEmail(email)

	admin, err := s.admins.Get(ctx, email)
	switch {
	case err == nil:
		return domain.RoleInfo{Role: domain.RoleAdmin, Departments: admin.Departments}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return domain.RoleInfo{}, err
	}

	secretary, err := s.secretaries.Get(ctx, email)
	switch {
	case err == nil:
		return domain.RoleInfo{Role: domain.RoleSecretary, Departments: secretary.Departments}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return domain.RoleInfo{}, err
	}

	return domain.MemberRole(), nil
}
