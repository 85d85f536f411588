package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/events"
	"github.com/spec-kit/points-service/internal/repository"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

// SecretaryService lets admins appoint reviewers for their departments.
type SecretaryService struct {
	secretaries repository.SecretaryRepository
	admins      repository.AdminRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         Clock
	emailDomain string
}

// SecretaryDependencies bundles collaborators for secretary management.
type SecretaryDependencies struct {
	SecretaryRepo repository.SecretaryRepository
	AdminRepo     repository.AdminRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Clock         Clock
	EmailDomain   string
}

// NewSecretaryService constructs the service.
func NewSecretaryService(deps SecretaryDependencies) *SecretaryService {
	return &SecretaryService{
		secretaries: deps.SecretaryRepo,
		admins:      deps.AdminRepo,
		dispatcher:  deps.Dispatcher,
		logger:      loggerOrNop(deps.Logger),
		now:         clockOrDefault(deps.Clock),
		emailDomain: deps.EmailDomain,
	}
}

// Add appoints email as secretary of one of the caller's departments. An email that
// already is an admin or a secretary is rejected.
func (s *SecretaryService) Add(ctx context.Context, session *domain.Session, email, department string) (*domain.Secretary, error) {
	dept, ok := domain.ParseDepartment(department)
	if !ok {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": department})
	}
	if err := requireDepartmentAdmin(session, dept); err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)
	if !domain.HasEmailDomain(email, s.emailDomain) {
		return nil, apperrors.NewValidationError("secretary must use the organization email domain", map[string]any{"domain": s.emailDomain})
	}

	_, err := s.admins.Get(ctx, email)
	switch {
	case err == nil:
		return nil, apperrors.NewConflict("email already belongs to an admin", map[string]any{"email": email})
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	secretary := &domain.Secretary{
		Email:       email,
		Departments: []domain.Department{dept},
		CreatedBy:   session.Email,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.secretaries.Create(ctx, secretary); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already is a secretary", map[string]any{"email": email})
		}
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:       events.EventSecretaryAdded,
		SubjectID:  email,
		Department: dept,
		Actor:      session.Email,
		Payload:    events.SecretaryPayload{Email: email},
	})
	return secretary, nil
}

// Remove revokes a secretary. The caller must manage one of the secretary's departments.
func (s *SecretaryService) Remove(ctx context.Context, session *domain.Session, email string) error {
	if !session.Role.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	email = domain.NormalizeEmail(email)
	secretary, err := s.secretaries.Get(ctx, email)
	if err != nil {
		return notFoundOr(err, "secretary", email)
	}
	if !managesAny(session, secretary.Departments) {
		return apperrors.NewForbidden("not an admin of the secretary's department")
	}
	if err := s.secretaries.Delete(ctx, email); err != nil {
		return notFoundOr(err, "secretary", email)
	}
	publishEvent(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:      events.EventSecretaryRemoved,
		SubjectID: email,
		Actor:     session.Email,
		Payload:   events.SecretaryPayload{Email: email},
	})
	return nil
}

// List returns the secretaries of the caller's departments.
func (s *SecretaryService) List(ctx context.Context, session *domain.Session) ([]domain.Secretary, error) {
	if !session.Role.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	secretaries, err := s.secretaries.List(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]domain.Secretary, 0, len(secretaries))
	for _, secretary := range secretaries {
		if managesAny(session, secretary.Departments) {
			visible = append(visible, secretary)
		}
	}
	return visible, nil
}

func managesAny(session *domain.Session, depts []domain.Department) bool {
	for _, dept := range depts {
		if session.Role.CanManageDepartment(dept) {
			return true
		}
	}
	return false
}
