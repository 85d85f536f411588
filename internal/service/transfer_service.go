package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/points-service/internal/auth"
	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/events"
	"github.com/spec-kit/points-service/internal/repository"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

const defaultTransferExpiry = 24 * time.Hour

var (
	errRecipientIsSecretary = errors.New("recipient is a secretary")
	errSenderLostDepartment = errors.New("sender no longer holds the department")
)

// TransferService hands a department from one admin to another through an expiring link.
type TransferService struct {
	transfers   repository.TransferRepository
	admins      repository.AdminRepository
	secretaries repository.SecretaryRepository
	tx          repository.Transactor
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         Clock
	expiry      time.Duration
	emailDomain string
	baseURL     string
	bcryptCost  int
}

// TransferDependencies bundles collaborators for the transfer service.
type TransferDependencies struct {
	TransferRepo  repository.TransferRepository
	AdminRepo     repository.AdminRepository
	SecretaryRepo repository.SecretaryRepository
	Transactor    repository.Transactor
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Clock         Clock
	Expiry        time.Duration
	EmailDomain   string
	BaseURL       string
	BcryptCost    int
}

// TransferInvitation is returned once to the initiator; Token is never stored in clear.
type TransferInvitation struct {
	Transfer  domain.AdminTransfer
	Token     string
	AcceptURL string
}

// NewTransferService constructs the service.
func NewTransferService(deps TransferDependencies) *TransferService {
	expiry := deps.Expiry
	if expiry <= 0 {
		expiry = defaultTransferExpiry
	}
	cost := deps.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &TransferService{
		transfers:   deps.TransferRepo,
		admins:      deps.AdminRepo,
		secretaries: deps.SecretaryRepo,
		tx:          deps.Transactor,
		dispatcher:  deps.Dispatcher,
		logger:      loggerOrNop(deps.Logger),
		now:         clockOrDefault(deps.Clock),
		expiry:      expiry,
		emailDomain: deps.EmailDomain,
		baseURL:     strings.TrimRight(deps.BaseURL, "/"),
		bcryptCost:  cost,
	}
}

// AcceptURL builds the shareable link for a transfer.
func AcceptURL(baseURL, transferID, token string) string {
	return fmt.Sprintf("%s/accept-transfer?id=%s&token=%s", baseURL, transferID, token)
}

// Initiate offers one of the caller's departments to another email.
func (s *TransferService) Initiate(ctx context.Context, session *domain.Session, toEmail, department string) (*TransferInvitation, error) {
	dept, ok := domain.ParseDepartment(department)
	if !ok {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": department})
	}
	if err := requireDepartmentAdmin(session, dept); err != nil {
		return nil, err
	}
	to := domain.NormalizeEmail(toEmail)
	if !domain.HasEmailDomain(to, s.emailDomain) {
		return nil, apperrors.NewValidationError("recipient must use the organization email domain", map[string]any{"domain": s.emailDomain})
	}
	if to == session.Email {
		return nil, apperrors.NewValidationError("cannot transfer to yourself", nil)
	}
	if err := s.ensureNotSecretary(ctx, to); err != nil {
		if errors.Is(err, errRecipientIsSecretary) {
			return nil, apperrors.NewConflict("recipient already is a secretary", map[string]any{"email": to})
		}
		return nil, err
	}
	outgoing, err := s.listPending(ctx, repository.TransferFilter{FromEmail: &session.Email})
	if err != nil {
		return nil, err
	}
	for _, pending := range outgoing {
		if pending.Department == dept {
			return nil, apperrors.NewConflict("a pending transfer for this department already exists", map[string]any{"transfer_id": pending.ID})
		}
	}

	token, err := auth.NewTransferToken()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	hash, err := auth.HashToken(token, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.now().UTC()
	transfer := &domain.AdminTransfer{
		FromEmail:  session.Email,
		ToEmail:    to,
		Department: dept,
		TokenHash:  hash,
		Status:     domain.TransferStatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.expiry),
	}
	if err := s.transfers.Create(ctx, transfer); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTransferInitiated, transfer, session.Email)
	return &TransferInvitation{
		Transfer:  *transfer,
		Token:     token,
		AcceptURL: AcceptURL(s.baseURL, transfer.ID, token),
	}, nil
}

// Validate checks a transfer link. A pending transfer past its deadline is persisted as
// expired before Expired is returned.
func (s *TransferService) Validate(ctx context.Context, id, token string) (*domain.AdminTransfer, error) {
	transfer, err := s.load(ctx, id, token)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePending(ctx, transfer); err != nil {
		return nil, err
	}
	return transfer, nil
}

// Accept moves the department to the recipient. Accepting an already accepted transfer
// again is a no-op.
func (s *TransferService) Accept(ctx context.Context, session *domain.Session, id, token string) (*domain.AdminTransfer, error) {
	transfer, err := s.load(ctx, id, token)
	if err != nil {
		return nil, err
	}
	if transfer.Status == domain.TransferStatusAccepted && transfer.ToEmail == session.Email {
		return transfer, nil
	}
	if err := s.ensurePending(ctx, transfer); err != nil {
		return nil, err
	}
	if transfer.ToEmail != session.Email {
		return nil, apperrors.NewForbidden("transfer is addressed to another email")
	}

	now := s.now().UTC()
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.transfers.Transition(ctx, transfer.ID, domain.TransferStatusPending, repository.TransferTransition{
			Status:     domain.TransferStatusAccepted,
			AcceptedAt: &now,
		}); err != nil {
			return err
		}
		if err := s.ensureNotSecretary(ctx, transfer.ToEmail); err != nil {
			return err
		}
		if err := s.admins.RevokeDepartment(ctx, transfer.FromEmail, transfer.Department, now); err != nil {
			if errors.Is(err, repository.ErrStateConflict) {
				return errSenderLostDepartment
			}
			return fmt.Errorf("revoke department: %w", err)
		}
		if err := s.admins.GrantDepartment(ctx, transfer.ToEmail, transfer.Department, now); err != nil {
			return fmt.Errorf("grant department: %w", err)
		}
		return nil
	})
	switch {
	case errors.Is(err, errRecipientIsSecretary):
		return nil, apperrors.NewConflict("recipient already is a secretary", map[string]any{"email": transfer.ToEmail})
	case errors.Is(err, errSenderLostDepartment):
		return nil, apperrors.NewInvalidState("sender no longer holds the department", map[string]any{
			"from_email": transfer.FromEmail,
			"department": string(transfer.Department),
		})
	case errors.Is(err, repository.ErrStateConflict):
		return s.resolvedConcurrently(ctx, session, transfer.ID)
	case err != nil:
		return nil, err
	}

	transfer.Status = domain.TransferStatusAccepted
	transfer.AcceptedAt = &now
	s.logger.Info("department transferred",
		zap.String("transfer_id", transfer.ID),
		zap.String("department", string(transfer.Department)),
		zap.String("from", transfer.FromEmail),
		zap.String("to", transfer.ToEmail))
	s.publish(ctx, events.EventTransferAccepted, transfer, session.Email)
	return transfer, nil
}

// Reject declines a pending transfer addressed to the caller.
func (s *TransferService) Reject(ctx context.Context, session *domain.Session, id, token string) (*domain.AdminTransfer, error) {
	transfer, err := s.load(ctx, id, token)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePending(ctx, transfer); err != nil {
		return nil, err
	}
	if transfer.ToEmail != session.Email {
		return nil, apperrors.NewForbidden("transfer is addressed to another email")
	}

	now := s.now().UTC()
	update := repository.TransferTransition{
		Status:     domain.TransferStatusRejected,
		RejectedAt: &now,
		RejectedBy: strPtr(session.Email),
	}
	if err := s.transfers.Transition(ctx, transfer.ID, domain.TransferStatusPending, update); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, s.currentStateError(ctx, transfer.ID)
		}
		return nil, notFoundOr(err, "transfer", id)
	}

	transfer.Status = update.Status
	transfer.RejectedAt = update.RejectedAt
	transfer.RejectedBy = update.RejectedBy
	s.publish(ctx, events.EventTransferRejected, transfer, session.Email)
	return transfer, nil
}

// ListIncoming returns live transfers addressed to the caller.
func (s *TransferService) ListIncoming(ctx context.Context, session *domain.Session) ([]domain.AdminTransfer, error) {
	return s.listPending(ctx, repository.TransferFilter{ToEmail: &session.Email})
}

// ListOutgoing returns live transfers the caller initiated.
func (s *TransferService) ListOutgoing(ctx context.Context, session *domain.Session) ([]domain.AdminTransfer, error) {
	if !session.Role.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	return s.listPending(ctx, repository.TransferFilter{FromEmail: &session.Email})
}

func (s *TransferService) listPending(ctx context.Context, filter repository.TransferFilter) ([]domain.AdminTransfer, error) {
	pending := domain.TransferStatusPending
	filter.Status = &pending
	transfers, err := s.transfers.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	live := make([]domain.AdminTransfer, 0, len(transfers))
	for i := range transfers {
		if err := s.ensurePending(ctx, &transfers[i]); err != nil {
			if apperrors.HasCode(err, apperrors.CodeTransferExpired) || apperrors.HasCode(err, apperrors.CodeAlreadyResolved) {
				continue
			}
			return nil, err
		}
		live = append(live, transfers[i])
	}
	return live, nil
}

// ensureNotSecretary keeps the admin and secretary rosters disjoint.
func (s *TransferService) ensureNotSecretary(ctx context.Context, email string) error {
	_, err := s.secretaries.Get(ctx, email)
	switch {
	case err == nil:
		return errRecipientIsSecretary
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *TransferService) load(ctx context.Context, id, token string) (*domain.AdminTransfer, error) {
	transfer, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "transfer", id)
	}
	if !auth.TokenMatches(transfer.TokenHash, token) {
		return nil, apperrors.NewTokenMismatch()
	}
	return transfer, nil
}

// ensurePending returns nil for a live pending transfer. It flips an overdue pending
// transfer to expired, updating transfer in place.
func (s *TransferService) ensurePending(ctx context.Context, transfer *domain.AdminTransfer) error {
	switch transfer.Status {
	case domain.TransferStatusExpired:
		return apperrors.NewTransferExpired()
	case domain.TransferStatusAccepted, domain.TransferStatusRejected:
		return apperrors.NewAlreadyResolved(string(transfer.Status))
	}

	now := s.now()
	if !transfer.ExpiredAt(now) {
		return nil
	}
	err := s.transfers.Transition(ctx, transfer.ID, domain.TransferStatusPending, repository.TransferTransition{Status: domain.TransferStatusExpired})
	switch {
	case err == nil:
		transfer.Status = domain.TransferStatusExpired
		s.logger.Info("transfer expired", zap.String("transfer_id", transfer.ID), zap.Time("expires_at", transfer.ExpiresAt))
		s.publish(ctx, events.EventTransferExpired, transfer, "")
		return apperrors.NewTransferExpired()
	case errors.Is(err, repository.ErrStateConflict):
		return s.currentStateError(ctx, transfer.ID)
	default:
		return err
	}
}

// currentStateError re-reads a transfer whose conditional update lost a race.
func (s *TransferService) currentStateError(ctx context.Context, id string) error {
	current, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "transfer", id)
	}
	if current.Status == domain.TransferStatusExpired {
		return apperrors.NewTransferExpired()
	}
	return apperrors.NewAlreadyResolved(string(current.Status))
}

func (s *TransferService) resolvedConcurrently(ctx context.Context, session *domain.Session, id string) (*domain.AdminTransfer, error) {
	current, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "transfer", id)
	}
	if current.Status == domain.TransferStatusAccepted && current.ToEmail == session.Email {
		return current, nil
	}
	return nil, s.currentStateError(ctx, id)
}

func (s *TransferService) publish(ctx context.Context, eventType events.EventType, transfer *domain.AdminTransfer, actor string) {
	publishEvent(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:       eventType,
		SubjectID:  transfer.ID,
		Department: transfer.Department,
		Actor:      actor,
		Payload:    events.TransferPayload{FromEmail: transfer.FromEmail, ToEmail: transfer.ToEmail},
	})
}
