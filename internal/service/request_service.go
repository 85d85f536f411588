package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/points-service/internal/cache"
	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/events"
	"github.com/spec-kit/points-service/internal/repository"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

const defaultPageSize = 15

// RequestService coordinates the point request lifecycle.
type RequestService struct {
	requests   repository.PointRequestRepository
	tasks      repository.TaskRepository
	cache      cache.LeaderboardCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
	pageSize   int
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo repository.PointRequestRepository
	TaskRepo    repository.TaskRepository
	Cache       cache.LeaderboardCache
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       Clock
	PageSize    int
}

// RequestSubmitInput describes a member's claim.
type RequestSubmitInput struct {
	Department string
	Task       string
	EventDate  string
	ProofURL   string
	TaskNumber string
	Details    string
}

// RequestPage is one page of a member's history, newest first.
type RequestPage struct {
	Items      []domain.PointRequest
	NextCursor string
	HasMore    bool
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	lb := deps.Cache
	if lb == nil {
		lb = cache.NoopLeaderboardCache{}
	}
	return &RequestService{
		requests:   deps.RequestRepo,
		tasks:      deps.TaskRepo,
		cache:      lb,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Clock),
		pageSize:   pageSize,
	}
}

var allowedTransitions = map[domain.RequestStatus][]domain.RequestStatus{
	domain.RequestStatusPending:   {domain.RequestStatusApproved, domain.RequestStatusRejected, domain.RequestStatusCancelled},
	domain.RequestStatusApproved:  {},
	domain.RequestStatusRejected:  {},
	domain.RequestStatusCancelled: {},
}

func isValidTransition(current, next domain.RequestStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Submit records a new pending request for the caller.
func (s *RequestService) Submit(ctx context.Context, session *domain.Session, input RequestSubmitInput) (*domain.PointRequest, error) {
	dept, ok := domain.ParseDepartment(input.Department)
	if !ok {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": input.Department})
	}
	task := strings.TrimSpace(input.Task)
	if task == "" {
		return nil, apperrors.NewValidationError("task is required", nil)
	}
	taskNumber := strings.TrimSpace(input.TaskNumber)
	if taskNumber != "" {
		if n, err := strconv.Atoi(taskNumber); err != nil || n < 1 {
			return nil, apperrors.NewValidationError("task number must be a positive integer", map[string]any{"task_number": input.TaskNumber})
		}
	}

	catalog, err := s.tasks.ListByDepartment(ctx, dept)
	if err != nil {
		return nil, err
	}
	if _, ok := newPointsCatalog(catalog).lookup(task); !ok {
		return nil, apperrors.NewValidationError("task is not in the department catalog", map[string]any{"task": task, "department": dept})
	}

	req := &domain.PointRequest{
		UserID:     session.UserID,
		UserEmail:  session.Email,
		UserName:   session.Name,
		Department: dept,
		Task:       task,
		EventDate:  optionalString(strings.TrimSpace(input.EventDate)),
		ProofURL:   optionalString(strings.TrimSpace(input.ProofURL)),
		TaskNumber: optionalString(taskNumber),
		Details:    optionalString(strings.TrimSpace(input.Details)),
		Status:     domain.RequestStatusPending,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:       events.EventRequestSubmitted,
		SubjectID:  req.ID,
		Department: dept,
		Actor:      session.Email,
		Payload:    events.RequestSubmittedPayload{UserEmail: req.UserEmail, Task: req.Task},
	})
	return req, nil
}

// Review approves or rejects a pending request. Approval snapshots the task's base points.
func (s *RequestService) Review(ctx context.Context, session *domain.Session, id string, decision domain.ReviewDecision, comment string) (*domain.PointRequest, error) {
	var next domain.RequestStatus
	switch decision {
	case domain.DecisionApprove:
		next = domain.RequestStatusApproved
	case domain.DecisionReject:
		next = domain.RequestStatusRejected
	default:
		return nil, apperrors.NewValidationError("unknown decision", map[string]any{"decision": decision})
	}

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "request", id)
	}
	if !session.Role.CanReviewDepartment(req.Department) {
		return nil, apperrors.NewForbidden("not authorized to review requests of this department")
	}
	if !isValidTransition(req.Status, next) {
		return nil, invalidRequestState(req.Status)
	}
	comment = strings.TrimSpace(comment)
	if next == domain.RequestStatusRejected && comment == "" {
		return nil, apperrors.NewValidationError("a comment is required when rejecting", nil)
	}

	now := s.now().UTC()
	update := repository.RequestTransition{
		Status:       next,
		ReviewedBy:   strPtr(session.Email),
		ReviewedAt:   &now,
		AdminComment: optionalString(comment),
	}
	if next == domain.RequestStatusApproved {
		update.AwardedPoints = s.snapshotPoints(ctx, *req)
	}
	if err := s.requests.Transition(ctx, id, domain.RequestStatusPending, update); err != nil {
		return nil, s.transitionError(ctx, err, id)
	}

	req.Status = update.Status
	req.ReviewedBy = update.ReviewedBy
	req.ReviewedAt = update.ReviewedAt
	req.AdminComment = update.AdminComment
	req.AwardedPoints = update.AwardedPoints

	eventType := events.EventRequestRejected
	if next == domain.RequestStatusApproved {
		eventType = events.EventRequestApproved
		if err := s.cache.Invalidate(ctx, req.Department); err != nil {
			s.logger.Warn("leaderboard cache invalidation failed", zap.String("department", string(req.Department)), zap.Error(err))
		}
	}
	publishEvent(ctx, s.dispatcher, s.logger, now, events.Event{
		Type:       eventType,
		SubjectID:  req.ID,
		Department: req.Department,
		Actor:      session.Email,
		Payload: events.RequestReviewedPayload{
			UserEmail:     req.UserEmail,
			Task:          req.Task,
			Comment:       comment,
			AwardedPoints: req.AwardedPoints,
		},
	})
	return req, nil
}

// Cancel withdraws the caller's own pending request.
func (s *RequestService) Cancel(ctx context.Context, session *domain.Session, id string) (*domain.PointRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "request", id)
	}
	if req.UserID != session.UserID {
		return nil, apperrors.NewForbidden("only the submitter can cancel a request")
	}
	if !isValidTransition(req.Status, domain.RequestStatusCancelled) {
		return nil, invalidRequestState(req.Status)
	}
	if err := s.requests.Transition(ctx, id, domain.RequestStatusPending, repository.RequestTransition{Status: domain.RequestStatusCancelled}); err != nil {
		return nil, s.transitionError(ctx, err, id)
	}
	req.Status = domain.RequestStatusCancelled

	publishEvent(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:       events.EventRequestCancelled,
		SubjectID:  req.ID,
		Department: req.Department,
		Actor:      session.Email,
	})
	return req, nil
}

// Get returns one request to its submitter or to a reviewer of its department.
func (s *RequestService) Get(ctx context.Context, session *domain.Session, id string) (*domain.PointRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "request", id)
	}
	if req.UserID != session.UserID && !session.Role.CanReviewDepartment(req.Department) {
		return nil, apperrors.NewForbidden("not authorized to view this request")
	}
	return req, nil
}

// ListForUser pages through a member's requests, newest first.
func (s *RequestService) ListForUser(ctx context.Context, userID, cursor string) (*RequestPage, error) {
	after, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	items, err := s.requests.List(ctx, repository.RequestFilter{
		UserID: &userID,
		After:  after,
		Limit:  s.pageSize + 1,
	})
	if err != nil {
		return nil, err
	}

	page := &RequestPage{Items: items}
	if len(items) > s.pageSize {
		page.Items = items[:s.pageSize]
		page.HasMore = true
		last := page.Items[len(page.Items)-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	if page.Items == nil {
		page.Items = []domain.PointRequest{}
	}
	return page, nil
}

// ListByStatus returns requests in status for one department or "all", limited to the
// departments the caller may review.
func (s *RequestService) ListByStatus(ctx context.Context, session *domain.Session, status, department string) ([]domain.PointRequest, error) {
	if !session.Role.CanReview() {
		return nil, apperrors.NewForbidden("admin or secretary role required")
	}
	st, ok := domain.ParseRequestStatus(status)
	if !ok {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	filter := repository.RequestFilter{Status: &st}
	if department != "" && !strings.EqualFold(department, "all") {
		dept, ok := domain.ParseDepartment(department)
		if !ok {
			return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": department})
		}
		filter.Department = &dept
	}

	items, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if session.Role.HasGeneral() {
		if items == nil {
			items = []domain.PointRequest{}
		}
		return items, nil
	}
	visible := make([]domain.PointRequest, 0, len(items))
	for _, item := range items {
		if session.Role.CanActOnDepartment(item.Department) {
			visible = append(visible, item)
		}
	}
	return visible, nil
}

// snapshotPoints resolves the base points at approval time. A catalog read failure
// leaves the snapshot empty so scoring falls back to the live catalog.
func (s *RequestService) snapshotPoints(ctx context.Context, req domain.PointRequest) *int {
	tasks, err := s.tasks.ListByDepartment(ctx, req.Department)
	if err != nil {
		s.logger.Warn("task catalog unavailable at approval", zap.String("request_id", req.ID), zap.Error(err))
		return nil
	}
	points := basePoints(newPointsCatalog(tasks), req)
	if points <= 0 {
		return nil
	}
	return &points
}

// transitionError maps a failed conditional update. A state conflict means another
// caller resolved the request first.
func (s *RequestService) transitionError(ctx context.Context, err error, id string) error {
	if errors.Is(err, repository.ErrStateConflict) {
		if current, getErr := s.requests.GetByID(ctx, id); getErr == nil {
			return invalidRequestState(current.Status)
		}
		return apperrors.NewInvalidState("request is no longer pending", map[string]any{"id": id})
	}
	return notFoundOr(err, "request", id)
}

func invalidRequestState(status domain.RequestStatus) error {
	return apperrors.NewInvalidState("request is not pending", map[string]any{"status": status})
}
