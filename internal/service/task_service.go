package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/points-service/internal/cache"
	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/events"
	"github.com/spec-kit/points-service/internal/repository"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

// TaskLimits bounds catalog entries.
type TaskLimits struct {
	MinPoints            int
	MaxPoints            int
	MinDescriptionLength int
	MaxDescriptionLength int
}

// DefaultTaskLimits are the catalog bounds used when none are configured.
var DefaultTaskLimits = TaskLimits{MinPoints: 1, MaxPoints: 1000, MinDescriptionLength: 3, MaxDescriptionLength: 200}

// TaskService manages the per-department task catalog.
type TaskService struct {
	tasks      repository.TaskRepository
	cache      cache.LeaderboardCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
	limits     TaskLimits
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	Cache      cache.LeaderboardCache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
	Limits     TaskLimits
}

// TaskInput describes a catalog entry.
type TaskInput struct {
	Department  string
	Description string
	Points      int
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	limits := deps.Limits
	if limits == (TaskLimits{}) {
		limits = DefaultTaskLimits
	}
	lb := deps.Cache
	if lb == nil {
		lb = cache.NoopLeaderboardCache{}
	}
	return &TaskService{
		tasks:      deps.TaskRepo,
		cache:      lb,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Clock),
		limits:     limits,
	}
}

// List returns the department's tasks, highest points first.
func (s *TaskService) List(ctx context.Context, department string) ([]domain.DepartmentTask, error) {
	dept, ok := domain.ParseDepartment(department)
	if !ok {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": department})
	}
	tasks, err := s.tasks.ListByDepartment(ctx, dept)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.DepartmentTask{}
	}
	return tasks, nil
}

// Create adds a task to a department the caller administers.
func (s *TaskService) Create(ctx context.Context, session *domain.Session, input TaskInput) (*domain.DepartmentTask, error) {
	dept, ok := domain.ParseDepartment(input.Department)
	if !ok {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": input.Department})
	}
	if err := requireDepartmentAdmin(session, dept); err != nil {
		return nil, err
	}
	description, err := s.validate(input.Description, input.Points)
	if err != nil {
		return nil, err
	}

	task := &domain.DepartmentTask{
		Department:  dept,
		Description: description,
		Points:      input.Points,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	s.changed(ctx, session, events.EventTaskCreated, task)
	return task, nil
}

// Update rewrites the description and points of a task.
func (s *TaskService) Update(ctx context.Context, session *domain.Session, id, description string, points int) (*domain.DepartmentTask, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "task", id)
	}
	if err := requireDepartmentAdmin(session, task.Department); err != nil {
		return nil, err
	}
	cleaned, err := s.validate(description, points)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	task.Description = cleaned
	task.Points = points
	task.UpdatedAt = &now
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, notFoundOr(err, "task", id)
	}
	s.changed(ctx, session, events.EventTaskUpdated, task)
	return task, nil
}

// Delete removes a task. Requests that referenced it keep their snapshot or legacy points.
func (s *TaskService) Delete(ctx context.Context, session *domain.Session, id string) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "task", id)
	}
	if err := requireDepartmentAdmin(session, task.Department); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return notFoundOr(err, "task", id)
	}
	s.changed(ctx, session, events.EventTaskDeleted, task)
	return nil
}

func (s *TaskService) validate(description string, points int) (string, error) {
	description = strings.TrimSpace(description)
	length := utf8.RuneCountInString(description)
	if length < s.limits.MinDescriptionLength || length > s.limits.MaxDescriptionLength {
		return "", apperrors.NewValidationError("description length out of range", map[string]any{
			"min": s.limits.MinDescriptionLength,
			"max": s.limits.MaxDescriptionLength,
		})
	}
	if points < s.limits.MinPoints || points > s.limits.MaxPoints {
		return "", apperrors.NewValidationError("points out of range", map[string]any{
			"min": s.limits.MinPoints,
			"max": s.limits.MaxPoints,
		})
	}
	return description, nil
}

func (s *TaskService) changed(ctx context.Context, session *domain.Session, eventType events.EventType, task *domain.DepartmentTask) {
	if err := s.cache.Invalidate(ctx, task.Department); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", zap.String("department", string(task.Department)), zap.Error(err))
	}
	publishEvent(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:       eventType,
		SubjectID:  task.ID,
		Department: task.Department,
		Actor:      session.Email,
		Payload:    events.TaskChangedPayload{Description: task.Description, Points: task.Points},
	})
}

// requireDepartmentAdmin enforces admin role with literal membership of dept.
func requireDepartmentAdmin(session *domain.Session, dept domain.Department) error {
	if !session.Role.CanManageDepartment(dept) {
		return apperrors.NewForbidden("admin of this department required")
	}
	return nil
}
