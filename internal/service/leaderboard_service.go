package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/points-service/internal/cache"
	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/repository"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

// LeaderboardService aggregates approved requests into per-member totals.
type LeaderboardService struct {
	requests repository.PointRequestRepository
	tasks    repository.TaskRepository
	cache    cache.LeaderboardCache
	logger   *zap.Logger
}

// LeaderboardDependencies bundles collaborators for the leaderboard.
type LeaderboardDependencies struct {
	RequestRepo repository.PointRequestRepository
	TaskRepo    repository.TaskRepository
	Cache       cache.LeaderboardCache
	Logger      *zap.Logger
}

// NewLeaderboardService constructs the service.
func NewLeaderboardService(deps LeaderboardDependencies) *LeaderboardService {
	lb := deps.Cache
	if lb == nil {
		lb = cache.NoopLeaderboardCache{}
	}
	return &LeaderboardService{
		requests: deps.RequestRepo,
		tasks:    deps.TaskRepo,
		cache:    lb,
		logger:   loggerOrNop(deps.Logger),
	}
}

// Compute returns the department leaderboard, highest total first. Members whose total
// is not positive are omitted.
func (s *LeaderboardService) Compute(ctx context.Context, department string) ([]domain.LeaderboardEntry, error) {
	dept, ok := domain.ParseDepartment(department)
	if !ok {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": department})
	}

	cached, generation, hit, err := s.cache.Get(ctx, dept)
	cacheable := err == nil
	if err != nil {
		s.logger.Warn("leaderboard cache read failed", zap.String("department", string(dept)), zap.Error(err))
	} else if hit {
		return cached, nil
	}

	tasks, err := s.tasks.ListByDepartment(ctx, dept)
	if err != nil {
		s.logger.Warn("task catalog unavailable; scoring from snapshots only", zap.String("department", string(dept)), zap.Error(err))
		tasks = nil
		cacheable = false
	}
	approved := domain.RequestStatusApproved
	requests, err := s.requests.List(ctx, repository.RequestFilter{Department: &dept, Status: &approved})
	if err != nil {
		return nil, err
	}

	entries := aggregate(newPointsCatalog(tasks), requests)
	if !cacheable {
		return entries, nil
	}
	if err := s.cache.Set(ctx, dept, generation, entries); err != nil {
		s.logger.Warn("leaderboard cache write failed", zap.String("department", string(dept)), zap.Error(err))
	}
	return entries, nil
}

func aggregate(catalog pointsCatalog, requests []domain.PointRequest) []domain.LeaderboardEntry {
	byEmail := map[string]*domain.LeaderboardEntry{}
	var order []string

	for _, req := range requests {
		base := basePoints(catalog, req)
		entry, ok := byEmail[req.UserEmail]
		if !ok {
			entry = &domain.LeaderboardEntry{Name: req.UserName, Email: req.UserEmail}
			byEmail[req.UserEmail] = entry
			order = append(order, req.UserEmail)
		}
		entry.TotalPoints += base * req.Repetitions()

		name := taskName(req.Task)
		found := false
		for i := range entry.Tasks {
			if entry.Tasks[i].Description == name {
				entry.Tasks[i].Count++
				found = true
				break
			}
		}
		if !found {
			entry.Tasks = append(entry.Tasks, domain.TaskTally{Description: name, BasePoints: base, Count: 1})
		}
	}

	result := make([]domain.LeaderboardEntry, 0, len(order))
	for _, email := range order {
		if entry := byEmail[email]; entry.TotalPoints > 0 {
			result = append(result, *entry)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].TotalPoints != result[j].TotalPoints {
			return result[i].TotalPoints > result[j].TotalPoints
		}
		return result[i].Email < result[j].Email
	})
	return result
}
