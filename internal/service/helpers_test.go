package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/events"
	"github.com/spec-kit/points-service/internal/repository/memory"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

const testDomain = "@bestis.ro"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type cachedBoard struct {
	generation int64
	entries    []domain.LeaderboardEntry
}

type countingCache struct {
	mu          sync.Mutex
	boards      map[domain.Department]cachedBoard
	invalidated map[domain.Department]int
}

func newCountingCache() *countingCache {
	return &countingCache{boards: map[domain.Department]cachedBoard{}, invalidated: map[domain.Department]int{}}
}

func (c *countingCache) Get(_ context.Context, dept domain.Department) ([]domain.LeaderboardEntry, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	generation := int64(c.invalidated[dept])
	board, ok := c.boards[dept]
	if !ok || board.generation != generation {
		return nil, generation, false, nil
	}
	return board.entries, generation, true, nil
}

func (c *countingCache) Set(_ context.Context, dept domain.Department, generation int64, entries []domain.LeaderboardEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards[dept] = cachedBoard{generation: generation, entries: entries}
	return nil
}

func (c *countingCache) Invalidate(_ context.Context, dept domain.Department) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated[dept]++
	return nil
}

type harness struct {
	store       *memory.Store
	clock       *fakeClock
	cache       *countingCache
	published   []events.EventType
	roles       *RoleService
	requests    *RequestService
	tasks       *TaskService
	transfers   *TransferService
	leaderboard *LeaderboardService
	secretaries *SecretaryService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: memory.New(),
		clock: &fakeClock{now: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)},
		cache: newCountingCache(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			h.published = append(h.published, e.Type)
			return nil
		})
	}
	logger := zap.NewNop()

	h.roles = NewRoleService(RoleDependencies{AdminRepo: h.store.Admins(), SecretaryRepo: h.store.Secretaries()})
	h.requests = NewRequestService(RequestDependencies{
		RequestRepo: h.store.Requests(),
		TaskRepo:    h.store.Tasks(),
		Cache:       h.cache,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Clock:       h.clock.Now,
		PageSize:    15,
	})
	h.tasks = NewTaskService(TaskDependencies{
		TaskRepo:   h.store.Tasks(),
		Cache:      h.cache,
		Dispatcher: dispatcher,
		Logger:     logger,
		Clock:      h.clock.Now,
	})
	h.transfers = NewTransferService(TransferDependencies{
		TransferRepo:  h.store.Transfers(),
		AdminRepo:     h.store.Admins(),
		SecretaryRepo: h.store.Secretaries(),
		Transactor:    h.store,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Clock:         h.clock.Now,
		Expiry:        24 * time.Hour,
		EmailDomain:   testDomain,
		BaseURL:       "https://points.bestis.ro",
		BcryptCost:    bcrypt.MinCost,
	})
	h.leaderboard = NewLeaderboardService(LeaderboardDependencies{
		RequestRepo: h.store.Requests(),
		TaskRepo:    h.store.Tasks(),
		Cache:       h.cache,
		Logger:      logger,
	})
	h.secretaries = NewSecretaryService(SecretaryDependencies{
		SecretaryRepo: h.store.Secretaries(),
		AdminRepo:     h.store.Admins(),
		Dispatcher:    dispatcher,
		Logger:        logger,
		Clock:         h.clock.Now,
		EmailDomain:   testDomain,
	})
	return h
}

// session resolves the current role of email the way the auth middleware does.
func (h *harness) session(t *testing.T, email string) *domain.Session {
	t.Helper()
	role, err := h.roles.Resolve(context.Background(), email)
	require.NoError(t, err)
	return &domain.Session{UserID: "uid-" + email, Email: email, Name: email, Role: role}
}

func (h *harness) admin(t *testing.T, email string, depts ...string) *domain.Session {
	t.Helper()
	_, err := BootstrapAdmin(context.Background(), h.store.Admins(), email, depts, testDomain, h.clock.Now())
	require.NoError(t, err)
	return h.session(t, email)
}

func (h *harness) secretary(t *testing.T, email string, depts ...domain.Department) *domain.Session {
	t.Helper()
	require.NoError(t, h.store.Secretaries().Create(context.Background(), &domain.Secretary{
		Email:       email,
		Departments: depts,
		CreatedBy:   "seed",
		CreatedAt:   h.clock.Now(),
	}))
	return h.session(t, email)
}

func (h *harness) task(t *testing.T, admin *domain.Session, dept, description string, points int) *domain.DepartmentTask {
	t.Helper()
	task, err := h.tasks.Create(context.Background(), admin, TaskInput{Department: dept, Description: description, Points: points})
	require.NoError(t, err)
	return task
}

func (h *harness) submit(t *testing.T, member *domain.Session, dept, task, taskNumber string) *domain.PointRequest {
	t.Helper()
	req, err := h.requests.Submit(context.Background(), member, RequestSubmitInput{Department: dept, Task: task, TaskNumber: taskNumber})
	require.NoError(t, err)
	h.clock.Advance(time.Second)
	return req
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}
