// Package memory implements the repository interfaces in process memory. It backs the
// service tests and local runs without POSTGRES_DSN.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/repository"
)

// Store holds every collection behind a single lock.
type Store struct {
	mu          sync.Mutex
	txMu        sync.Mutex
	requests    map[string]domain.PointRequest
	tasks       map[string]domain.DepartmentTask
	admins      map[string]domain.Admin
	secretaries map[string]domain.Secretary
	transfers   map[string]domain.AdminTransfer
}

// New returns an empty store.
func New() *Store {
	return &Store{
		requests:    map[string]domain.PointRequest{},
		tasks:       map[string]domain.DepartmentTask{},
		admins:      map[string]domain.Admin{},
		secretaries: map[string]domain.Secretary{},
		transfers:   map[string]domain.AdminTransfer{},
	}
}

func (s *Store) Requests() repository.PointRequestRepository { return &requestRepo{s} }
func (s *Store) Tasks() repository.TaskRepository            { return &taskRepo{s} }
func (s *Store) Admins() repository.AdminRepository          { return &adminRepo{s} }
func (s *Store) Secretaries() repository.SecretaryRepository { return &secretaryRepo{s} }
func (s *Store) Transfers() repository.TransferRepository    { return &transferRepo{s} }

// WithinTransaction serializes transactions and restores the admin and transfer
// collections when fn fails.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	admins := maps.Clone(s.admins)
	transfers := maps.Clone(s.transfers)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.admins = admins
		s.transfers = transfers
		s.mu.Unlock()
		return err
	}
	return nil
}

type requestRepo struct{ s *Store }

func (r *requestRepo) Create(_ context.Context, req *domain.PointRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req.ID = uuid.NewString()
	r.s.requests[req.ID] = *req
	return nil
}

func (r *requestRepo) GetByID(_ context.Context, id string) (*domain.PointRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &req, nil
}

func (r *requestRepo) List(_ context.Context, filter repository.RequestFilter) ([]domain.PointRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []domain.PointRequest
	for _, req := range r.s.requests {
		if filter.UserID != nil && req.UserID != *filter.UserID {
			continue
		}
		if filter.Department != nil && req.Department != *filter.Department {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.After != nil && !pastCursor(req.CreatedAt, req.ID, *filter.After) {
			continue
		}
		result = append(result, req)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// pastCursor reports whether (createdAt, id) comes after the cursor in newest-first order.
func pastCursor(createdAt time.Time, id string, cursor repository.PageCursor) bool {
	if createdAt.Equal(cursor.CreatedAt) {
		return id < cursor.ID
	}
	return createdAt.Before(cursor.CreatedAt)
}

func (r *requestRepo) Transition(_ context.Context, id string, from domain.RequestStatus, update repository.RequestTransition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	if req.Status != from {
		return repository.ErrStateConflict
	}
	req.Status = update.Status
	req.ReviewedBy = update.ReviewedBy
	req.ReviewedAt = update.ReviewedAt
	req.AdminComment = update.AdminComment
	req.AwardedPoints = update.AwardedPoints
	r.s.requests[req.ID] = req
	return nil
}

type taskRepo struct{ s *Store }

func (r *taskRepo) Create(_ context.Context, task *domain.DepartmentTask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task.ID = uuid.NewString()
	r.s.tasks[task.ID] = *task
	return nil
}

func (r *taskRepo) Update(_ context.Context, task *domain.DepartmentTask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.tasks[task.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Description = task.Description
	existing.Points = task.Points
	existing.UpdatedAt = task.UpdatedAt
	r.s.tasks[task.ID] = existing
	return nil
}

func (r *taskRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.tasks, id)
	return nil
}

func (r *taskRepo) GetByID(_ context.Context, id string) (*domain.DepartmentTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task, ok := r.s.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &task, nil
}

func (r *taskRepo) ListByDepartment(_ context.Context, dept domain.Department) ([]domain.DepartmentTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.DepartmentTask
	for _, task := range r.s.tasks {
		if task.Department == dept {
			result = append(result, task)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Points != result[j].Points {
			return result[i].Points > result[j].Points
		}
		return result[i].Description < result[j].Description
	})
	return result, nil
}

type adminRepo struct{ s *Store }

func (r *adminRepo) Get(_ context.Context, email string) (*domain.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	admin, ok := r.s.admins[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	admin.Departments = slices.Clone(admin.Departments)
	return &admin, nil
}

func (r *adminRepo) List(_ context.Context) ([]domain.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.Admin, 0, len(r.s.admins))
	for _, admin := range r.s.admins {
		admin.Departments = slices.Clone(admin.Departments)
		result = append(result, admin)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}

func (r *adminRepo) GrantDepartment(_ context.Context, email string, dept domain.Department, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	admin, ok := r.s.admins[email]
	if !ok {
		admin = domain.Admin{Email: strings.Clone(email), CreatedAt: at}
	}
	if !slices.Contains(admin.Departments, dept) {
		admin.Departments = append(slices.Clone(admin.Departments), dept)
	}
	admin.UpdatedAt = at
	r.s.admins[admin.Email] = admin
	return nil
}

func (r *adminRepo) RevokeDepartment(_ context.Context, email string, dept domain.Department, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	admin, ok := r.s.admins[email]
	if !ok || !slices.Contains(admin.Departments, dept) {
		return repository.ErrStateConflict
	}
	admin.Departments = slices.DeleteFunc(slices.Clone(admin.Departments), func(d domain.Department) bool { return d == dept })
	admin.UpdatedAt = at
	r.s.admins[admin.Email] = admin
	return nil
}

type secretaryRepo struct{ s *Store }

func (r *secretaryRepo) Create(_ context.Context, secretary *domain.Secretary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.secretaries[secretary.Email]; ok {
		return repository.ErrDuplicate
	}
	stored := *secretary
	stored.Departments = slices.Clone(secretary.Departments)
	r.s.secretaries[secretary.Email] = stored
	return nil
}

func (r *secretaryRepo) Get(_ context.Context, email string) (*domain.Secretary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	secretary, ok := r.s.secretaries[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	secretary.Departments = slices.Clone(secretary.Departments)
	return &secretary, nil
}

func (r *secretaryRepo) Delete(_ context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.secretaries[email]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.secretaries, email)
	return nil
}

func (r *secretaryRepo) List(_ context.Context) ([]domain.Secretary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.Secretary, 0, len(r.s.secretaries))
	for _, secretary := range r.s.secretaries {
		secretary.Departments = slices.Clone(secretary.Departments)
		result = append(result, secretary)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return strings.Compare(result[i].Email, result[j].Email) < 0
	})
	return result, nil
}

type transferRepo struct{ s *Store }

func (r *transferRepo) Create(_ context.Context, transfer *domain.AdminTransfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	transfer.ID = uuid.NewString()
	r.s.transfers[transfer.ID] = *transfer
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*domain.AdminTransfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	transfer, ok := r.s.transfers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &transfer, nil
}

func (r *transferRepo) List(_ context.Context, filter repository.TransferFilter) ([]domain.AdminTransfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.AdminTransfer
	for _, transfer := range r.s.transfers {
		if filter.FromEmail != nil && transfer.FromEmail != *filter.FromEmail {
			continue
		}
		if filter.ToEmail != nil && transfer.ToEmail != *filter.ToEmail {
			continue
		}
		if filter.Status != nil && transfer.Status != *filter.Status {
			continue
		}
		result = append(result, transfer)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *transferRepo) Transition(_ context.Context, id string, from domain.TransferStatus, update repository.TransferTransition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	transfer, ok := r.s.transfers[id]
	if !ok {
		return repository.ErrNotFound
	}
	if transfer.Status != from {
		return repository.ErrStateConflict
	}
	transfer.Status = update.Status
	transfer.AcceptedAt = update.AcceptedAt
	transfer.RejectedAt = update.RejectedAt
	transfer.RejectedBy = update.RejectedBy
	r.s.transfers[transfer.ID] = transfer
	return nil
}
