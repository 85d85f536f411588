package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/utils"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/repository"
)

func TestRequestTransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := New().Requests()

	req := &domain.PointRequest{UserID: "u1", Department: domain.DepartmentHR, Status: domain.RequestStatusPending, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, req))

	update := repository.RequestTransition{Status: domain.RequestStatusCancelled}
	require.NoError(t, repo.Transition(ctx, req.ID, domain.RequestStatusPending, update))
	require.ErrorIs(t, repo.Transition(ctx, req.ID, domain.RequestStatusPending, update), repository.ErrStateConflict)
	require.ErrorIs(t, repo.Transition(ctx, "missing", domain.RequestStatusPending, update), repository.ErrNotFound)
}

// Path params arrive as strings aliasing the request buffer; reusing that buffer must not
// move the stored record.
func TestTransitionKeepsRecordUnderItsOwnID(t *testing.T) {
	ctx := context.Background()
	store := New()

	req := &domain.PointRequest{UserID: "u1", Department: domain.DepartmentHR, Status: domain.RequestStatusPending, CreatedAt: time.Now()}
	require.NoError(t, store.Requests().Create(ctx, req))
	buf := []byte(req.ID)
	require.NoError(t, store.Requests().Transition(ctx, utils.UnsafeString(buf), domain.RequestStatusPending, repository.RequestTransition{Status: domain.RequestStatusApproved}))
	copy(buf, make([]byte, len(buf)))

	got, err := store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RequestStatusApproved, got.Status)
	all, err := store.Requests().List(ctx, repository.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	transfer := &domain.AdminTransfer{FromEmail: "a@bestis.ro", ToEmail: "b@bestis.ro", Department: domain.DepartmentHR, Status: domain.TransferStatusPending, CreatedAt: time.Now()}
	require.NoError(t, store.Transfers().Create(ctx, transfer))
	buf = []byte(transfer.ID)
	require.NoError(t, store.Transfers().Transition(ctx, utils.UnsafeString(buf), domain.TransferStatusPending, repository.TransferTransition{Status: domain.TransferStatusRejected}))
	copy(buf, make([]byte, len(buf)))

	gotTransfer, err := store.Transfers().GetByID(ctx, transfer.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStatusRejected, gotTransfer.Status)
}

func TestRequestListPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := New().Requests()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &domain.PointRequest{UserID: "u1", Status: domain.RequestStatusPending, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	first, err := repo.List(ctx, repository.RequestFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, base.Add(4*time.Minute), first[0].CreatedAt)

	last := first[len(first)-1]
	rest, err := repo.List(ctx, repository.RequestFilter{After: &repository.PageCursor{CreatedAt: last.CreatedAt, ID: last.ID}})
	require.NoError(t, err)
	require.Len(t, rest, 3)
	require.Equal(t, base.Add(2*time.Minute), rest[0].CreatedAt)
}

func TestAdminGrantIsIdempotentAndRevokeRequiresDepartment(t *testing.T) {
	ctx := context.Background()
	repo := New().Admins()
	now := time.Now()

	require.NoError(t, repo.GrantDepartment(ctx, "a@bestis.ro", domain.DepartmentHR, now))
	require.NoError(t, repo.GrantDepartment(ctx, "a@bestis.ro", domain.DepartmentHR, now))
	admin, err := repo.Get(ctx, "a@bestis.ro")
	require.NoError(t, err)
	require.Equal(t, []domain.Department{domain.DepartmentHR}, admin.Departments)

	require.NoError(t, repo.RevokeDepartment(ctx, "a@bestis.ro", domain.DepartmentHR, now))
	require.ErrorIs(t, repo.RevokeDepartment(ctx, "a@bestis.ro", domain.DepartmentHR, now), repository.ErrStateConflict)
	require.ErrorIs(t, repo.RevokeDepartment(ctx, "nobody@bestis.ro", domain.DepartmentHR, now), repository.ErrStateConflict)
	admin, err = repo.Get(ctx, "a@bestis.ro")
	require.NoError(t, err)
	require.Empty(t, admin.Departments)
}

func TestWithinTransactionRollsBackAdmins(t *testing.T) {
	ctx := context.Background()
	store := New()
	boom := errors.New("boom")

	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Admins().GrantDepartment(ctx, "b@bestis.ro", domain.DepartmentIT, time.Now()))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Admins().Get(ctx, "b@bestis.ro")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
