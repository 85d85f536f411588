package service

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/points-service/internal/auth"
	"github.com/spec-kit/points-service/internal/domain"
	"github.com/spec-kit/points-service/internal/events"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

func (h *harness) departmentsOf(t *testing.T, email string) []domain.Department {
	t.Helper()
	admin, err := h.store.Admins().Get(context.Background(), email)
	require.NoError(t, err)
	return admin.Departments
}

func TestInitiateValidation(t *testing.T) {
	h := newHarness(t)
	admin := h.admin(t, "a@bestis.ro", "HR")
	secretary := h.secretary(t, "s@bestis.ro", domain.DepartmentHR)
	ctx := context.Background()

	_, err := h.transfers.Initiate(ctx, admin, "b@gmail.com", "HR")
	requireCode(t, err, apperrors.CodeValidationFailed)
	_, err = h.transfers.Initiate(ctx, admin, " A@Bestis.ro ", "HR")
	requireCode(t, err, apperrors.CodeValidationFailed)
	_, err = h.transfers.Initiate(ctx, admin, "b@bestis.ro", "IT")
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = h.transfers.Initiate(ctx, secretary, "b@bestis.ro", "HR")
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestInitiateBuildsAcceptLink(t *testing.T) {
	h := newHarness(t)
	admin := h.admin(t, "a@bestis.ro", "HR")

	inv, err := h.transfers.Initiate(context.Background(), admin, "B@bestis.ro", "HR")
	require.NoError(t, err)
	require.Equal(t, "b@bestis.ro", inv.Transfer.ToEmail)
	require.Equal(t, h.clock.Now().Add(24*time.Hour), inv.Transfer.ExpiresAt)
	require.NotEqual(t, inv.Token, inv.Transfer.TokenHash)
	require.Equal(t, "https://points.bestis.ro/accept-transfer?id="+inv.Transfer.ID+"&token="+inv.Token, inv.AcceptURL)

	parsed, err := url.Parse(inv.AcceptURL)
	require.NoError(t, err)
	require.Equal(t, inv.Token, parsed.Query().Get("token"))
	require.False(t, strings.ContainsAny(inv.Token, "+/="))
}

// Scenario C.
func TestAcceptMovesDepartment(t *testing.T) {
	h := newHarness(t)
	a := h.admin(t, "a@bestis.ro", "HR", "PR")
	inv, err := h.transfers.Initiate(context.Background(), a, "b@bestis.ro", "HR")
	require.NoError(t, err)

	h.clock.Advance(23 * time.Hour)
	b := h.session(t, "b@bestis.ro")
	accepted, err := h.transfers.Accept(context.Background(), b, inv.Transfer.ID, inv.Token)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)

	require.ElementsMatch(t, []domain.Department{domain.DepartmentHR}, h.departmentsOf(t, "b@bestis.ro"))
	require.ElementsMatch(t, []domain.Department{domain.DepartmentPR}, h.departmentsOf(t, "a@bestis.ro"))
	require.True(t, h.session(t, "b@bestis.ro").Role.CanManageDepartment(domain.DepartmentHR))
	require.Contains(t, h.published, events.EventTransferAccepted)
}

func TestAcceptKeepsEmptyAdminRecord(t *testing.T) {
	h := newHarness(t)
	a := h.admin(t, "a@bestis.ro", "HR")
	inv, err := h.transfers.Initiate(context.Background(), a, "b@bestis.ro", "HR")
	require.NoError(t, err)

	_, err = h.transfers.Accept(context.Background(), h.session(t, "b@bestis.ro"), inv.Transfer.ID, inv.Token)
	require.NoError(t, err)

	require.Empty(t, h.departmentsOf(t, "a@bestis.ro"))
	demoted := h.session(t, "a@bestis.ro")
	require.True(t, demoted.Role.IsAdmin())
	require.False(t, demoted.Role.CanManageDepartment(domain.DepartmentHR))
}

func TestAcceptIsIdempotent(t *testing.T) {
	h := newHarness(t)
	a := h.admin(t, "a@bestis.ro", "HR")
	inv, err := h.transfers.Initiate(context.Background(), a, "b@bestis.ro", "HR")
	require.NoError(t, err)
	b := h.session(t, "b@bestis.ro")

	first, err := h.transfers.Accept(context.Background(), b, inv.Transfer.ID, inv.Token)
	require.NoError(t, err)
	second, err := h.transfers.Accept(context.Background(), b, inv.Transfer.ID, inv.Token)
	require.NoError(t, err)
	require.Equal(t, first.AcceptedAt, second.AcceptedAt)

	require.Equal(t, []domain.Department{domain.DepartmentHR}, h.departmentsOf(t, "b@bestis.ro"))

	accepted := 0
	for _, e := range h.published {
		if e == events.EventTransferAccepted {
			accepted++
		}
	}
	require.Equal(t, 1, accepted)
}

func TestConcurrentAcceptGrantsOnce(t *testing.T) {
	h := newHarness(t)
	a := h.admin(t, "a@bestis.ro", "HR")
	inv, err := h.transfers.Initiate(context.Background(), a, "b@bestis.ro", "HR")
	require.NoError(t, err)
	b := h.session(t, "b@bestis.ro")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.transfers.Accept(context.Background(), b, inv.Transfer.ID, inv.Token)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, []domain.Department{domain.DepartmentHR}, h.departmentsOf(t, "b@bestis.ro"))
}

func TestAcceptRequiresRecipientAndToken(t *testing.T) {
	h := newHarness(t)
	a := h.admin(t, "a@bestis.ro", "HR")
	inv, err := h.transfers.Initiate(context.Background(), a, "b@bestis.ro", "HR")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = h.transfers.Accept(ctx, h.session(t, "c@bestis.ro"), inv.Transfer.ID, inv.Token)
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = h.transfers.Accept(ctx, h.session(t, "b@bestis.ro"), inv.Transfer.ID, "wrong")
	requireCode(t, err, apperrors.CodeTokenMismatch)
	_, err = h.transfers.Validate(ctx, "missing", inv.Token)
	requireCode(t, err, apperrors.CodeNotFound)

	require.Equal(t, []domain.Department{domain.DepartmentHR}, h.departmentsOf(t, "a@bestis.ro"))
}

// Scenario D.
func TestExpiredTransferIsFlippedOnRead(t *testing.T) {
	h := newHarness(t)
	a := h.admin(t, "a@bestis.ro", "HR")
	inv, err := h.transfers.Initiate(context.Background(), a, "b@bestis.ro", "HR")
	require.NoError(t, err)
	ctx := context.Background()

	h.clock.Advance(25 * time.Hour)
	_, err = h.transfers.Accept(ctx, h.session(t, "b@bestis.ro"), inv.Transfer.ID, inv.Token)
	requireCode(t, err, apperrors.CodeTransferExpired)

	stored, err := h.store.Transfers().GetByID(ctx, inv.Transfer.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStatusExpired, stored.Status)

	_, err = h.transfers.Validate(ctx, inv.Transfer.ID, inv.Token)
	requireCode(t, err, apperrors.CodeTransferExpired)

	require.Equal(t, []domain.Department{domain.DepartmentHR}, h.departmentsOf(t, "a@bestis.ro"))
	_, err = h.store.Admins().Get(ctx, "b@bestis.ro")
	require.Error(t, err)

	expired := 0
	for _, e := range h.published {
		if e == events.EventTransferExpired {
			expired++
		}
	}
	require.Equal(t, 1, expired)
}

func TestRejectTransfer(t *testing.T) {
	h := newHarness(t)
	a := h.admin(t, "a@bestis.ro", "HR")
	inv, err := h.transfers.Initiate(context.Background(), a, "b@bestis.ro", "HR")
	require.NoError(t, err)
	ctx := context.Background()
	b := h.session(t, "b@bestis.ro")

	_, err = h.transfers.Reject(ctx, a, inv.Transfer.ID, inv.Token)
	requireCode(t, err, apperrors.CodeForbidden)

	rejected, err := h.transfers.Reject(ctx, b, inv.Transfer.ID, inv.Token)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStatusRejected, rejected.Status)
	require.Equal(t, "b@bestis.ro", *rejected.RejectedBy)

	_, err = h.transfers.Accept(ctx, b, inv.Transfer.ID, inv.Token)
	requireCode(t, err, apperrors.CodeAlreadyResolved)
	_, err = h.transfers.Validate(ctx, inv.Transfer.ID, inv.Token)
	requireCode(t, err, apperrors.CodeAlreadyResolved)
}

func TestListIncomingSkipsExpired(t *testing.T) {
	h := newHarness(t)
	a := h.admin(t, "a@bestis.ro", "HR", "IT")
	ctx := context.Background()

	old, err := h.transfers.Initiate(ctx, a, "b@bestis.ro", "HR")
	require.NoError(t, err)
	h.clock.Advance(20 * time.Hour)
	fresh, err := h.transfers.Initiate(ctx, a, "b@bestis.ro", "IT")
	require.NoError(t, err)
	h.clock.Advance(5 * time.Hour)

	incoming, err := h.transfers.ListIncoming(ctx, h.session(t, "b@bestis.ro"))
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	require.Equal(t, fresh.Transfer.ID, incoming[0].ID)

	stored, err := h.store.Transfers().GetByID(ctx, old.Transfer.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStatusExpired, stored.Status)

	outgoing, err := h.transfers.ListOutgoing(ctx, h.session(t, "a@bestis.ro"))
	require.NoError(t, err)
	require.Len(t, outgoing, 1)

	_, err = h.transfers.ListOutgoing(ctx, h.session(t, "b@bestis.ro"))
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestTransferToSecretaryIsRejected(t *testing.T) {
	h := newHarness(t)
	a := h.admin(t, "a@bestis.ro", "HR")
	h.secretary(t, "s@bestis.ro", domain.DepartmentIT)
	ctx := context.Background()

	_, err := h.transfers.Initiate(ctx, a, "s@bestis.ro", "HR")
	requireCode(t, err, apperrors.CodeConflict)

	inv, err := h.transfers.Initiate(ctx, a, "b@bestis.ro", "HR")
	require.NoError(t, err)
	h.secretary(t, "b@bestis.ro", domain.DepartmentPR)

	_, err = h.transfers.Accept(ctx, h.session(t, "b@bestis.ro"), inv.Transfer.ID, inv.Token)
	requireCode(t, err, apperrors.CodeConflict)

	_, err = h.store.Admins().Get(ctx, "b@bestis.ro")
	require.Error(t, err)
	require.Equal(t, []domain.Department{domain.DepartmentHR}, h.departmentsOf(t, "a@bestis.ro"))
	stored, err := h.store.Transfers().GetByID(ctx, inv.Transfer.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStatusPending, stored.Status)
}

func TestSecondPendingLinkForDepartmentIsRejected(t *testing.T) {
	h := newHarness(t)
	a := h.admin(t, "a@bestis.ro", "HR", "IT")
	ctx := context.Background()

	_, err := h.transfers.Initiate(ctx, a, "b@bestis.ro", "HR")
	require.NoError(t, err)
	_, err = h.transfers.Initiate(ctx, a, "c@bestis.ro", "HR")
	requireCode(t, err, apperrors.CodeConflict)
	_, err = h.transfers.Initiate(ctx, a, "c@bestis.ro", "IT")
	require.NoError(t, err)

	h.clock.Advance(25 * time.Hour)
	_, err = h.transfers.Initiate(ctx, a, "c@bestis.ro", "HR")
	require.NoError(t, err)
}

// Two links for the same department can coexist when created before the sender lost it;
// only the first acceptance may move the department.
func TestAcceptRequiresSenderToHoldDepartment(t *testing.T) {
	h := newHarness(t)
	a := h.admin(t, "a@bestis.ro", "HR")
	ctx := context.Background()

	first, err := h.transfers.Initiate(ctx, a, "b@bestis.ro", "HR")
	require.NoError(t, err)

	token, err := auth.NewTransferToken()
	require.NoError(t, err)
	hash, err := auth.HashToken(token, bcrypt.MinCost)
	require.NoError(t, err)
	second := &domain.AdminTransfer{
		FromEmail:  "a@bestis.ro",
		ToEmail:    "c@bestis.ro",
		Department: domain.DepartmentHR,
		TokenHash:  hash,
		Status:     domain.TransferStatusPending,
		CreatedAt:  h.clock.Now(),
		ExpiresAt:  h.clock.Now().Add(24 * time.Hour),
	}
	require.NoError(t, h.store.Transfers().Create(ctx, second))

	_, err = h.transfers.Accept(ctx, h.session(t, "b@bestis.ro"), first.Transfer.ID, first.Token)
	require.NoError(t, err)

	_, err = h.transfers.Accept(ctx, h.session(t, "c@bestis.ro"), second.ID, token)
	requireCode(t, err, apperrors.CodeInvalidState)

	require.Equal(t, []domain.Department{domain.DepartmentHR}, h.departmentsOf(t, "b@bestis.ro"))
	require.Empty(t, h.departmentsOf(t, "a@bestis.ro"))
	_, err = h.store.Admins().Get(ctx, "c@bestis.ro")
	require.Error(t, err)
	stored, err := h.store.Transfers().GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStatusPending, stored.Status)
}
