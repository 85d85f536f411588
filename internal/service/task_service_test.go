package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/points-service/internal/domain"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

func TestTaskCatalogValidation(t *testing.T) {
	h := newHarness(t)
	admin := h.admin(t, "admin@bestis.ro", "HR")
	ctx := context.Background()

	cases := []struct {
		name        string
		description string
		points      int
	}{
		{"zero points", "Organize event", 0},
		{"negative points", "Organize event", -5},
		{"too many points", "Organize event", 1001},
		{"short description", " ab ", 10},
		{"long description", strings.Repeat("x", 201), 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.tasks.Create(ctx, admin, TaskInput{Department: "HR", Description: tc.description, Points: tc.points})
			requireCode(t, err, apperrors.CodeValidationFailed)
		})
	}

	task, err := h.tasks.Create(ctx, admin, TaskInput{Department: "HR", Description: "  Organize event  ", Points: 1000})
	require.NoError(t, err)
	require.Equal(t, "Organize event", task.Description)
}

// Scenario B.
func TestSecretaryCannotEditTasks(t *testing.T) {
	h := newHarness(t)
	admin := h.admin(t, "admin@bestis.ro", "IT")
	existing := h.task(t, admin, "IT", "Fix laptop", 30)
	secretary := h.secretary(t, "sec@bestis.ro", domain.DepartmentIT)
	ctx := context.Background()

	_, err := h.tasks.Create(ctx, secretary, TaskInput{Department: "IT", Description: "Set up printer", Points: 10})
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = h.tasks.Update(ctx, secretary, existing.ID, "Fix laptop", 50)
	requireCode(t, err, apperrors.CodeForbidden)
	requireCode(t, h.tasks.Delete(ctx, secretary, existing.ID), apperrors.CodeForbidden)
}

func TestTaskEditingRequiresLiteralDepartment(t *testing.T) {
	h := newHarness(t)
	hrAdmin := h.admin(t, "hr@bestis.ro", "HR")
	generalAdmin := h.admin(t, "gen@bestis.ro", "GENERAL")
	ctx := context.Background()

	task := h.task(t, hrAdmin, "HR", "Organize event", 100)

	_, err := h.tasks.Create(ctx, generalAdmin, TaskInput{Department: "HR", Description: "Recruit", Points: 10})
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = h.tasks.Update(ctx, generalAdmin, task.ID, "Organize event", 10)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = h.tasks.Create(ctx, generalAdmin, TaskInput{Department: "GENERAL", Description: "Attend meeting", Points: 5})
	require.NoError(t, err)
}

func TestTaskUpdateDeleteAndList(t *testing.T) {
	h := newHarness(t)
	admin := h.admin(t, "admin@bestis.ro", "HR")
	ctx := context.Background()

	low := h.task(t, admin, "HR", "Write article", 20)
	high := h.task(t, admin, "HR", "Organize event", 100)

	listed, err := h.tasks.List(ctx, "HR")
	require.NoError(t, err)
	require.Equal(t, []string{high.ID, low.ID}, []string{listed[0].ID, listed[1].ID})

	updated, err := h.tasks.Update(ctx, admin, low.ID, "Write long article", 150)
	require.NoError(t, err)
	require.NotNil(t, updated.UpdatedAt)

	listed, err = h.tasks.List(ctx, "HR")
	require.NoError(t, err)
	require.Equal(t, "Write long article", listed[0].Description)

	require.NoError(t, h.tasks.Delete(ctx, admin, high.ID))
	requireCode(t, h.tasks.Delete(ctx, admin, high.ID), apperrors.CodeNotFound)
	_, err = h.tasks.Update(ctx, admin, "missing", "Anything", 5)
	requireCode(t, err, apperrors.CodeNotFound)

	empty, err := h.tasks.List(ctx, "PR")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	_, err = h.tasks.List(ctx, "SALES")
	requireCode(t, err, apperrors.CodeValidationFailed)
}
