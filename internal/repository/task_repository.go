package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/points-service/internal/domain"
)

// TaskRepository persists the per-department task catalog.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.DepartmentTask) error
	Update(ctx context.Context, task *domain.DepartmentTask) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.DepartmentTask, error)
	// ListByDepartment returns tasks ordered by points descending, then description.
	ListByDepartment(ctx context.Context, dept domain.Department) ([]domain.DepartmentTask, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.DepartmentTask) error {
	const query = `
        INSERT INTO department_tasks (department, description, points, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		string(task.Department),
		task.Description,
		task.Points,
		task.CreatedAt,
	).Scan(&task.ID)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.DepartmentTask) error {
	const query = `UPDATE department_tasks SET description=$1, points=$2, updated_at=$3 WHERE id=$4`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, task.Description, task.Points, task.UpdatedAt, task.ID)
	if err != nil {
		return mapNoRows(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM department_tasks WHERE id=$1`, id)
	if err != nil {
		return mapNoRows(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.DepartmentTask, error) {
	const query = `SELECT id, department, description, points, created_at, updated_at FROM department_tasks WHERE id=$1`
	task, err := scanTask(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return task, nil
}

func (r *taskRepository) ListByDepartment(ctx context.Context, dept domain.Department) ([]domain.DepartmentTask, error) {
	const query = `
        SELECT id, department, description, points, created_at, updated_at
        FROM department_tasks WHERE department=$1
        ORDER BY points DESC, description ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, string(dept))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DepartmentTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}

func scanTask(row pgx.Row) (*domain.DepartmentTask, error) {
	var (
		task       domain.DepartmentTask
		department string
		updatedAt  *time.Time
	)
	if err := row.Scan(&task.ID, &department, &task.Description, &task.Points, &task.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	task.Department = domain.Department(department)
	task.UpdatedAt = updatedAt
	return &task, nil
}
