package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/points-service/internal/domain"
)

// SecretaryRepository persists secretary records keyed by email.
type SecretaryRepository interface {
	Create(ctx context.Context, secretary *domain.Secretary) error
	Get(ctx context.Context, email string) (*domain.Secretary, error)
	Delete(ctx context.Context, email string) error
	List(ctx context.Context) ([]domain.Secretary, error)
}

type secretaryRepository struct {
	pool *pgxpool.Pool
}

// NewSecretaryRepository instantiates repository.
func NewSecretaryRepository(pool *pgxpool.Pool) SecretaryRepository {
	return &secretaryRepository{pool: pool}
}

func (r *secretaryRepository) Create(ctx context.Context, secretary *domain.Secretary) error {
	const query = `
        INSERT INTO secretaries (email, departments, created_by, created_at)
        VALUES ($1,$2,$3,$4)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		secretary.Email,
		departmentsToStrings(secretary.Departments),
		secretary.CreatedBy,
		secretary.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *secretaryRepository) Get(ctx context.Context, email string) (*domain.Secretary, error) {
	const query = `SELECT email, departments, created_by, created_at FROM secretaries WHERE email=$1`
	var (
		secretary domain.Secretary
		depts     []string
	)
	if err := conn(ctx, r.pool).QueryRow(ctx, query, email).Scan(&secretary.Email, &depts, &secretary.CreatedBy, &secretary.CreatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	secretary.Departments = stringsToDepartments(depts)
	return &secretary, nil
}

func (r *secretaryRepository) Delete(ctx context.Context, email string) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM secretaries WHERE email=$1`, email)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *secretaryRepository) List(ctx context.Context) ([]domain.Secretary, error) {
	const query = `SELECT email, departments, created_by, created_at FROM secretaries ORDER BY created_at DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Secretary
	for rows.Next() {
		var (
			secretary domain.Secretary
			depts     []string
		)
		if err := rows.Scan(&secretary.Email, &depts, &secretary.CreatedBy, &secretary.CreatedAt); err != nil {
			return nil, err
		}
		secretary.Departments = stringsToDepartments(depts)
		result = append(result, secretary)
	}
	return result, rows.Err()
}
