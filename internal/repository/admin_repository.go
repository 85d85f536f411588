package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/points-service/internal/domain"
)

// AdminRepository persists admin records keyed by email.
type AdminRepository interface {
	Get(ctx context.Context, email string) (*domain.Admin, error)
	List(ctx context.Context) ([]domain.Admin, error)
	// GrantDepartment adds dept to the admin, creating the record when missing.
	// Granting a department already held is a no-op.
	GrantDepartment(ctx context.Context, email string, dept domain.Department, at time.Time) error
	// RevokeDepartment removes dept from the admin; the record is kept even when empty.
	// It returns ErrStateConflict when the admin does not hold dept.
	RevokeDepartment(ctx context.Context, email string, dept domain.Department, at time.Time) error
}

type adminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository instantiates repository.
func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &adminRepository{pool: pool}
}

func (r *adminRepository) Get(ctx context.Context, email string) (*domain.Admin, error) {
	const query = `SELECT email, departments, created_at, updated_at FROM admins WHERE email=$1`
	var (
		admin domain.Admin
		depts []string
	)
	if err := conn(ctx, r.pool).QueryRow(ctx, query, email).Scan(&admin.Email, &depts, &admin.CreatedAt, &admin.UpdatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	admin.Departments = stringsToDepartments(depts)
	return &admin, nil
}

func (r *adminRepository) List(ctx context.Context) ([]domain.Admin, error) {
	const query = `SELECT email, departments, created_at, updated_at FROM admins ORDER BY email`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Admin
	for rows.Next() {
		var (
			admin domain.Admin
			depts []string
		)
		if err := rows.Scan(&admin.Email, &depts, &admin.CreatedAt, &admin.UpdatedAt); err != nil {
			return nil, err
		}
		admin.Departments = stringsToDepartments(depts)
		result = append(result, admin)
	}
	return result, rows.Err()
}

func (r *adminRepository) GrantDepartment(ctx context.Context, email string, dept domain.Department, at time.Time) error {
	const query = `
        INSERT INTO admins (email, departments, created_at, updated_at)
        VALUES ($1, ARRAY[$2::text], $3, $3)
        ON CONFLICT (email) DO UPDATE SET
            departments = CASE
                WHEN $2::text = ANY(admins.departments) THEN admins.departments
                ELSE array_append(admins.departments, $2::text)
            END,
            updated_at = $3`
	_, err := conn(ctx, r.pool).Exec(ctx, query, email, string(dept), at)
	return err
}

func (r *adminRepository) RevokeDepartment(ctx context.Context, email string, dept domain.Department, at time.Time) error {
	const query = `UPDATE admins SET departments = array_remove(departments, $2::text), updated_at=$3
                   WHERE email=$1 AND $2::text = ANY(departments)`
	tag, err := conn(ctx, r.pool).Exec(ctx, query, email, string(dept), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}
