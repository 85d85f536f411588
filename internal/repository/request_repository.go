package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/points-service/internal/domain"
)

// PageCursor marks the last row of a page in (created_at, id) order.
type PageCursor struct {
	CreatedAt time.Time
	ID        string
}

// RequestFilter captures point request search parameters. A zero Limit means no limit.
type RequestFilter struct {
	UserID     *string
	Department *domain.Department
	Status     *domain.RequestStatus
	After      *PageCursor
	Limit      int
}

// RequestTransition is the set of fields written when a request leaves pending.
type RequestTransition struct {
	Status        domain.RequestStatus
	ReviewedBy    *string
	ReviewedAt    *time.Time
	AdminComment  *string
	AwardedPoints *int
}

// PointRequestRepository encapsulates point request persistence.
type PointRequestRepository interface {
	Create(ctx context.Context, req *domain.PointRequest) error
	GetByID(ctx context.Context, id string) (*domain.PointRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.PointRequest, error)
	// Transition applies update only while the request is in status from.
	Transition(ctx context.Context, id string, from domain.RequestStatus, update RequestTransition) error
}

type pointRequestRepository struct {
	pool *pgxpool.Pool
}

// NewPointRequestRepository instantiates repository.
func NewPointRequestRepository(pool *pgxpool.Pool) PointRequestRepository {
	return &pointRequestRepository{pool: pool}
}

const requestColumns = `id, user_id, user_email, user_name, department, task, event_date, proof_url,
               task_number, details, status, created_at, reviewed_by, reviewed_at, admin_comment, awarded_points`

func (r *pointRequestRepository) Create(ctx context.Context, req *domain.PointRequest) error {
	const query = `
        INSERT INTO point_requests (user_id, user_email, user_name, department, task, event_date, proof_url, task_number, details, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		req.UserID,
		req.UserEmail,
		req.UserName,
		string(req.Department),
		req.Task,
		req.EventDate,
		req.ProofURL,
		req.TaskNumber,
		req.Details,
		string(req.Status),
		req.CreatedAt,
	).Scan(&req.ID)
}

func (r *pointRequestRepository) GetByID(ctx context.Context, id string) (*domain.PointRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM point_requests WHERE id=$1`
	req, err := scanRequest(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return req, nil
}

func (r *pointRequestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.PointRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, string(*filter.Department))
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.After != nil {
		args = append(args, filter.After.CreatedAt, filter.After.ID)
		clauses = append(clauses, fmt.Sprintf("(created_at, id) < ($%d, $%d::uuid)", len(args)-1, len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM point_requests WHERE %s ORDER BY created_at DESC, id DESC`,
		requestColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PointRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *pointRequestRepository) Transition(ctx context.Context, id string, from domain.RequestStatus, update RequestTransition) error {
	const query = `
        UPDATE point_requests SET status=$1, reviewed_by=$2, reviewed_at=$3, admin_comment=$4, awarded_points=$5
        WHERE id=$6 AND status=$7`
	db := conn(ctx, r.pool)
	cmd, err := db.Exec(ctx, query,
		string(update.Status),
		update.ReviewedBy,
		update.ReviewedAt,
		update.AdminComment,
		update.AwardedPoints,
		id,
		string(from),
	)
	if err != nil {
		return mapNoRows(err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM point_requests WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStateConflict
}

func scanRequest(row pgx.Row) (*domain.PointRequest, error) {
	var (
		req        domain.PointRequest
		department string
		status     string
	)
	if err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.UserEmail,
		&req.UserName,
		&department,
		&req.Task,
		&req.EventDate,
		&req.ProofURL,
		&req.TaskNumber,
		&req.Details,
		&status,
		&req.CreatedAt,
		&req.ReviewedBy,
		&req.ReviewedAt,
		&req.AdminComment,
		&req.AwardedPoints,
	); err != nil {
		return nil, err
	}
	req.Department = domain.Department(department)
	req.Status = domain.RequestStatus(status)
	return &req, nil
}
