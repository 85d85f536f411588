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

// TransferFilter selects transfers by party and status.
type TransferFilter struct {
	FromEmail *string
	ToEmail   *string
	Status    *domain.TransferStatus
}

// TransferTransition is the set of fields written when a transfer leaves pending.
type TransferTransition struct {
	Status     domain.TransferStatus
	AcceptedAt *time.Time
	RejectedAt *time.Time
	RejectedBy *string
}

// TransferRepository persists admin transfers.
type TransferRepository interface {
	Create(ctx context.Context, transfer *domain.AdminTransfer) error
	GetByID(ctx context.Context, id string) (*domain.AdminTransfer, error)
	List(ctx context.Context, filter TransferFilter) ([]domain.AdminTransfer, error)
	// Transition applies update only while the transfer is in status from.
	Transition(ctx context.Context, id string, from domain.TransferStatus, update TransferTransition) error
}

type transferRepository struct {
	pool *pgxpool.Pool
}

// NewTransferRepository instantiates repository.
func NewTransferRepository(pool *pgxpool.Pool) TransferRepository {
	return &transferRepository{pool: pool}
}

const transferColumns = `id, from_email, to_email, department, token_hash, status, created_at, expires_at,
               accepted_at, rejected_at, rejected_by`

func (r *transferRepository) Create(ctx context.Context, transfer *domain.AdminTransfer) error {
	const query = `
        INSERT INTO admin_transfers (from_email, to_email, department, token_hash, status, created_at, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		transfer.FromEmail,
		transfer.ToEmail,
		string(transfer.Department),
		transfer.TokenHash,
		string(transfer.Status),
		transfer.CreatedAt,
		transfer.ExpiresAt,
	).Scan(&transfer.ID)
}

func (r *transferRepository) GetByID(ctx context.Context, id string) (*domain.AdminTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM admin_transfers WHERE id=$1`
	transfer, err := scanTransfer(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return transfer, nil
}

func (r *transferRepository) List(ctx context.Context, filter TransferFilter) ([]domain.AdminTransfer, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.FromEmail != nil {
		args = append(args, *filter.FromEmail)
		clauses = append(clauses, fmt.Sprintf("from_email=$%d", len(args)))
	}
	if filter.ToEmail != nil {
		args = append(args, *filter.ToEmail)
		clauses = append(clauses, fmt.Sprintf("to_email=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM admin_transfers WHERE %s ORDER BY created_at DESC`,
		transferColumns, strings.Join(clauses, " AND "))
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AdminTransfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *transfer)
	}
	return result, rows.Err()
}

func (r *transferRepository) Transition(ctx context.Context, id string, from domain.TransferStatus, update TransferTransition) error {
	const query = `
        UPDATE admin_transfers SET status=$1, accepted_at=$2, rejected_at=$3, rejected_by=$4
        WHERE id=$5 AND status=$6`
	db := conn(ctx, r.pool)
	cmd, err := db.Exec(ctx, query,
		string(update.Status),
		update.AcceptedAt,
		update.RejectedAt,
		update.RejectedBy,
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
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM admin_transfers WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStateConflict
}

func scanTransfer(row pgx.Row) (*domain.AdminTransfer, error) {
	var (
		transfer   domain.AdminTransfer
		department string
		status     string
	)
	if err := row.Scan(
		&transfer.ID,
		&transfer.FromEmail,
		&transfer.ToEmail,
		&department,
		&transfer.TokenHash,
		&status,
		&transfer.CreatedAt,
		&transfer.ExpiresAt,
		&transfer.AcceptedAt,
		&transfer.RejectedAt,
		&transfer.RejectedBy,
	); err != nil {
		return nil, err
	}
	transfer.Department = domain.Department(department)
	transfer.Status = domain.TransferStatus(status)
	return &transfer, nil
}
