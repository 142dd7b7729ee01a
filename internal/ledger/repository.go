package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/havenstead/rentledger/internal/shared"
)

// Repository persists the append-only payment ledger. Rows are inserted and
// have their status advanced; nothing here deletes.
type Repository interface {
	Insert(ctx context.Context, p Payment) (int64, error)
	Get(ctx context.Context, id int64) (*Payment, error)
	ListByLease(ctx context.Context, leaseID int64, limit, offset int) ([]Payment, int, error)
	SumCompleted(ctx context.Context, leaseID int64, through time.Time) (float64, error)
	// UpdateStatus performs a compare-and-swap on the current status and
	// reports whether the row was won. A lost swap means another actor moved
	// the payment first.
	UpdateStatus(ctx context.Context, id int64, from, to PaymentStatus, transactionRef *string) (bool, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]Payment, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed payment repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const paymentColumns = `id, number, lease_id, tenant_id, amount, late_fee,
	payment_date, due_date, method, status, transaction_ref, notes, created_at, updated_at`

func (r *repository) Insert(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payments (number, lease_id, tenant_id, amount, late_fee,
			payment_date, due_date, method, status, transaction_ref, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		p.Number, p.LeaseID, p.TenantID, p.Amount, p.LateFee,
		p.PaymentDate, p.DueDate, p.Method, p.Status, p.TransactionRef, p.Notes,
	).Scan(&id)
	if err != nil {
		return 0, classify(err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %d: %w", id, shared.ErrNotFound)
		}
		return nil, classify(err)
	}
	return p, nil
}

func (r *repository) ListByLease(ctx context.Context, leaseID int64, limit, offset int) ([]Payment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE lease_id = $1`, leaseID).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE lease_id = $1
		ORDER BY due_date DESC, id DESC
		LIMIT $2 OFFSET $3`, leaseID, limit, offset)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, classify(err)
		}
		payments = append(payments, *p)
	}
	return payments, total, rows.Err()
}

func (r *repository) SumCompleted(ctx context.Context, leaseID int64, through time.Time) (float64, error) {
	var sum float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount + COALESCE(late_fee, 0)), 0)
		FROM payments
		WHERE lease_id = $1 AND status = 'COMPLETED' AND due_date <= $2`,
		leaseID, through).Scan(&sum)
	if err != nil {
		return 0, classify(err)
	}
	return sum, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to PaymentStatus, transactionRef *string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments
		SET status = $1, transaction_ref = COALESCE($2, transaction_ref), updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		to, transactionRef, id, from)
	if err != nil {
		return false, classify(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`, olderThan, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, classify(err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.Number, &p.LeaseID, &p.TenantID, &p.Amount, &p.LateFee,
		&p.PaymentDate, &p.DueDate, &p.Method, &p.Status, &p.TransactionRef,
		&p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, shared.ErrConflict)
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%v: %w", err, shared.ErrStoreUnavailable)
	}
	return err
}
