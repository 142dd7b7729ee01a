package leasing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/havenstead/rentledger/internal/platform/db"
	"github.com/havenstead/rentledger/internal/shared"
)

// activeLeaseIndex is the partial unique index backing the one-active-lease
// invariant at the storage boundary.
const activeLeaseIndex = "uq_leases_one_active"

// Repository persists units and leases. Lease/unit pair mutations run inside
// WithTx so occupancy and lease state are never observed mid-transition.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	GetUnit(ctx context.Context, id int64) (*Unit, error)
	UpdateUnitStatus(ctx context.Context, id int64, status UnitStatus) error
	GetLease(ctx context.Context, id int64) (*Lease, error)
	ActiveLeaseForUnit(ctx context.Context, unitID int64) (*Lease, error)
	CreateLease(ctx context.Context, lease Lease) (int64, error)
	UpdateLeaseStatus(ctx context.Context, id int64, status LeaseStatus) error
	ListLeases(ctx context.Context, req ListLeasesRequest) ([]Lease, int, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
	inTx bool
}

// NewRepository builds the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// WithTx opens a serializable transaction. A repository already scoped to a
// transaction runs the closure in place, never a second top-level one.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool, inTx: true})
	})
}

const leaseColumns = `id, unit_id, tenant_id, lease_type, start_date, end_date,
	rent_amount, deposit_amount, rent_due_day, grace_days, late_fee_amount,
	status, terminated_at, created_at, updated_at`

func (r *repository) GetUnit(ctx context.Context, id int64) (*Unit, error) {
	var u Unit
	err := r.db.QueryRow(ctx, `
		SELECT id, property_id, label, bedrooms, bathrooms, area_sqm, rent_amount, status, created_at, updated_at
		FROM units WHERE id = $1`, id).Scan(
		&u.ID, &u.PropertyID, &u.Label, &u.Bedrooms, &u.Bathrooms, &u.AreaSqm, &u.RentAmount, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("unit %d: %w", id, shared.ErrNotFound)
		}
		return nil, classify(err)
	}
	return &u, nil
}

func (r *repository) UpdateUnitStatus(ctx context.Context, id int64, status UnitStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE units SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unit %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) GetLease(ctx context.Context, id int64) (*Lease, error) {
	row := r.db.QueryRow(ctx, `SELECT `+leaseColumns+` FROM leases WHERE id = $1`, id)
	lease, err := scanLease(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("lease %d: %w", id, shared.ErrNotFound)
		}
		return nil, classify(err)
	}
	return lease, nil
}

// ActiveLeaseForUnit returns nil without error when the unit has no active lease.
func (r *repository) ActiveLeaseForUnit(ctx context.Context, unitID int64) (*Lease, error) {
	row := r.db.QueryRow(ctx, `SELECT `+leaseColumns+` FROM leases WHERE unit_id = $1 AND status = 'ACTIVE'`, unitID)
	lease, err := scanLease(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return lease, nil
}

func (r *repository) CreateLease(ctx context.Context, lease Lease) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO leases (unit_id, tenant_id, lease_type, start_date, end_date,
			rent_amount, deposit_amount, rent_due_day, grace_days, late_fee_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		lease.UnitID, lease.TenantID, lease.LeaseType, lease.StartDate, lease.EndDate,
		lease.RentAmount, lease.DepositAmount, lease.RentDueDay, lease.GraceDays,
		lease.LateFeeAmount, lease.Status,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeLeaseIndex {
			return 0, fmt.Errorf("unit %d already has an active lease: %w", lease.UnitID, shared.ErrConflict)
		}
		return 0, classify(err)
	}
	return id, nil
}

func (r *repository) UpdateLeaseStatus(ctx context.Context, id int64, status LeaseStatus) error {
	var tag pgconn.CommandTag
	var err error
	if status == LeaseStatusTerminated {
		tag, err = r.db.Exec(ctx, `UPDATE leases SET status = $1, terminated_at = NOW(), updated_at = NOW() WHERE id = $2`, status, id)
	} else {
		tag, err = r.db.Exec(ctx, `UPDATE leases SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	}
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lease %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) ListLeases(ctx context.Context, req ListLeasesRequest) ([]Lease, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argPos := 1

	if req.UnitID != nil {
		where += fmt.Sprintf(" AND unit_id = $%d", argPos)
		args = append(args, *req.UnitID)
		argPos++
	}
	if req.TenantID != nil {
		where += fmt.Sprintf(" AND tenant_id = $%d", argPos)
		args = append(args, *req.TenantID)
		argPos++
	}
	if req.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *req.Status)
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM leases "+where, args...).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM leases %s ORDER BY start_date DESC, id DESC LIMIT $%d OFFSET $%d",
		leaseColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	var leases []Lease
	for rows.Next() {
		lease, err := scanLease(rows)
		if err != nil {
			return nil, 0, classify(err)
		}
		leases = append(leases, *lease)
	}
	return leases, total, rows.Err()
}

func scanLease(row pgx.Row) (*Lease, error) {
	var l Lease
	err := row.Scan(
		&l.ID, &l.UnitID, &l.TenantID, &l.LeaseType, &l.StartDate, &l.EndDate,
		&l.RentAmount, &l.DepositAmount, &l.RentDueDay, &l.GraceDays, &l.LateFeeAmount,
		&l.Status, &l.TerminatedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// classify maps driver faults onto the engine taxonomy. Serialization
// failures surface as conflicts: the losing transaction of two concurrent
// lease creations must fail hard, not retry silently.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001":
			return fmt.Errorf("serialization failure: %w", shared.ErrConflict)
		case "23505":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, shared.ErrConflict)
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%v: %w", err, shared.ErrStoreUnavailable)
	}
	return err
}
