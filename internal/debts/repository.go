package debts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/db"
)

// Repository persists supplier debts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const debtColumns = `d.id, d.supplier_id, s.name, d.receipt_id, d.amount, d.paid_amount, d.description, d.due_at, d.status, d.created_by, d.created_at, d.updated_at`

func scanDebt(row pgx.Row) (Debt, error) {
	var d Debt
	var createdBy *int64
	err := row.Scan(&d.ID, &d.SupplierID, &d.SupplierName, &d.ReceiptID, &d.Amount, &d.PaidAmount, &d.Description, &d.DueAt, &d.Status, &createdBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Debt{}, ErrNotFound
		}
		return Debt{}, err
	}
	if createdBy != nil {
		d.CreatedBy = *createdBy
	}
	return d, nil
}

// Create inserts a debt and returns it.
func (r *Repository) Create(ctx context.Context, input CreateInput) (Debt, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO supplier_debts (supplier_id, receipt_id, amount, paid_amount, description, due_at, status, created_by, created_at, updated_at)
VALUES ($1,$2,$3,0,$4,$5,'UNPAID',$6,NOW(),NOW()) RETURNING id`,
		input.SupplierID, input.ReceiptID, input.Amount, input.Description, input.DueAt, nullInt(input.ActorID)).Scan(&id)
	if err != nil {
		return Debt{}, err
	}
	return r.Get(ctx, id)
}

// Get loads one debt with its supplier name.
func (r *Repository) Get(ctx context.Context, id int64) (Debt, error) {
	return scanDebt(r.pool.QueryRow(ctx, `SELECT `+debtColumns+`
FROM supplier_debts d JOIN suppliers s ON s.id = d.supplier_id
WHERE d.id=$1`, id))
}

// List pages debts, optionally filtered by supplier and status.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Debt, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM supplier_debts d
WHERE ($1 = 0 OR d.supplier_id = $1) AND ($2 = '' OR d.status = $2)`,
		filter.SupplierID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+debtColumns+`
FROM supplier_debts d JOIN suppliers s ON s.id = d.supplier_id
WHERE ($1 = 0 OR d.supplier_id = $1) AND ($2 = '' OR d.status = $2)
ORDER BY d.created_at DESC, d.id DESC
LIMIT $3 OFFSET $4`, filter.SupplierID, string(filter.Status), limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	debts := []Debt{}
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, 0, err
		}
		debts = append(debts, d)
	}
	return debts, total, rows.Err()
}

// Settle applies a payment inside a row lock so concurrent payments cannot
// overshoot the balance. Returns the updated debt and the applied amount.
func (r *Repository) Settle(ctx context.Context, id int64, amount float64) (Debt, float64, error) {
	var applied float64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var total, paid float64
		err := tx.QueryRow(ctx, `SELECT amount, paid_amount FROM supplier_debts WHERE id=$1 FOR UPDATE`, id).Scan(&total, &paid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		balance := total - paid
		if balance <= 0 {
			return ErrAlreadySettled
		}
		applied = amount
		if applied > balance {
			applied = balance
		}
		newPaid := paid + applied
		status := StatusPartial
		if newPaid >= total {
			status = StatusPaid
		}
		_, err = tx.Exec(ctx, `UPDATE supplier_debts SET paid_amount=$2, status=$3, updated_at=NOW() WHERE id=$1`,
			id, newPaid, string(status))
		return err
	})
	if err != nil {
		return Debt{}, 0, err
	}
	d, err := r.Get(ctx, id)
	return d, applied, err
}

// DeleteByReceipt removes all debts linked to one receipt. Used by receipt
// group deletion.
func (r *Repository) DeleteByReceipt(ctx context.Context, receiptID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM supplier_debts WHERE receipt_id=$1`, receiptID)
	return err
}

// Aging returns outstanding totals grouped by days overdue relative to asOf.
func (r *Repository) Aging(ctx context.Context, asOf time.Time) ([]Debt, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+debtColumns+`
FROM supplier_debts d JOIN suppliers s ON s.id = d.supplier_id
WHERE d.status <> 'PAID'
ORDER BY d.due_at NULLS LAST`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	debts := []Debt{}
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

// OutstandingTotal sums balances of unsettled debts, optionally per supplier.
func (r *Repository) OutstandingTotal(ctx context.Context, supplierID int64) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount - paid_amount), 0) FROM supplier_debts
WHERE status <> 'PAID' AND ($1 = 0 OR supplier_id = $1)`, supplierID).Scan(&total)
	return total, err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
