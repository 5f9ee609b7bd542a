package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the reporting queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RevenueByDay sums posted invoices per day.
func (r *Repository) RevenueByDay(ctx context.Context, branchID int64, from, to time.Time) ([]RevenuePoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT date_trunc('day', sold_at) AS day, COALESCE(SUM(total),0), COUNT(*)
FROM sales_invoices
WHERE status = 'POSTED'
  AND ($1 = 0 OR branch_id = $1)
  AND sold_at >= $2 AND sold_at < $3
GROUP BY 1 ORDER BY 1`, branchID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	points := []RevenuePoint{}
	for rows.Next() {
		var p RevenuePoint
		if err := rows.Scan(&p.Day, &p.Revenue, &p.Orders); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// StockValuation values on-hand stock at cost per branch.
func (r *Repository) StockValuation(ctx context.Context, branchID int64) ([]ValuationRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT bs.branch_id, b.name, COALESCE(SUM(bs.qty),0), COALESCE(SUM(bs.qty * bs.cost_price),0)
FROM branch_stocks bs
JOIN branches b ON b.id = bs.branch_id
WHERE ($1 = 0 OR bs.branch_id = $1)
GROUP BY bs.branch_id, b.name
ORDER BY bs.branch_id`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ValuationRow{}
	for rows.Next() {
		var v ValuationRow
		if err := rows.Scan(&v.BranchID, &v.BranchName, &v.Units, &v.Value); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// TopPartsByMovement ranks parts by absolute ledger movement in a range.
func (r *Repository) TopPartsByMovement(ctx context.Context, branchID int64, from, to time.Time, limit int) ([]TopPart, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `SELECT t.part_id, p.name, p.sku, COALESCE(SUM(ABS(t.qty)),0) AS moved
FROM inventory_transactions t
JOIN parts p ON p.id = t.part_id
WHERE ($1 = 0 OR t.branch_id = $1)
  AND t.posted_at >= $2 AND t.posted_at < $3
GROUP BY t.part_id, p.name, p.sku
ORDER BY moved DESC
LIMIT $4`, branchID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TopPart{}
	for rows.Next() {
		var tp TopPart
		if err := rows.Scan(&tp.PartID, &tp.PartName, &tp.SKU, &tp.Moved); err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

// DebtOutstanding sums open supplier debt balances.
func (r *Repository) DebtOutstanding(ctx context.Context) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount - paid_amount), 0) FROM supplier_debts WHERE status <> 'PAID'`).Scan(&total)
	return total, err
}
