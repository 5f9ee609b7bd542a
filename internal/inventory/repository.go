package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the ledger and by
// flows that adjust prices alongside a posting.
type TxRepository interface {
	StockStore
	SetPrices(ctx context.Context, branchID, partID int64, cost, retail, wholesale *float64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetStock returns the on-hand quantity without locking. Missing rows read
// as zero.
func (r *Repository) GetStock(ctx context.Context, branchID, partID int64) (int64, error) {
	var qty int64
	err := r.pool.QueryRow(ctx, `SELECT qty FROM branch_stocks WHERE branch_id=$1 AND part_id=$2`, branchID, partID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

// ListLowStock returns active parts whose on-hand quantity is at or under
// the threshold. Used by the nightly scan.
func (r *Repository) ListLowStock(ctx context.Context, threshold int64) ([]LowStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT bs.branch_id, bs.part_id, p.name, p.sku, bs.qty
FROM branch_stocks bs
JOIN parts p ON p.id = bs.part_id
WHERE p.is_active AND bs.qty <= $1
ORDER BY bs.qty ASC, bs.branch_id, bs.part_id`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LowStock{}
	for rows.Next() {
		var ls LowStock
		if err := rows.Scan(&ls.BranchID, &ls.PartID, &ls.PartName, &ls.SKU, &ls.Qty); err != nil {
			return nil, err
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}

// ListTransactions lists ledger entries for the history view.
func (r *Repository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT t.id, t.tx_type, t.branch_id, t.part_id, p.name, t.receipt_id, t.qty, t.unit_price, t.total_price, t.ref_module, t.note, t.posted_at, t.created_by, t.created_at
FROM inventory_transactions t
JOIN parts p ON p.id = t.part_id
WHERE ($1 = 0 OR t.branch_id = $1)
  AND ($2 = 0 OR t.part_id = $2)
  AND ($3 = '' OR t.tx_type = $3)
  AND ($4 = 0 OR t.receipt_id = $4)
  AND t.posted_at BETWEEN COALESCE($5, '-infinity') AND COALESCE($6, 'infinity')
ORDER BY t.posted_at DESC, t.id DESC
LIMIT $7`, filter.BranchID, filter.PartID, string(filter.Type), filter.ReceiptID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	txs := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Type, &t.BranchID, &t.PartID, &t.PartName, &t.ReceiptID, &t.Qty, &t.UnitPrice, &t.TotalPrice, &t.RefModule, &t.Note, &t.PostedAt, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *txRepository) GetStockForUpdate(ctx context.Context, branchID, partID int64) (int64, error) {
	var qty int64
	err := r.tx.QueryRow(ctx, `SELECT qty FROM branch_stocks WHERE branch_id=$1 AND part_id=$2 FOR UPDATE`, branchID, partID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrStockNotFound
		}
		return 0, err
	}
	return qty, nil
}

func (r *txRepository) SetStockQty(ctx context.Context, branchID, partID, qty int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO branch_stocks (branch_id, part_id, qty, updated_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (branch_id, part_id) DO UPDATE SET qty=EXCLUDED.qty, updated_at=NOW()`, branchID, partID, qty)
	return err
}

func (r *txRepository) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_transactions (tx_type, branch_id, part_id, receipt_id, qty, unit_price, total_price, ref_module, note, posted_at, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW()) RETURNING id`,
		string(t.Type), t.BranchID, t.PartID, t.ReceiptID, t.Qty, t.UnitPrice, t.TotalPrice, t.RefModule, t.Note, t.PostedAt, nullInt(t.CreatedBy)).Scan(&id)
	return id, err
}

func (r *txRepository) SetPrices(ctx context.Context, branchID, partID int64, cost, retail, wholesale *float64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO branch_stocks (branch_id, part_id, qty, cost_price, retail_price, wholesale_price, updated_at)
VALUES ($1,$2,0,COALESCE($3,0),COALESCE($4,0),COALESCE($5,0),NOW())
ON CONFLICT (branch_id, part_id) DO UPDATE SET
  cost_price = COALESCE($3, branch_stocks.cost_price),
  retail_price = COALESCE($4, branch_stocks.retail_price),
  wholesale_price = COALESCE($5, branch_stocks.wholesale_price),
  updated_at = NOW()`, branchID, partID, cost, retail, wholesale)
	return err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
