package receipts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/db"
)

// Repository persists receipts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository is the transaction-scoped surface the service works with.
// It embeds the inventory StockStore so stock postings share the receipt's
// transaction.
type TxRepository interface {
	inventory.StockStore

	NextReceiptSeq(ctx context.Context) (int64, error)
	InsertReceipt(ctx context.Context, rc Receipt) (int64, error)
	GetReceiptForUpdate(ctx context.Context, id int64) (Receipt, error)
	UpdateReceiptHeader(ctx context.Context, id int64, total float64, note string) error
	DeleteReceipt(ctx context.Context, id int64) error

	ListLines(ctx context.Context, receiptID int64) ([]Line, error)
	InsertLine(ctx context.Context, ln Line) (int64, error)
	UpdateLine(ctx context.Context, ln Line) error
	DeleteLine(ctx context.Context, id int64) error

	GetPricesForUpdate(ctx context.Context, branchID, partID int64) (retail, wholesale float64, err error)
	UpdatePrices(ctx context.Context, branchID, partID int64, cost, retail, wholesale *float64) error

	InsertDebt(ctx context.Context, supplierID, receiptID int64, amount float64, description string, dueAt time.Time, createdBy int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx runs the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetReceipt loads one receipt with its lines.
func (r *Repository) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	var rc Receipt
	err := r.pool.QueryRow(ctx, `SELECT id, code, supplier_id, branch_id, total, note, received_at, created_by, created_at, updated_at
FROM goods_receipts WHERE id=$1`, id).Scan(
		&rc.ID, &rc.Code, &rc.SupplierID, &rc.BranchID, &rc.Total, &rc.Note, &rc.ReceivedAt, &rc.CreatedBy, &rc.CreatedAt, &rc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, ErrNotFound
		}
		return Receipt{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT l.id, l.receipt_id, l.part_id, p.name, l.quantity, l.unit_price, l.total_price, l.note
FROM goods_receipt_lines l JOIN parts p ON p.id = l.part_id
WHERE l.receipt_id=$1 ORDER BY l.id`, id)
	if err != nil {
		return Receipt{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ID, &ln.ReceiptID, &ln.PartID, &ln.PartName, &ln.Quantity, &ln.UnitPrice, &ln.TotalPrice, &ln.Note); err != nil {
			return Receipt{}, err
		}
		rc.Lines = append(rc.Lines, ln)
	}
	return rc, rows.Err()
}

// ListReceipts lists receipt headers newest first.
func (r *Repository) ListReceipts(ctx context.Context, filter ListFilter) ([]Receipt, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	var total int
	countSQL := `SELECT count(*) FROM goods_receipts
WHERE ($1 = 0 OR branch_id = $1)
  AND ($2 = 0 OR supplier_id = $2)
  AND ($3 = '' OR code ILIKE '%' || $3 || '%')
  AND received_at BETWEEN COALESCE($4, '-infinity') AND COALESCE($5, 'infinity')`
	if err := r.pool.QueryRow(ctx, countSQL, filter.BranchID, filter.SupplierID, filter.Search, nullTime(filter.From), nullTime(filter.To)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, code, supplier_id, branch_id, total, note, received_at, created_by, created_at, updated_at
FROM goods_receipts
WHERE ($1 = 0 OR branch_id = $1)
  AND ($2 = 0 OR supplier_id = $2)
  AND ($3 = '' OR code ILIKE '%' || $3 || '%')
  AND received_at BETWEEN COALESCE($4, '-infinity') AND COALESCE($5, 'infinity')
ORDER BY received_at DESC, id DESC
LIMIT $6 OFFSET $7`, filter.BranchID, filter.SupplierID, filter.Search, nullTime(filter.From), nullTime(filter.To), limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	receipts := []Receipt{}
	for rows.Next() {
		var rc Receipt
		if err := rows.Scan(&rc.ID, &rc.Code, &rc.SupplierID, &rc.BranchID, &rc.Total, &rc.Note, &rc.ReceivedAt, &rc.CreatedBy, &rc.CreatedAt, &rc.UpdatedAt); err != nil {
			return nil, 0, err
		}
		receipts = append(receipts, rc)
	}
	return receipts, total, rows.Err()
}

func (r *txRepository) NextReceiptSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `SELECT nextval('goods_receipt_code_seq')`).Scan(&seq)
	return seq, err
}

func (r *txRepository) InsertReceipt(ctx context.Context, rc Receipt) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO goods_receipts (code, supplier_id, branch_id, total, note, received_at, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW()) RETURNING id`,
		rc.Code, rc.SupplierID, rc.BranchID, rc.Total, rc.Note, rc.ReceivedAt, nullInt(rc.CreatedBy)).Scan(&id)
	return id, err
}

func (r *txRepository) GetReceiptForUpdate(ctx context.Context, id int64) (Receipt, error) {
	var rc Receipt
	err := r.tx.QueryRow(ctx, `SELECT id, code, supplier_id, branch_id, total, note, received_at, created_by, created_at, updated_at
FROM goods_receipts WHERE id=$1 FOR UPDATE`, id).Scan(
		&rc.ID, &rc.Code, &rc.SupplierID, &rc.BranchID, &rc.Total, &rc.Note, &rc.ReceivedAt, &rc.CreatedBy, &rc.CreatedAt, &rc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, ErrNotFound
		}
		return Receipt{}, err
	}
	return rc, nil
}

func (r *txRepository) UpdateReceiptHeader(ctx context.Context, id int64, total float64, note string) error {
	_, err := r.tx.Exec(ctx, `UPDATE goods_receipts SET total=$2, note=$3, updated_at=NOW() WHERE id=$1`, id, total, note)
	return err
}

func (r *txRepository) DeleteReceipt(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM goods_receipts WHERE id=$1`, id)
	return err
}

func (r *txRepository) ListLines(ctx context.Context, receiptID int64) ([]Line, error) {
	rows, err := r.tx.Query(ctx, `SELECT l.id, l.receipt_id, l.part_id, p.name, l.quantity, l.unit_price, l.total_price, l.note
FROM goods_receipt_lines l JOIN parts p ON p.id = l.part_id
WHERE l.receipt_id=$1 ORDER BY l.id`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ID, &ln.ReceiptID, &ln.PartID, &ln.PartName, &ln.Quantity, &ln.UnitPrice, &ln.TotalPrice, &ln.Note); err != nil {
			return nil, err
		}
		lines = append(lines, ln)
	}
	return lines, rows.Err()
}

func (r *txRepository) InsertLine(ctx context.Context, ln Line) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO goods_receipt_lines (receipt_id, part_id, quantity, unit_price, total_price, note)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		ln.ReceiptID, ln.PartID, ln.Quantity, ln.UnitPrice, ln.TotalPrice, ln.Note).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateLine(ctx context.Context, ln Line) error {
	_, err := r.tx.Exec(ctx, `UPDATE goods_receipt_lines SET quantity=$2, unit_price=$3, total_price=$4, note=$5 WHERE id=$1`,
		ln.ID, ln.Quantity, ln.UnitPrice, ln.TotalPrice, ln.Note)
	return err
}

func (r *txRepository) DeleteLine(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM goods_receipt_lines WHERE id=$1`, id)
	return err
}

func (r *txRepository) GetPricesForUpdate(ctx context.Context, branchID, partID int64) (float64, float64, error) {
	var retail, wholesale float64
	err := r.tx.QueryRow(ctx, `SELECT retail_price, wholesale_price FROM branch_stocks WHERE branch_id=$1 AND part_id=$2 FOR UPDATE`,
		branchID, partID).Scan(&retail, &wholesale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return retail, wholesale, nil
}

func (r *txRepository) UpdatePrices(ctx context.Context, branchID, partID int64, cost, retail, wholesale *float64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO branch_stocks (branch_id, part_id, qty, cost_price, retail_price, wholesale_price, updated_at)
VALUES ($1,$2,0,COALESCE($3,0),COALESCE($4,0),COALESCE($5,0),NOW())
ON CONFLICT (branch_id, part_id) DO UPDATE SET
  cost_price = COALESCE($3, branch_stocks.cost_price),
  retail_price = COALESCE($4, branch_stocks.retail_price),
  wholesale_price = COALESCE($5, branch_stocks.wholesale_price),
  updated_at = NOW()`, branchID, partID, cost, retail, wholesale)
	return err
}

func (r *txRepository) InsertDebt(ctx context.Context, supplierID, receiptID int64, amount float64, description string, dueAt time.Time, createdBy int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO supplier_debts (supplier_id, receipt_id, amount, paid_amount, description, due_at, status, created_by, created_at, updated_at)
VALUES ($1,$2,$3,0,$4,$5,'UNPAID',$6,NOW(),NOW())`,
		supplierID, receiptID, amount, description, nullTime(dueAt), nullInt(createdBy))
	return err
}

// Stock operations delegate to the shared ledger tables; the queries mirror
// the inventory repository so receipt postings and manual adjustments see
// the same rows.

func (r *txRepository) GetStockForUpdate(ctx context.Context, branchID, partID int64) (int64, error) {
	var qty int64
	err := r.tx.QueryRow(ctx, `SELECT qty FROM branch_stocks WHERE branch_id=$1 AND part_id=$2 FOR UPDATE`, branchID, partID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, inventory.ErrStockNotFound
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

func (r *txRepository) InsertTransaction(ctx context.Context, t inventory.Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_transactions (tx_type, branch_id, part_id, receipt_id, qty, unit_price, total_price, ref_module, note, posted_at, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW()) RETURNING id`,
		string(t.Type), t.BranchID, t.PartID, t.ReceiptID, t.Qty, t.UnitPrice, t.TotalPrice, t.RefModule, t.Note, t.PostedAt, nullInt(t.CreatedBy)).Scan(&id)
	return id, err
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
