package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/db"
)

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository is the transaction-scoped surface for invoice posting.
type TxRepository interface {
	inventory.StockStore

	NextInvoiceSeq(ctx context.Context) (int64, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertLine(ctx context.Context, ln Line) (int64, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	ListLines(ctx context.Context, invoiceID int64) ([]Line, error)
	MarkVoid(ctx context.Context, id int64) error
	GetTierPrice(ctx context.Context, branchID, partID int64, tier PriceTier) (float64, error)
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

// GetInvoice loads one invoice with lines.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx, `SELECT id, code, branch_id, customer_name, customer_phone, total, status, note, sold_at, created_by, created_at, voided_at
FROM sales_invoices WHERE id=$1`, id).Scan(
		&inv.ID, &inv.Code, &inv.BranchID, &inv.CustomerName, &inv.CustomerPhone, &inv.Total, &inv.Status, &inv.Note, &inv.SoldAt, &inv.CreatedBy, &inv.CreatedAt, &inv.VoidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT l.id, l.invoice_id, l.part_id, p.name, l.quantity, l.unit_price, l.total_price, l.tier
FROM sales_invoice_lines l JOIN parts p ON p.id = l.part_id
WHERE l.invoice_id=$1 ORDER BY l.id`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ID, &ln.InvoiceID, &ln.PartID, &ln.PartName, &ln.Quantity, &ln.UnitPrice, &ln.TotalPrice, &ln.Tier); err != nil {
			return Invoice{}, err
		}
		inv.Lines = append(inv.Lines, ln)
	}
	return inv, rows.Err()
}

// ListInvoices pages invoice headers newest first.
func (r *Repository) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM sales_invoices
WHERE ($1 = 0 OR branch_id = $1) AND ($2 = '' OR status = $2)
  AND sold_at BETWEEN COALESCE($3, '-infinity') AND COALESCE($4, 'infinity')`,
		filter.BranchID, string(filter.Status), nullTime(filter.From), nullTime(filter.To)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, code, branch_id, customer_name, customer_phone, total, status, note, sold_at, created_by, created_at, voided_at
FROM sales_invoices
WHERE ($1 = 0 OR branch_id = $1) AND ($2 = '' OR status = $2)
  AND sold_at BETWEEN COALESCE($3, '-infinity') AND COALESCE($4, 'infinity')
ORDER BY sold_at DESC, id DESC
LIMIT $5 OFFSET $6`, filter.BranchID, string(filter.Status), nullTime(filter.From), nullTime(filter.To), limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	invoices := []Invoice{}
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Code, &inv.BranchID, &inv.CustomerName, &inv.CustomerPhone, &inv.Total, &inv.Status, &inv.Note, &inv.SoldAt, &inv.CreatedBy, &inv.CreatedAt, &inv.VoidedAt); err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (r *txRepository) NextInvoiceSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `SELECT nextval('sales_invoice_code_seq')`).Scan(&seq)
	return seq, err
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales_invoices (code, branch_id, customer_name, customer_phone, total, status, note, sold_at, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW()) RETURNING id`,
		inv.Code, inv.BranchID, inv.CustomerName, inv.CustomerPhone, inv.Total, string(inv.Status), inv.Note, inv.SoldAt, nullInt(inv.CreatedBy)).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLine(ctx context.Context, ln Line) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales_invoice_lines (invoice_id, part_id, quantity, unit_price, total_price, tier)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		ln.InvoiceID, ln.PartID, ln.Quantity, ln.UnitPrice, ln.TotalPrice, string(ln.Tier)).Scan(&id)
	return id, err
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := r.tx.QueryRow(ctx, `SELECT id, code, branch_id, customer_name, customer_phone, total, status, note, sold_at, created_by, created_at, voided_at
FROM sales_invoices WHERE id=$1 FOR UPDATE`, id).Scan(
		&inv.ID, &inv.Code, &inv.BranchID, &inv.CustomerName, &inv.CustomerPhone, &inv.Total, &inv.Status, &inv.Note, &inv.SoldAt, &inv.CreatedBy, &inv.CreatedAt, &inv.VoidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

func (r *txRepository) ListLines(ctx context.Context, invoiceID int64) ([]Line, error) {
	rows, err := r.tx.Query(ctx, `SELECT l.id, l.invoice_id, l.part_id, p.name, l.quantity, l.unit_price, l.total_price, l.tier
FROM sales_invoice_lines l JOIN parts p ON p.id = l.part_id
WHERE l.invoice_id=$1 ORDER BY l.id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ID, &ln.InvoiceID, &ln.PartID, &ln.PartName, &ln.Quantity, &ln.UnitPrice, &ln.TotalPrice, &ln.Tier); err != nil {
			return nil, err
		}
		lines = append(lines, ln)
	}
	return lines, rows.Err()
}

func (r *txRepository) MarkVoid(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE sales_invoices SET status='VOID', voided_at=NOW() WHERE id=$1`, id)
	return err
}

// GetTierPrice reads the stored branch price for the tier.
func (r *txRepository) GetTierPrice(ctx context.Context, branchID, partID int64, tier PriceTier) (float64, error) {
	column := "retail_price"
	if tier == TierWholesale {
		column = "wholesale_price"
	}
	var price float64
	err := r.tx.QueryRow(ctx, `SELECT `+column+` FROM branch_stocks WHERE branch_id=$1 AND part_id=$2`, branchID, partID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return price, err
}

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
