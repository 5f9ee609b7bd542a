package workorders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/platform/db"
)

// Repository persists work orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository is the transaction-scoped surface for status changes.
type TxRepository interface {
	inventory.StockStore

	NextOrderSeq(ctx context.Context) (int64, error)
	InsertOrder(ctx context.Context, wo WorkOrder) (int64, error)
	GetOrderForUpdate(ctx context.Context, id int64) (WorkOrder, error)
	SetStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error
	InsertItem(ctx context.Context, it Item) (int64, error)
	ListItems(ctx context.Context, orderID int64) ([]Item, error)
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

const orderColumns = `id, code, branch_id, customer_name, customer_phone, vehicle_plate, vehicle_model, status, labor_fee, parts_total, note, created_by, created_at, updated_at, completed_at`

func scanOrder(row pgx.Row) (WorkOrder, error) {
	var wo WorkOrder
	err := row.Scan(&wo.ID, &wo.Code, &wo.BranchID, &wo.CustomerName, &wo.CustomerPhone, &wo.VehiclePlate, &wo.VehicleModel, &wo.Status, &wo.LaborFee, &wo.PartsTotal, &wo.Note, &wo.CreatedBy, &wo.CreatedAt, &wo.UpdatedAt, &wo.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return WorkOrder{}, ErrNotFound
	}
	return wo, err
}

// GetOrder loads one order with items.
func (r *Repository) GetOrder(ctx context.Context, id int64) (WorkOrder, error) {
	wo, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM work_orders WHERE id=$1`, id))
	if err != nil {
		return WorkOrder{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.order_id, i.part_id, p.name, i.quantity, i.unit_price, i.total_price
FROM work_order_items i JOIN parts p ON p.id = i.part_id
WHERE i.order_id=$1 ORDER BY i.id`, id)
	if err != nil {
		return WorkOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.PartID, &it.PartName, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return WorkOrder{}, err
		}
		wo.Items = append(wo.Items, it)
	}
	return wo, rows.Err()
}

// ListOrders pages work orders newest first.
func (r *Repository) ListOrders(ctx context.Context, filter ListFilter) ([]WorkOrder, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM work_orders
WHERE ($1 = 0 OR branch_id = $1) AND ($2 = '' OR status = $2)
  AND ($3 = '' OR code ILIKE '%' || $3 || '%' OR vehicle_plate ILIKE '%' || $3 || '%')`,
		filter.BranchID, string(filter.Status), filter.Search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM work_orders
WHERE ($1 = 0 OR branch_id = $1) AND ($2 = '' OR status = $2)
  AND ($3 = '' OR code ILIKE '%' || $3 || '%' OR vehicle_plate ILIKE '%' || $3 || '%')
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5`, filter.BranchID, string(filter.Status), filter.Search, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	orders := []WorkOrder{}
	for rows.Next() {
		wo, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, wo)
	}
	return orders, total, rows.Err()
}

func (r *txRepository) NextOrderSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `SELECT nextval('work_order_code_seq')`).Scan(&seq)
	return seq, err
}

func (r *txRepository) InsertOrder(ctx context.Context, wo WorkOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO work_orders (code, branch_id, customer_name, customer_phone, vehicle_plate, vehicle_model, status, labor_fee, parts_total, note, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW()) RETURNING id`,
		wo.Code, wo.BranchID, wo.CustomerName, wo.CustomerPhone, wo.VehiclePlate, wo.VehicleModel, string(wo.Status), wo.LaborFee, wo.PartsTotal, wo.Note, nullInt(wo.CreatedBy)).Scan(&id)
	return id, err
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (WorkOrder, error) {
	return scanOrder(r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM work_orders WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) SetStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE work_orders SET status=$2, completed_at=$3, updated_at=NOW() WHERE id=$1`,
		id, string(status), completedAt)
	return err
}

func (r *txRepository) InsertItem(ctx context.Context, it Item) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO work_order_items (order_id, part_id, quantity, unit_price, total_price)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		it.OrderID, it.PartID, it.Quantity, it.UnitPrice, it.TotalPrice).Scan(&id)
	return id, err
}

func (r *txRepository) ListItems(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.tx.Query(ctx, `SELECT i.id, i.order_id, i.part_id, p.name, i.quantity, i.unit_price, i.total_price
FROM work_order_items i JOIN parts p ON p.id = i.part_id
WHERE i.order_id=$1 ORDER BY i.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.PartID, &it.PartName, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
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
