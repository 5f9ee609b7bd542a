package masterdata

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Repository persists master data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// --- Branches ---

func (r *Repository) ListBranches(ctx context.Context) ([]Branch, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, address, phone, created_at, updated_at FROM branches ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	branches := []Branch{}
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Address, &b.Phone, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func (r *Repository) GetBranch(ctx context.Context, id int64) (Branch, error) {
	var b Branch
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, address, phone, created_at, updated_at FROM branches WHERE id=$1`, id).
		Scan(&b.ID, &b.Code, &b.Name, &b.Address, &b.Phone, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Branch{}, ErrNotFound
	}
	return b, err
}

func (r *Repository) CreateBranch(ctx context.Context, b Branch) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO branches (code, name, address, phone, created_at, updated_at) VALUES ($1,$2,$3,$4,NOW(),NOW()) RETURNING id`,
		b.Code, b.Name, b.Address, b.Phone).Scan(&id)
	return id, err
}

// --- Suppliers ---

func (r *Repository) ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (name ILIKE $` + strconv.Itoa(len(args)) + ` OR phone ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += ` AND is_active = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filters.Page > 1 {
		offset = (filters.Page - 1) * limit
	}
	args = append(args, limit, offset)
	query := `SELECT id, code, name, phone, address, is_active, created_at, updated_at FROM suppliers` + where +
		` ORDER BY name LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	suppliers := []Supplier{}
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Phone, &s.Address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, total, rows.Err()
}

func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, phone, address, is_active, created_at, updated_at FROM suppliers WHERE id=$1`, id).
		Scan(&s.ID, &s.Code, &s.Name, &s.Phone, &s.Address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	return s, err
}

func (r *Repository) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO suppliers (code, name, phone, address, is_active, created_at, updated_at) VALUES ($1,$2,$3,$4,TRUE,NOW(),NOW()) RETURNING id`,
		s.Code, s.Name, s.Phone, s.Address).Scan(&id)
	return id, err
}

func (r *Repository) UpdateSupplier(ctx context.Context, id int64, s Supplier) error {
	tag, err := r.pool.Exec(ctx, `UPDATE suppliers SET name=$2, phone=$3, address=$4, is_active=$5, updated_at=NOW() WHERE id=$1`,
		id, s.Name, s.Phone, s.Address, s.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Parts ---

func (r *Repository) ListParts(ctx context.Context, filters ListFilters) ([]Part, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+FoldSearchTerm(filters.Search)+"%")
		where += ` AND (search_name LIKE $` + strconv.Itoa(len(args)) + ` OR lower(sku) LIKE $` + strconv.Itoa(len(args)) + `)`
	}
	if filters.Category != "" {
		args = append(args, filters.Category)
		where += ` AND category = $` + strconv.Itoa(len(args))
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += ` AND is_active = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM parts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filters.Page > 1 {
		offset = (filters.Page - 1) * limit
	}
	args = append(args, limit, offset)
	query := `SELECT id, sku, name, category, unit, is_active, created_at, updated_at FROM parts` + where +
		` ORDER BY name LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	parts := []Part{}
	for rows.Next() {
		var p Part
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		parts = append(parts, p)
	}
	return parts, total, rows.Err()
}

func (r *Repository) GetPart(ctx context.Context, id int64) (Part, error) {
	var p Part
	err := r.pool.QueryRow(ctx, `SELECT id, sku, name, category, unit, is_active, created_at, updated_at FROM parts WHERE id=$1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Part{}, ErrNotFound
	}
	return p, err
}

func (r *Repository) CreatePart(ctx context.Context, p Part) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO parts (sku, name, search_name, category, unit, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,TRUE,NOW(),NOW()) RETURNING id`,
		p.SKU, p.Name, FoldSearchTerm(p.Name), p.Category, p.Unit).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateSKU
		}
		return 0, err
	}
	return id, nil
}

func (r *Repository) UpdatePart(ctx context.Context, id int64, p Part) error {
	tag, err := r.pool.Exec(ctx, `UPDATE parts SET name=$2, search_name=$3, category=$4, unit=$5, is_active=$6, updated_at=NOW() WHERE id=$1`,
		id, p.Name, FoldSearchTerm(p.Name), p.Category, p.Unit, p.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindBySKUs resolves parts by SKU, case-insensitively, in chunks of
// SKUChunkSize. Chunks query concurrently; the result maps lowercased SKU
// to the part.
func (r *Repository) FindBySKUs(ctx context.Context, skus []string) (map[string]Part, error) {
	lowered := make([]string, 0, len(skus))
	seen := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		key := strings.ToLower(strings.TrimSpace(sku))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		lowered = append(lowered, key)
	}

	result := make(map[string]Part, len(lowered))
	var mu chunkResult
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for start := 0; start < len(lowered); start += SKUChunkSize {
		end := start + SKUChunkSize
		if end > len(lowered) {
			end = len(lowered)
		}
		chunk := lowered[start:end]
		g.Go(func() error {
			rows, err := r.pool.Query(gctx, `SELECT id, sku, name, category, unit, is_active, created_at, updated_at FROM parts WHERE lower(sku) = ANY($1)`, chunk)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var p Part
				if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
					return err
				}
				mu.put(result, strings.ToLower(p.SKU), p)
			}
			return rows.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- Branch stocks ---

func (r *Repository) GetBranchStock(ctx context.Context, branchID, partID int64) (BranchStock, error) {
	var bs BranchStock
	err := r.pool.QueryRow(ctx, `SELECT branch_id, part_id, qty, cost_price, retail_price, wholesale_price, updated_at FROM branch_stocks WHERE branch_id=$1 AND part_id=$2`, branchID, partID).
		Scan(&bs.BranchID, &bs.PartID, &bs.Qty, &bs.CostPrice, &bs.RetailPrice, &bs.WholesalePrice, &bs.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BranchStock{BranchID: branchID, PartID: partID}, ErrNotFound
	}
	return bs, err
}

func (r *Repository) ListBranchStocks(ctx context.Context, partID int64) ([]BranchStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT branch_id, part_id, qty, cost_price, retail_price, wholesale_price, updated_at FROM branch_stocks WHERE part_id=$1 ORDER BY branch_id`, partID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stocks := []BranchStock{}
	for rows.Next() {
		var bs BranchStock
		if err := rows.Scan(&bs.BranchID, &bs.PartID, &bs.Qty, &bs.CostPrice, &bs.RetailPrice, &bs.WholesalePrice, &bs.UpdatedAt); err != nil {
			return nil, err
		}
		stocks = append(stocks, bs)
	}
	return stocks, rows.Err()
}

// UpdatePrices applies a per-branch price update outside a receipt flow.
func (r *Repository) UpdatePrices(ctx context.Context, upd PriceUpdate) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO branch_stocks (branch_id, part_id, qty, cost_price, retail_price, wholesale_price, updated_at)
VALUES ($1,$2,0,COALESCE($3,0),COALESCE($4,0),COALESCE($5,0),NOW())
ON CONFLICT (branch_id, part_id) DO UPDATE SET
  cost_price = COALESCE($3, branch_stocks.cost_price),
  retail_price = COALESCE($4, branch_stocks.retail_price),
  wholesale_price = COALESCE($5, branch_stocks.wholesale_price),
  updated_at = NOW()`,
		upd.BranchID, upd.PartID, upd.CostPrice, upd.RetailPrice, upd.WholesalePrice)
	return err
}

// chunkResult serialises writes into the shared SKU map.
type chunkResult struct {
	mu sync.Mutex
}

func (c *chunkResult) put(m map[string]Part, key string, p Part) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m[key] = p
}
