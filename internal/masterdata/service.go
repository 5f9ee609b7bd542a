package masterdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	ListBranches(ctx context.Context) ([]Branch, error)
	GetBranch(ctx context.Context, id int64) (Branch, error)
	CreateBranch(ctx context.Context, b Branch) (int64, error)

	ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	CreateSupplier(ctx context.Context, s Supplier) (int64, error)
	UpdateSupplier(ctx context.Context, id int64, s Supplier) error

	ListParts(ctx context.Context, filters ListFilters) ([]Part, int, error)
	GetPart(ctx context.Context, id int64) (Part, error)
	CreatePart(ctx context.Context, p Part) (int64, error)
	UpdatePart(ctx context.Context, id int64, p Part) error
	FindBySKUs(ctx context.Context, skus []string) (map[string]Part, error)

	GetBranchStock(ctx context.Context, branchID, partID int64) (BranchStock, error)
	ListBranchStocks(ctx context.Context, partID int64) ([]BranchStock, error)
	UpdatePrices(ctx context.Context, upd PriceUpdate) error
}

// AuditPort records master data changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates master data operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) ListBranches(ctx context.Context) ([]Branch, error) {
	return s.repo.ListBranches(ctx)
}

func (s *Service) GetBranch(ctx context.Context, id int64) (Branch, error) {
	return s.repo.GetBranch(ctx, id)
}

func (s *Service) CreateBranch(ctx context.Context, b Branch) (Branch, error) {
	if b.Name == "" || b.Code == "" {
		return Branch{}, fmt.Errorf("%w: branch code and name required", ErrValidation)
	}
	id, err := s.repo.CreateBranch(ctx, b)
	if err != nil {
		return Branch{}, err
	}
	return s.repo.GetBranch(ctx, id)
}

func (s *Service) ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	return s.repo.ListSuppliers(ctx, filters)
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) CreateSupplier(ctx context.Context, sup Supplier) (Supplier, error) {
	if sup.Name == "" {
		return Supplier{}, fmt.Errorf("%w: supplier name required", ErrValidation)
	}
	id, err := s.repo.CreateSupplier(ctx, sup)
	if err != nil {
		return Supplier{}, err
	}
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, sup Supplier) (Supplier, error) {
	if err := s.repo.UpdateSupplier(ctx, id, sup); err != nil {
		return Supplier{}, err
	}
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) ListParts(ctx context.Context, filters ListFilters) ([]Part, int, error) {
	return s.repo.ListParts(ctx, filters)
}

// GetPartWithStock returns the part and its per-branch stock/price rows.
func (s *Service) GetPartWithStock(ctx context.Context, id int64) (PartWithStock, error) {
	part, err := s.repo.GetPart(ctx, id)
	if err != nil {
		return PartWithStock{}, err
	}
	stocks, err := s.repo.ListBranchStocks(ctx, id)
	if err != nil {
		return PartWithStock{}, err
	}
	return PartWithStock{Part: part, Stocks: stocks}, nil
}

func (s *Service) CreatePart(ctx context.Context, p Part, actorID int64) (Part, error) {
	p.SKU = strings.TrimSpace(p.SKU)
	if p.SKU == "" || p.Name == "" {
		return Part{}, fmt.Errorf("%w: sku and name required", ErrValidation)
	}
	id, err := s.repo.CreatePart(ctx, p)
	if err != nil {
		return Part{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "part:create",
			Entity:   "part",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"sku": p.SKU, "name": p.Name},
		})
	}
	return s.repo.GetPart(ctx, id)
}

func (s *Service) UpdatePart(ctx context.Context, id int64, p Part) (Part, error) {
	if err := s.repo.UpdatePart(ctx, id, p); err != nil {
		return Part{}, err
	}
	return s.repo.GetPart(ctx, id)
}

// FindBySKUs resolves existing parts by SKU for bulk flows.
func (s *Service) FindBySKUs(ctx context.Context, skus []string) (map[string]Part, error) {
	return s.repo.FindBySKUs(ctx, skus)
}

// UpdatePrices sets per-branch prices. Retail price changes are audited
// with the old and new value.
func (s *Service) UpdatePrices(ctx context.Context, upd PriceUpdate, actorID int64) error {
	if upd.BranchID == 0 || upd.PartID == 0 {
		return fmt.Errorf("%w: branch and part required", ErrValidation)
	}
	var oldRetail *float64
	if upd.RetailPrice != nil && s.audit != nil {
		if current, err := s.repo.GetBranchStock(ctx, upd.BranchID, upd.PartID); err == nil {
			oldRetail = &current.RetailPrice
		}
	}
	if err := s.repo.UpdatePrices(ctx, upd); err != nil {
		return err
	}
	if upd.RetailPrice != nil && s.audit != nil && (oldRetail == nil || *oldRetail != *upd.RetailPrice) {
		meta := map[string]any{"branch_id": upd.BranchID, "new_retail": *upd.RetailPrice}
		if oldRetail != nil {
			meta["old_retail"] = *oldRetail
		}
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "part:retail_price_change",
			Entity:   "branch_stock",
			EntityID: fmt.Sprintf("%d:%d", upd.BranchID, upd.PartID),
			Meta:     meta,
		})
	}
	return nil
}
