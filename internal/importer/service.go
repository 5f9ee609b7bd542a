package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/masterdata"
)

// CatalogPort resolves and creates parts. Satisfied by the masterdata
// service.
type CatalogPort interface {
	FindBySKUs(ctx context.Context, skus []string) (map[string]masterdata.Part, error)
	CreatePart(ctx context.Context, p masterdata.Part, actorID int64) (masterdata.Part, error)
}

// InventoryPort opens stock transactions. Satisfied by the inventory
// repository.
type InventoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error
}

// Service reconciles spreadsheet rows against the part catalog and posts
// opening stock.
type Service struct {
	catalog CatalogPort
	inv     InventoryPort
	ledger  *inventory.Ledger
	logger  *slog.Logger
}

// NewService builds Service.
func NewService(catalog CatalogPort, inv InventoryPort, ledger *inventory.Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: catalog, inv: inv, ledger: ledger, logger: logger}
}

// ImportFile parses and processes an XLSX stream.
func (s *Service) ImportFile(ctx context.Context, r io.Reader, branchID, actorID int64) (Result, error) {
	rows, err := ParseWorkbook(r)
	if err != nil {
		return Result{}, err
	}
	return s.Process(ctx, rows, branchID, actorID)
}

// Process applies rows one by one, each in its own transaction, so a bad
// row fails alone. A SKU repeated within the batch is applied once: the
// first occurrence wins, later ones are tallied as skipped with their row
// numbers. Quantities of duplicates are never summed.
func (s *Service) Process(ctx context.Context, rows []Row, branchID, actorID int64) (Result, error) {
	if branchID == 0 {
		return Result{}, fmt.Errorf("importer: branch required")
	}

	result := Result{Rows: make([]RowResult, 0, len(rows))}
	seen := make(map[string]int, len(rows))
	var apply []Row
	for _, row := range rows {
		key := strings.ToLower(strings.TrimSpace(row.SKU))
		if key == "" {
			result.Failed++
			result.Rows = append(result.Rows, RowResult{Row: row.Num, Status: StatusFailed, Message: "thiếu mã SKU"})
			continue
		}
		if firstRow, dup := seen[key]; dup {
			result.Skipped++
			result.Rows = append(result.Rows, RowResult{
				Row: row.Num, SKU: row.SKU, Status: StatusSkipped,
				Message: fmt.Sprintf("trùng SKU với dòng %d", firstRow),
			})
			continue
		}
		seen[key] = row.Num
		apply = append(apply, row)
	}

	skus := make([]string, 0, len(apply))
	for _, row := range apply {
		skus = append(skus, row.SKU)
	}
	existing, err := s.catalog.FindBySKUs(ctx, skus)
	if err != nil {
		return Result{}, err
	}

	for _, row := range apply {
		key := strings.ToLower(strings.TrimSpace(row.SKU))
		part, matched := existing[key]
		if !matched {
			created, err := s.catalog.CreatePart(ctx, masterdata.Part{
				SKU:      row.SKU,
				Name:     row.Name,
				Category: row.Category,
				Unit:     row.Unit,
			}, actorID)
			if err != nil {
				result.Failed++
				result.Rows = append(result.Rows, RowResult{Row: row.Num, SKU: row.SKU, Status: StatusFailed, Message: err.Error()})
				continue
			}
			part = created
		}

		if err := s.applyRow(ctx, branchID, actorID, part, row); err != nil {
			result.Failed++
			result.Rows = append(result.Rows, RowResult{Row: row.Num, SKU: row.SKU, Status: StatusFailed, Message: err.Error()})
			continue
		}
		if matched {
			result.Updated++
			result.Rows = append(result.Rows, RowResult{Row: row.Num, SKU: row.SKU, Status: StatusUpdated})
		} else {
			result.Created++
			result.Rows = append(result.Rows, RowResult{Row: row.Num, SKU: row.SKU, Status: StatusCreated})
		}
	}

	s.logger.Info("import finished",
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed))
	return result, nil
}

// applyRow posts the stock-in and price update for one row in one tx.
func (s *Service) applyRow(ctx context.Context, branchID, actorID int64, part masterdata.Part, row Row) error {
	return s.inv.WithTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		if row.Quantity > 0 {
			if _, err := s.ledger.Apply(ctx, tx, inventory.Movement{
				Type:      inventory.TransactionTypeIn,
				BranchID:  branchID,
				PartID:    part.ID,
				PartName:  part.Name,
				Qty:       row.Quantity,
				UnitPrice: row.CostPrice,
				RefModule: "IMPORT",
				Note:      fmt.Sprintf("Import dòng %d", row.Num),
				ActorID:   actorID,
				Policy:    inventory.PolicyReject,
			}); err != nil {
				return err
			}
		}
		var cost, retail, wholesale *float64
		if row.CostPrice > 0 {
			cost = &row.CostPrice
		}
		if row.RetailPrice > 0 {
			retail = &row.RetailPrice
		}
		if row.WholesalePrice > 0 {
			wholesale = &row.WholesalePrice
		}
		if cost == nil && retail == nil && wholesale == nil {
			return nil
		}
		return tx.SetPrices(ctx, branchID, part.ID, cost, retail, wholesale)
	})
}
