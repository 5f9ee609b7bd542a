package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetStock(ctx context.Context, branchID, partID int64) (int64, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes manual stock operations and the ledger history. Receipt
// flows post through the Ledger directly inside their own transactions.
type Service struct {
	repo   RepositoryPort
	ledger *Ledger
	audit  AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *Ledger, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledger, audit: audit}
}

// Adjust posts a manual stock adjustment. Negative adjustments reject when
// they would drive stock below zero.
func (s *Service) Adjust(ctx context.Context, input AdjustmentInput) (StockChange, error) {
	if input.BranchID == 0 || input.PartID == 0 {
		return StockChange{}, errors.New("inventory: branch and part required")
	}
	if input.Qty == 0 {
		return StockChange{}, ErrInvalidQuantity
	}
	var change StockChange
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		change, err = s.ledger.Apply(ctx, tx, Movement{
			Type:      TransactionTypeAdjust,
			BranchID:  input.BranchID,
			PartID:    input.PartID,
			PartName:  input.PartName,
			Qty:       input.Qty,
			RefModule: "INVENTORY",
			Note:      input.Note,
			ActorID:   input.ActorID,
			Policy:    PolicyReject,
		})
		return err
	})
	if err != nil {
		return StockChange{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "inventory:adjust",
			Entity:   "branch_stock",
			EntityID: fmt.Sprintf("%d:%d", input.BranchID, input.PartID),
			Meta: map[string]any{
				"qty_before": change.Before,
				"qty_after":  change.After,
				"note":       input.Note,
			},
		})
	}
	return change, nil
}

// GetStock returns the on-hand quantity for one part at one branch.
func (s *Service) GetStock(ctx context.Context, branchID, partID int64) (int64, error) {
	if branchID == 0 || partID == 0 {
		return 0, errors.New("inventory: branch and part required")
	}
	return s.repo.GetStock(ctx, branchID, partID)
}

// History lists ledger entries.
func (s *Service) History(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}
