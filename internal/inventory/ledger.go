package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StockStore is the transaction-scoped slice of a repository the ledger
// needs. Implementations must read the stock row with a row lock so the
// read-modify-write below cannot race a concurrent writer.
type StockStore interface {
	GetStockForUpdate(ctx context.Context, branchID, partID int64) (int64, error)
	SetStockQty(ctx context.Context, branchID, partID, qty int64) error
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
}

// MetricsPort counts posted movements.
type MetricsPort interface {
	ObserveStockMovement(txType, policy string)
}

// Ledger posts signed stock movements against a StockStore. It holds no
// state of its own; all writes happen inside the caller's transaction so a
// multi-movement operation commits or rolls back as one unit.
type Ledger struct {
	metrics MetricsPort
}

// NewLedger constructs a Ledger.
func NewLedger(metrics MetricsPort) *Ledger {
	return &Ledger{metrics: metrics}
}

// Apply validates and posts one movement. Invariant: persisted stock is
// never negative — PolicyReject fails the movement, PolicyClampZero floors
// the result at zero and records the clamp on the returned StockChange.
func (l *Ledger) Apply(ctx context.Context, store StockStore, mv Movement) (StockChange, error) {
	if mv.BranchID == 0 || mv.PartID == 0 {
		return StockChange{}, errors.New("inventory: branch and part required")
	}
	if mv.Qty == 0 {
		return StockChange{}, ErrInvalidQuantity
	}
	if mv.Policy != PolicyReject && mv.Policy != PolicyClampZero {
		return StockChange{}, ErrInvalidPolicy
	}
	if mv.Type == "" {
		return StockChange{}, errors.New("inventory: transaction type required")
	}

	before, err := store.GetStockForUpdate(ctx, mv.BranchID, mv.PartID)
	if err != nil {
		if !errors.Is(err, ErrStockNotFound) {
			return StockChange{}, err
		}
		before = 0
	}

	after := before + mv.Qty
	clamped := false
	if after < 0 {
		switch mv.Policy {
		case PolicyReject:
			return StockChange{}, fmt.Errorf("%w: %q (tồn %d, cần %d)", ErrNegativeStock, mv.PartName, before, -mv.Qty)
		case PolicyClampZero:
			after = 0
			clamped = true
		}
	}

	if err := store.SetStockQty(ctx, mv.BranchID, mv.PartID, after); err != nil {
		return StockChange{}, err
	}

	postedAt := mv.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}
	txID, err := store.InsertTransaction(ctx, Transaction{
		Type:       mv.Type,
		BranchID:   mv.BranchID,
		PartID:     mv.PartID,
		PartName:   mv.PartName,
		ReceiptID:  mv.ReceiptID,
		Qty:        mv.Qty,
		UnitPrice:  mv.UnitPrice,
		TotalPrice: float64(abs(mv.Qty)) * mv.UnitPrice,
		RefModule:  mv.RefModule,
		Note:       mv.Note,
		PostedAt:   postedAt,
		CreatedBy:  mv.ActorID,
	})
	if err != nil {
		return StockChange{}, err
	}

	if l.metrics != nil {
		l.metrics.ObserveStockMovement(string(mv.Type), string(mv.Policy))
	}

	return StockChange{
		BranchID:      mv.BranchID,
		PartID:        mv.PartID,
		Before:        before,
		Applied:       mv.Qty,
		After:         after,
		Clamped:       clamped,
		TransactionID: txID,
	}, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
