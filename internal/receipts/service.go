package receipts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetReceipt(ctx context.Context, id int64) (Receipt, error)
	ListReceipts(ctx context.Context, filter ListFilter) ([]Receipt, int, error)
}

// AuditPort records receipt mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// DebtCleaner removes supplier debts tied to deleted receipts. Cleanup runs
// after commit and failures are logged, never surfaced.
type DebtCleaner interface {
	DeleteByReceipt(ctx context.Context, receiptID int64) error
}

// Service implements goods receipt flows on top of the stock ledger.
type Service struct {
	repo   RepositoryPort
	ledger *inventory.Ledger
	audit  AuditPort
	debts  DebtCleaner
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *inventory.Ledger, audit AuditPort, debts DebtCleaner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledger, audit: audit, debts: debts, logger: logger}
}

// Get loads one receipt with lines.
func (s *Service) Get(ctx context.Context, id int64) (Receipt, error) {
	return s.repo.GetReceipt(ctx, id)
}

// List pages receipt headers.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Receipt, int, error) {
	return s.repo.ListReceipts(ctx, filter)
}

// Create records a goods receipt: header + lines, stock-in per line, price
// updates and an optional supplier debt for the unpaid amount, all in one
// transaction.
func (s *Service) Create(ctx context.Context, input CreateInput) (Receipt, error) {
	if input.SupplierID == 0 || input.BranchID == 0 {
		return Receipt{}, fmt.Errorf("%w: supplier and branch required", ErrValidation)
	}
	if len(input.Lines) == 0 {
		return Receipt{}, ErrEmptyLines
	}
	for _, ln := range input.Lines {
		if err := validateLine(ln); err != nil {
			return Receipt{}, err
		}
	}
	receivedAt := input.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	var (
		receiptID    int64
		code         string
		total        float64
		priceChanges []PriceChange
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextReceiptSeq(ctx)
		if err != nil {
			return err
		}
		code = fmt.Sprintf("PN-%s-%04d", receivedAt.Format("060102"), seq)
		for _, ln := range input.Lines {
			total += float64(ln.Quantity) * ln.UnitPrice
		}
		receiptID, err = tx.InsertReceipt(ctx, Receipt{
			Code:       code,
			SupplierID: input.SupplierID,
			BranchID:   input.BranchID,
			Total:      total,
			Note:       input.Note,
			ReceivedAt: receivedAt,
			CreatedBy:  input.ActorID,
		})
		if err != nil {
			return err
		}
		for _, ln := range input.Lines {
			if _, err := tx.InsertLine(ctx, Line{
				ReceiptID:  receiptID,
				PartID:     ln.PartID,
				Quantity:   ln.Quantity,
				UnitPrice:  ln.UnitPrice,
				TotalPrice: float64(ln.Quantity) * ln.UnitPrice,
				Note:       ln.Note,
			}); err != nil {
				return err
			}
			if _, err := s.ledger.Apply(ctx, tx, inventory.Movement{
				Type:       inventory.TransactionTypeIn,
				BranchID:   input.BranchID,
				PartID:     ln.PartID,
				PartName:   ln.PartName,
				Qty:        ln.Quantity,
				UnitPrice:  ln.UnitPrice,
				ReceiptID:  &receiptID,
				RefModule:  "GOODS_RECEIPT",
				Note:       code,
				ActorID:    input.ActorID,
				Policy:     inventory.PolicyReject,
				PostedAt:   receivedAt,
			}); err != nil {
				return err
			}
			change, err := applyLinePrices(ctx, tx, input.BranchID, ln)
			if err != nil {
				return err
			}
			if change != nil {
				priceChanges = append(priceChanges, *change)
			}
		}
		if input.RecordDebt {
			unpaid := total - input.PaidAmount
			if unpaid > 0 {
				desc := fmt.Sprintf("Công nợ phiếu nhập %s", code)
				if err := tx.InsertDebt(ctx, input.SupplierID, receiptID, unpaid, desc, input.DebtDueAt, input.ActorID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	s.recordAudit(ctx, input.ActorID, "receipt:create", receiptID, map[string]any{
		"code": code, "supplier_id": input.SupplierID, "total": total, "lines": len(input.Lines),
	})
	s.auditPriceChanges(ctx, input.ActorID, priceChanges)

	return s.repo.GetReceipt(ctx, receiptID)
}

// Edit replaces the receipt's line set via a three-pass reconcile inside one
// transaction: delete lines absent from the edit, update matching lines and
// post quantity diffs, insert lines with the "new-" sentinel id. Any
// failure rolls back every pass.
func (s *Service) Edit(ctx context.Context, receiptID int64, input EditInput) (Receipt, error) {
	if len(input.Lines) == 0 {
		return Receipt{}, ErrEmptyLines
	}
	for _, ln := range input.Lines {
		if err := validateLine(ln); err != nil {
			return Receipt{}, err
		}
	}

	var priceChanges []PriceChange
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rc, err := tx.GetReceiptForUpdate(ctx, receiptID)
		if err != nil {
			return err
		}
		existing, err := tx.ListLines(ctx, receiptID)
		if err != nil {
			return err
		}
		byID := make(map[int64]Line, len(existing))
		for _, ln := range existing {
			byID[ln.ID] = ln
		}

		kept := make(map[int64]LineInput)
		var inserts []LineInput
		for _, ln := range input.Lines {
			if ln.ID == "" || strings.HasPrefix(ln.ID, NewLinePrefix) {
				inserts = append(inserts, ln)
				continue
			}
			id, err := strconv.ParseInt(ln.ID, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad line id %q", ErrValidation, ln.ID)
			}
			old, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: line %d", ErrLineMismatch, id)
			}
			// A kept line keeps its part. Changing the part must go through
			// delete+insert so both ledger postings hit the right rows.
			if ln.PartID != 0 && ln.PartID != old.PartID {
				return fmt.Errorf("%w: line %d không thể đổi phụ tùng", ErrLineMismatch, id)
			}
			ln.PartID = old.PartID
			if ln.PartName == "" {
				ln.PartName = old.PartName
			}
			kept[id] = ln
		}

		// pass 1: deletions
		for _, old := range existing {
			if _, ok := kept[old.ID]; ok {
				continue
			}
			if _, err := s.ledger.Apply(ctx, tx, inventory.Movement{
				Type:      inventory.TransactionTypeOut,
				BranchID:  rc.BranchID,
				PartID:    old.PartID,
				PartName:  old.PartName,
				Qty:       -old.Quantity,
				UnitPrice: old.UnitPrice,
				ReceiptID: &receiptID,
				RefModule: "GOODS_RECEIPT",
				Note:      fmt.Sprintf("Xóa dòng phiếu %s", rc.Code),
				ActorID:   input.ActorID,
				Policy:    inventory.PolicyReject,
			}); err != nil {
				return err
			}
			if err := tx.DeleteLine(ctx, old.ID); err != nil {
				return err
			}
		}

		// pass 2: updates
		for id, ln := range kept {
			old := byID[id]
			if err := tx.UpdateLine(ctx, Line{
				ID:         id,
				Quantity:   ln.Quantity,
				UnitPrice:  ln.UnitPrice,
				TotalPrice: float64(ln.Quantity) * ln.UnitPrice,
				Note:       ln.Note,
			}); err != nil {
				return err
			}
			if diff := ln.Quantity - old.Quantity; diff != 0 {
				if _, err := s.ledger.Apply(ctx, tx, inventory.Movement{
					Type:      inventory.TransactionTypeAdjust,
					BranchID:  rc.BranchID,
					PartID:    old.PartID,
					PartName:  old.PartName,
					Qty:       diff,
					UnitPrice: ln.UnitPrice,
					ReceiptID: &receiptID,
					RefModule: "GOODS_RECEIPT",
					Note:      fmt.Sprintf("Sửa dòng phiếu %s", rc.Code),
					ActorID:   input.ActorID,
					Policy:    inventory.PolicyReject,
				}); err != nil {
					return err
				}
			}
			change, err := applyLinePrices(ctx, tx, rc.BranchID, ln)
			if err != nil {
				return err
			}
			if change != nil {
				priceChanges = append(priceChanges, *change)
			}
		}

		// pass 3: insertions
		for _, ln := range inserts {
			if _, err := tx.InsertLine(ctx, Line{
				ReceiptID:  receiptID,
				PartID:     ln.PartID,
				Quantity:   ln.Quantity,
				UnitPrice:  ln.UnitPrice,
				TotalPrice: float64(ln.Quantity) * ln.UnitPrice,
				Note:       ln.Note,
			}); err != nil {
				return err
			}
			if _, err := s.ledger.Apply(ctx, tx, inventory.Movement{
				Type:      inventory.TransactionTypeIn,
				BranchID:  rc.BranchID,
				PartID:    ln.PartID,
				PartName:  ln.PartName,
				Qty:       ln.Quantity,
				UnitPrice: ln.UnitPrice,
				ReceiptID: &receiptID,
				RefModule: "GOODS_RECEIPT",
				Note:      fmt.Sprintf("Thêm dòng phiếu %s", rc.Code),
				ActorID:   input.ActorID,
				Policy:    inventory.PolicyReject,
			}); err != nil {
				return err
			}
			change, err := applyLinePrices(ctx, tx, rc.BranchID, ln)
			if err != nil {
				return err
			}
			if change != nil {
				priceChanges = append(priceChanges, *change)
			}
		}

		var total float64
		for _, ln := range input.Lines {
			total += float64(ln.Quantity) * ln.UnitPrice
		}
		note := input.Note
		if note == "" {
			note = rc.Note
		}
		return tx.UpdateReceiptHeader(ctx, receiptID, total, note)
	})
	if err != nil {
		return Receipt{}, err
	}

	s.recordAudit(ctx, input.ActorID, "receipt:edit", receiptID, map[string]any{"lines": len(input.Lines)})
	s.auditPriceChanges(ctx, input.ActorID, priceChanges)

	return s.repo.GetReceipt(ctx, receiptID)
}

// DeleteGroup deletes receipts one by one, each in its own transaction.
// Stock reversal clamps at zero instead of rejecting so a receipt whose
// goods were already sold can still be removed. Debt cleanup runs after
// commit and soft-fails.
func (s *Service) DeleteGroup(ctx context.Context, ids []int64, actorID int64) []DeleteResult {
	results := make([]DeleteResult, 0, len(ids))
	for _, id := range ids {
		res := DeleteResult{ReceiptID: id}
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			rc, err := tx.GetReceiptForUpdate(ctx, id)
			if err != nil {
				return err
			}
			lines, err := tx.ListLines(ctx, id)
			if err != nil {
				return err
			}
			for _, ln := range lines {
				change, err := s.ledger.Apply(ctx, tx, inventory.Movement{
					Type:      inventory.TransactionTypeOut,
					BranchID:  rc.BranchID,
					PartID:    ln.PartID,
					PartName:  ln.PartName,
					Qty:       -ln.Quantity,
					UnitPrice: ln.UnitPrice,
					ReceiptID: &id,
					RefModule: "GOODS_RECEIPT",
					Note:      fmt.Sprintf("Xóa phiếu %s", rc.Code),
					ActorID:   actorID,
					Policy:    inventory.PolicyClampZero,
				})
				if err != nil {
					return err
				}
				if change.Clamped {
					res.Clamped++
				}
				if err := tx.DeleteLine(ctx, ln.ID); err != nil {
					return err
				}
			}
			return tx.DeleteReceipt(ctx, id)
		})
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		res.Deleted = true
		if s.debts != nil {
			if err := s.debts.DeleteByReceipt(ctx, id); err != nil {
				s.logger.Warn("debt cleanup failed after receipt deletion",
					slog.Int64("receipt_id", id), slog.Any("error", err))
			}
		}
		s.recordAudit(ctx, actorID, "receipt:delete", id, map[string]any{"clamped_lines": res.Clamped})
		results = append(results, res)
	}
	return results
}

func validateLine(ln LineInput) error {
	if ln.PartID == 0 {
		return fmt.Errorf("%w: part required", ErrValidation)
	}
	if ln.Quantity <= 0 {
		return fmt.Errorf("%w: số lượng phải lớn hơn 0", ErrValidation)
	}
	if ln.UnitPrice < 0 {
		return fmt.Errorf("%w: đơn giá không hợp lệ", ErrValidation)
	}
	return nil
}

// applyLinePrices writes cost/retail/wholesale prices carried on the line
// and reports a retail change for auditing.
func applyLinePrices(ctx context.Context, tx TxRepository, branchID int64, ln LineInput) (*PriceChange, error) {
	if ln.RetailPrice == nil && ln.WholesalePrice == nil {
		cost := ln.UnitPrice
		return nil, tx.UpdatePrices(ctx, branchID, ln.PartID, &cost, nil, nil)
	}
	oldRetail, _, err := tx.GetPricesForUpdate(ctx, branchID, ln.PartID)
	if err != nil {
		return nil, err
	}
	cost := ln.UnitPrice
	if err := tx.UpdatePrices(ctx, branchID, ln.PartID, &cost, ln.RetailPrice, ln.WholesalePrice); err != nil {
		return nil, err
	}
	if ln.RetailPrice != nil && *ln.RetailPrice != oldRetail {
		return &PriceChange{BranchID: branchID, PartID: ln.PartID, OldRetail: oldRetail, NewRetail: *ln.RetailPrice}, nil
	}
	return nil, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, receiptID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "goods_receipt",
		EntityID: strconv.FormatInt(receiptID, 10),
		Meta:     meta,
	})
}

func (s *Service) auditPriceChanges(ctx context.Context, actorID int64, changes []PriceChange) {
	if s.audit == nil {
		return
	}
	for _, ch := range changes {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "part:retail_price_change",
			Entity:   "branch_stock",
			EntityID: fmt.Sprintf("%d:%d", ch.BranchID, ch.PartID),
			Meta: map[string]any{
				"old_retail": ch.OldRetail,
				"new_retail": ch.NewRetail,
			},
		})
	}
}
