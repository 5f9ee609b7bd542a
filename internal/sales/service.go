package sales

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/inventory"
	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, int, error)
}

// AuditPort records sales mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service posts and voids sales invoices.
type Service struct {
	repo   RepositoryPort
	ledger *inventory.Ledger
	audit  AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *inventory.Ledger, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledger, audit: audit}
}

func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	return s.repo.ListInvoices(ctx, filter)
}

// Create posts an invoice: header + lines plus one stock-out per line, all
// in one transaction. Selling more than is on hand rejects.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	if input.BranchID == 0 {
		return Invoice{}, fmt.Errorf("%w: branch required", ErrValidation)
	}
	if len(input.Lines) == 0 {
		return Invoice{}, ErrEmptyLines
	}
	for _, ln := range input.Lines {
		if ln.PartID == 0 || ln.Quantity <= 0 {
			return Invoice{}, fmt.Errorf("%w: số lượng phải lớn hơn 0", ErrValidation)
		}
	}
	soldAt := input.SoldAt
	if soldAt.IsZero() {
		soldAt = time.Now().UTC()
	}

	var invoiceID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextInvoiceSeq(ctx)
		if err != nil {
			return err
		}
		code := fmt.Sprintf("HD-%s-%04d", soldAt.Format("060102"), seq)

		// resolve tier prices before totalling
		lines := make([]Line, 0, len(input.Lines))
		var total float64
		for _, in := range input.Lines {
			tier := in.Tier
			if tier == "" {
				tier = TierRetail
			}
			price := in.UnitPrice
			if price == 0 {
				price, err = tx.GetTierPrice(ctx, input.BranchID, in.PartID, tier)
				if err != nil {
					return err
				}
			}
			ln := Line{
				PartID:     in.PartID,
				PartName:   in.PartName,
				Quantity:   in.Quantity,
				UnitPrice:  price,
				TotalPrice: float64(in.Quantity) * price,
				Tier:       tier,
			}
			total += ln.TotalPrice
			lines = append(lines, ln)
		}

		invoiceID, err = tx.InsertInvoice(ctx, Invoice{
			Code:          code,
			BranchID:      input.BranchID,
			CustomerName:  input.CustomerName,
			CustomerPhone: input.CustomerPhone,
			Total:         total,
			Status:        StatusPosted,
			Note:          input.Note,
			SoldAt:        soldAt,
			CreatedBy:     input.ActorID,
		})
		if err != nil {
			return err
		}
		for _, ln := range lines {
			ln.InvoiceID = invoiceID
			if _, err := tx.InsertLine(ctx, ln); err != nil {
				return err
			}
			if _, err := s.ledger.Apply(ctx, tx, inventory.Movement{
				Type:      inventory.TransactionTypeOut,
				BranchID:  input.BranchID,
				PartID:    ln.PartID,
				PartName:  ln.PartName,
				Qty:       -ln.Quantity,
				UnitPrice: ln.UnitPrice,
				RefModule: "SALES",
				Note:      code,
				ActorID:   input.ActorID,
				Policy:    inventory.PolicyReject,
				PostedAt:  soldAt,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}

	s.recordAudit(ctx, input.ActorID, "invoice:create", invoiceID, map[string]any{"lines": len(input.Lines)})
	return s.repo.GetInvoice(ctx, invoiceID)
}

// Void cancels a posted invoice and restores the consumed stock.
func (s *Service) Void(ctx context.Context, id int64, actorID int64) (Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusVoid {
			return ErrAlreadyVoid
		}
		lines, err := tx.ListLines(ctx, id)
		if err != nil {
			return err
		}
		for _, ln := range lines {
			if _, err := s.ledger.Apply(ctx, tx, inventory.Movement{
				Type:      inventory.TransactionTypeIn,
				BranchID:  inv.BranchID,
				PartID:    ln.PartID,
				PartName:  ln.PartName,
				Qty:       ln.Quantity,
				UnitPrice: ln.UnitPrice,
				RefModule: "SALES",
				Note:      fmt.Sprintf("Hủy hóa đơn %s", inv.Code),
				ActorID:   actorID,
				Policy:    inventory.PolicyReject,
			}); err != nil {
				return err
			}
		}
		return tx.MarkVoid(ctx, id)
	})
	if err != nil {
		return Invoice{}, err
	}

	s.recordAudit(ctx, actorID, "invoice:void", id, nil)
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, invoiceID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sales_invoice",
		EntityID: strconv.FormatInt(invoiceID, 10),
		Meta:     meta,
	})
}
