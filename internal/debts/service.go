package debts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateInput) (Debt, error)
	Get(ctx context.Context, id int64) (Debt, error)
	List(ctx context.Context, filter ListFilter) ([]Debt, int, error)
	Settle(ctx context.Context, id int64, amount float64) (Debt, float64, error)
	DeleteByReceipt(ctx context.Context, receiptID int64) error
	Aging(ctx context.Context, asOf time.Time) ([]Debt, error)
	OutstandingTotal(ctx context.Context, supplierID int64) (float64, error)
}

// AuditPort records debt mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes supplier debt operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create records a debt manually (receipt-born debts are inserted by the
// receipt transaction itself).
func (s *Service) Create(ctx context.Context, input CreateInput) (Debt, error) {
	if input.SupplierID == 0 {
		return Debt{}, fmt.Errorf("%w: supplier required", ErrValidation)
	}
	if input.Amount <= 0 {
		return Debt{}, fmt.Errorf("%w: số tiền phải lớn hơn 0", ErrValidation)
	}
	d, err := s.repo.Create(ctx, input)
	if err != nil {
		return Debt{}, err
	}
	s.recordAudit(ctx, input.ActorID, "debt:create", d.ID, map[string]any{"supplier_id": d.SupplierID, "amount": d.Amount})
	return d, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Debt, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Debt, int, error) {
	return s.repo.List(ctx, filter)
}

// Settle applies a payment. Amounts above the balance are clamped so a debt
// never ends up over-paid.
func (s *Service) Settle(ctx context.Context, id int64, input SettleInput) (Debt, error) {
	if input.Amount <= 0 {
		return Debt{}, fmt.Errorf("%w: số tiền phải lớn hơn 0", ErrValidation)
	}
	d, applied, err := s.repo.Settle(ctx, id, input.Amount)
	if err != nil {
		return Debt{}, err
	}
	s.recordAudit(ctx, input.ActorID, "debt:settle", id, map[string]any{
		"requested": input.Amount, "applied": applied, "status": string(d.Status), "note": input.Note,
	})
	return d, nil
}

// DeleteByReceipt removes debts tied to a deleted receipt.
func (s *Service) DeleteByReceipt(ctx context.Context, receiptID int64) error {
	return s.repo.DeleteByReceipt(ctx, receiptID)
}

// OutstandingTotal sums open balances.
func (s *Service) OutstandingTotal(ctx context.Context, supplierID int64) (float64, error) {
	return s.repo.OutstandingTotal(ctx, supplierID)
}

// Aging builds the overdue report as of now.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (AgingReport, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	debts, err := s.repo.Aging(ctx, asOf)
	if err != nil {
		return AgingReport{}, err
	}
	return BucketizeAging(debts, asOf), nil
}

var agingLabels = []string{"current", "1-30", "31-60", "61-90", "91-120", "120+"}

// BucketizeAging groups open balances by days overdue. Debts without a due
// date, or not yet due, count as current.
func BucketizeAging(debts []Debt, asOf time.Time) AgingReport {
	report := AgingReport{AsOf: asOf, Buckets: make([]AgingBucket, len(agingLabels))}
	for i, label := range agingLabels {
		report.Buckets[i].Label = label
	}
	for _, d := range debts {
		balance := d.Balance()
		if balance <= 0 {
			continue
		}
		idx := 0
		if d.DueAt != nil {
			overdue := int(asOf.Sub(*d.DueAt).Hours() / 24)
			switch {
			case overdue <= 0:
				idx = 0
			case overdue <= 30:
				idx = 1
			case overdue <= 60:
				idx = 2
			case overdue <= 90:
				idx = 3
			case overdue <= 120:
				idx = 4
			default:
				idx = 5
			}
		}
		report.Buckets[idx].Count++
		report.Buckets[idx].Amount += balance
		report.Total += balance
	}
	return report
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, debtID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "supplier_debt",
		EntityID: strconv.FormatInt(debtID, 10),
		Meta:     meta,
	})
}
