package workorders

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
	GetOrder(ctx context.Context, id int64) (WorkOrder, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]WorkOrder, int, error)
}

// AuditPort records work order mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the work order lifecycle. Stock is touched only when an
// order completes; cancellation never releases anything because nothing was
// consumed yet.
type Service struct {
	repo   RepositoryPort
	ledger *inventory.Ledger
	audit  AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *inventory.Ledger, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledger, audit: audit}
}

func (s *Service) Get(ctx context.Context, id int64) (WorkOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]WorkOrder, int, error) {
	return s.repo.ListOrders(ctx, filter)
}

// Create opens a DRAFT order with its planned items.
func (s *Service) Create(ctx context.Context, input CreateInput) (WorkOrder, error) {
	if input.BranchID == 0 {
		return WorkOrder{}, fmt.Errorf("%w: branch required", ErrValidation)
	}
	if input.CustomerName == "" {
		return WorkOrder{}, fmt.Errorf("%w: tên khách hàng bắt buộc", ErrValidation)
	}
	for _, it := range input.Items {
		if it.PartID == 0 || it.Quantity <= 0 {
			return WorkOrder{}, fmt.Errorf("%w: số lượng phải lớn hơn 0", ErrValidation)
		}
	}

	var orderID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextOrderSeq(ctx)
		if err != nil {
			return err
		}
		var partsTotal float64
		for _, it := range input.Items {
			partsTotal += float64(it.Quantity) * it.UnitPrice
		}
		orderID, err = tx.InsertOrder(ctx, WorkOrder{
			Code:          fmt.Sprintf("SC-%s-%04d", time.Now().UTC().Format("060102"), seq),
			BranchID:      input.BranchID,
			CustomerName:  input.CustomerName,
			CustomerPhone: input.CustomerPhone,
			VehiclePlate:  input.VehiclePlate,
			VehicleModel:  input.VehicleModel,
			Status:        StatusDraft,
			LaborFee:      input.LaborFee,
			PartsTotal:    partsTotal,
			Note:          input.Note,
			CreatedBy:     input.ActorID,
		})
		if err != nil {
			return err
		}
		for _, it := range input.Items {
			if _, err := tx.InsertItem(ctx, Item{
				OrderID:    orderID,
				PartID:     it.PartID,
				Quantity:   it.Quantity,
				UnitPrice:  it.UnitPrice,
				TotalPrice: float64(it.Quantity) * it.UnitPrice,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return WorkOrder{}, err
	}

	s.recordAudit(ctx, input.ActorID, "workorder:create", orderID, map[string]any{"items": len(input.Items)})
	return s.repo.GetOrder(ctx, orderID)
}

// Start moves a DRAFT order to IN_PROGRESS.
func (s *Service) Start(ctx context.Context, id, actorID int64) (WorkOrder, error) {
	return s.transition(ctx, id, actorID, StatusInProgress)
}

// Complete finishes an IN_PROGRESS order and consumes its items from stock.
// Missing stock rejects the completion.
func (s *Service) Complete(ctx context.Context, id, actorID int64) (WorkOrder, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		wo, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(wo.Status, StatusDone) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, wo.Status, StatusDone)
		}
		items, err := tx.ListItems(ctx, id)
		if err != nil {
			return err
		}
		for _, it := range items {
			if _, err := s.ledger.Apply(ctx, tx, inventory.Movement{
				Type:      inventory.TransactionTypeOut,
				BranchID:  wo.BranchID,
				PartID:    it.PartID,
				PartName:  it.PartName,
				Qty:       -it.Quantity,
				UnitPrice: it.UnitPrice,
				RefModule: "WORK_ORDER",
				Note:      wo.Code,
				ActorID:   actorID,
				Policy:    inventory.PolicyReject,
			}); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		return tx.SetStatus(ctx, id, StatusDone, &now)
	})
	if err != nil {
		return WorkOrder{}, err
	}

	s.recordAudit(ctx, actorID, "workorder:complete", id, nil)
	return s.repo.GetOrder(ctx, id)
}

// Cancel aborts an order that has not completed. Completed orders cannot be
// cancelled.
func (s *Service) Cancel(ctx context.Context, id, actorID int64) (WorkOrder, error) {
	return s.transition(ctx, id, actorID, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id, actorID int64, to Status) (WorkOrder, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		wo, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(wo.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, wo.Status, to)
		}
		return tx.SetStatus(ctx, id, to, nil)
	})
	if err != nil {
		return WorkOrder{}, err
	}

	s.recordAudit(ctx, actorID, "workorder:"+string(to), id, nil)
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "work_order",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     meta,
	})
}
