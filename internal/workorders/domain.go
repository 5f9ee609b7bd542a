// Package workorders manages repair orders and their part consumption.
package workorders

import (
	"errors"
	"time"
)

// Status enumerates the work order lifecycle. Transitions: DRAFT →
// IN_PROGRESS → DONE, and DRAFT/IN_PROGRESS → CANCELLED. Parts are consumed
// from stock only on completion.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusCancelled  Status = "CANCELLED"
)

// WorkOrder is one repair job.
type WorkOrder struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	BranchID      int64      `json:"branch_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	VehiclePlate  string     `json:"vehicle_plate"`
	VehicleModel  string     `json:"vehicle_model"`
	Status        Status     `json:"status"`
	LaborFee      float64    `json:"labor_fee"`
	PartsTotal    float64    `json:"parts_total"`
	Note          string     `json:"note"`
	CreatedBy     int64      `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Items         []Item     `json:"items,omitempty"`
}

// Total returns labor plus parts.
func (w WorkOrder) Total() float64 {
	return w.LaborFee + w.PartsTotal
}

// Item is one part planned for the repair.
type Item struct {
	ID         int64   `json:"id"`
	OrderID    int64   `json:"order_id"`
	PartID     int64   `json:"part_id"`
	PartName   string  `json:"part_name"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// ItemInput is an item as submitted by a client.
type ItemInput struct {
	PartID    int64   `json:"part_id"`
	PartName  string  `json:"part_name"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// CreateInput describes a new work order.
type CreateInput struct {
	BranchID      int64
	CustomerName  string
	CustomerPhone string
	VehiclePlate  string
	VehicleModel  string
	LaborFee      float64
	Note          string
	Items         []ItemInput
	ActorID       int64
}

// ListFilter filters work order listings.
type ListFilter struct {
	BranchID int64
	Status   Status
	Search   string
	Page     int
	Limit    int
}

// Errors returned by the workorders service.
var (
	ErrNotFound          = errors.New("workorders: order not found")
	ErrValidation        = errors.New("workorders: validation failed")
	ErrInvalidTransition = errors.New("trạng thái phiếu sửa chữa không cho phép")
)

// CanTransition reports whether a status change is allowed.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusDone || to == StatusCancelled
	default:
		return false
	}
}
