// Package debts tracks amounts owed to suppliers for goods receipts.
package debts

import (
	"errors"
	"time"
)

// Status enumerates debt settlement states.
type Status string

const (
	StatusUnpaid  Status = "UNPAID"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
)

// Debt is one supplier liability, usually born from a goods receipt.
type Debt struct {
	ID           int64      `json:"id"`
	SupplierID   int64      `json:"supplier_id"`
	SupplierName string     `json:"supplier_name,omitempty"`
	ReceiptID    *int64     `json:"receipt_id,omitempty"`
	Amount       float64    `json:"amount"`
	PaidAmount   float64    `json:"paid_amount"`
	Description  string     `json:"description"`
	DueAt        *time.Time `json:"due_at,omitempty"`
	Status       Status     `json:"status"`
	CreatedBy    int64      `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Balance returns the outstanding amount.
func (d Debt) Balance() float64 {
	return d.Amount - d.PaidAmount
}

// CreateInput describes a manually recorded debt.
type CreateInput struct {
	SupplierID  int64
	ReceiptID   *int64
	Amount      float64
	Description string
	DueAt       *time.Time
	ActorID     int64
}

// SettleInput records a payment against a debt. Payments above the balance
// are clamped to the balance.
type SettleInput struct {
	Amount  float64
	Note    string
	ActorID int64
}

// ListFilter filters debt listings.
type ListFilter struct {
	SupplierID int64
	Status     Status
	Page       int
	Limit      int
}

// AgingBucket is one column of the aging report.
type AgingBucket struct {
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// AgingReport groups outstanding debts by days overdue.
type AgingReport struct {
	AsOf    time.Time     `json:"as_of"`
	Total   float64       `json:"total"`
	Buckets []AgingBucket `json:"buckets"`
}

// Errors returned by the debts service.
var (
	ErrNotFound      = errors.New("debts: debt not found")
	ErrValidation    = errors.New("debts: validation failed")
	ErrAlreadySettled = errors.New("công nợ đã thanh toán đủ")
)
