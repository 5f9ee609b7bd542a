// Package sales records sales invoices and their stock consumption.
package sales

import (
	"errors"
	"time"
)

// Status enumerates invoice states.
type Status string

const (
	StatusPosted Status = "POSTED"
	StatusVoid   Status = "VOID"
)

// PriceTier selects which stored price applies to a line.
type PriceTier string

const (
	TierRetail    PriceTier = "RETAIL"
	TierWholesale PriceTier = "WHOLESALE"
)

// Invoice is one sale.
type Invoice struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	BranchID      int64      `json:"branch_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	Total         float64    `json:"total"`
	Status        Status     `json:"status"`
	Note          string     `json:"note"`
	SoldAt        time.Time  `json:"sold_at"`
	CreatedBy     int64      `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	VoidedAt      *time.Time `json:"voided_at,omitempty"`
	Lines         []Line     `json:"lines,omitempty"`
}

// Line is one sold part.
type Line struct {
	ID         int64     `json:"id"`
	InvoiceID  int64     `json:"invoice_id"`
	PartID     int64     `json:"part_id"`
	PartName   string    `json:"part_name"`
	Quantity   int64     `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	TotalPrice float64   `json:"total_price"`
	Tier       PriceTier `json:"tier"`
}

// LineInput is a line as submitted by a client. Zero UnitPrice means the
// stored price for the tier applies.
type LineInput struct {
	PartID    int64     `json:"part_id"`
	PartName  string    `json:"part_name"`
	Quantity  int64     `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	Tier      PriceTier `json:"tier"`
}

// CreateInput describes a new invoice.
type CreateInput struct {
	BranchID      int64
	CustomerName  string
	CustomerPhone string
	Note          string
	SoldAt        time.Time
	Lines         []LineInput
	ActorID       int64
}

// ListFilter filters invoice listings.
type ListFilter struct {
	BranchID int64
	Status   Status
	From     time.Time
	To       time.Time
	Page     int
	Limit    int
}

// Errors returned by the sales service.
var (
	ErrNotFound    = errors.New("sales: invoice not found")
	ErrEmptyLines  = errors.New("hóa đơn phải có ít nhất một dòng")
	ErrValidation  = errors.New("sales: validation failed")
	ErrAlreadyVoid = errors.New("hóa đơn đã bị hủy")
)
