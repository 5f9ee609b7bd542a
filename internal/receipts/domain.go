// Package receipts implements goods receipts: creation with stock-in
// posting, line-level edit reconciliation and whole-receipt deletion.
package receipts

import (
	"errors"
	"time"
)

// Receipt is one goods receipt from a supplier.
type Receipt struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	SupplierID int64     `json:"supplier_id"`
	BranchID   int64     `json:"branch_id"`
	Total      float64   `json:"total"`
	Note       string    `json:"note"`
	ReceivedAt time.Time `json:"received_at"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Lines      []Line    `json:"lines,omitempty"`
}

// Line is one received part on a receipt. TotalPrice is always
// Quantity*UnitPrice, recomputed on every write.
type Line struct {
	ID         int64   `json:"id"`
	ReceiptID  int64   `json:"receipt_id"`
	PartID     int64   `json:"part_id"`
	PartName   string  `json:"part_name"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	Note       string  `json:"note"`
}

// LineInput is a line as submitted by a client. On edits ID carries either
// an existing line id as digits or the "new-" prefix for lines added in the
// editor.
type LineInput struct {
	ID             string   `json:"id"`
	PartID         int64    `json:"part_id"`
	PartName       string   `json:"part_name"`
	Quantity       int64    `json:"quantity"`
	UnitPrice      float64  `json:"unit_price"`
	RetailPrice    *float64 `json:"retail_price,omitempty"`
	WholesalePrice *float64 `json:"wholesale_price,omitempty"`
	Note           string   `json:"note"`
}

// NewLinePrefix marks editor-created lines that have no database id yet.
const NewLinePrefix = "new-"

// CreateInput describes a new receipt.
type CreateInput struct {
	SupplierID int64
	BranchID   int64
	ReceivedAt time.Time
	Note       string
	Lines      []LineInput
	PaidAmount float64
	RecordDebt bool
	DebtDueAt  time.Time
	ActorID    int64
}

// EditInput is the full replacement line set for a receipt.
type EditInput struct {
	Lines   []LineInput
	Note    string
	ActorID int64
}

// PriceChange reports a retail price change applied during a receipt write,
// kept for the audit trail.
type PriceChange struct {
	BranchID  int64
	PartID    int64
	OldRetail float64
	NewRetail float64
}

// DeleteResult reports the outcome of one receipt deletion inside a group
// or bulk operation.
type DeleteResult struct {
	ReceiptID int64  `json:"receipt_id"`
	Deleted   bool   `json:"deleted"`
	Clamped   int    `json:"clamped_lines"`
	Error     string `json:"error,omitempty"`
}

// ListFilter filters receipt listings.
type ListFilter struct {
	BranchID   int64
	SupplierID int64
	From       time.Time
	To         time.Time
	Search     string
	Page       int
	Limit      int
}

// Errors returned by the receipts service.
var (
	ErrNotFound     = errors.New("receipts: receipt not found")
	ErrEmptyLines   = errors.New("phiếu nhập phải có ít nhất một dòng")
	ErrLineMismatch = errors.New("receipts: line does not belong to receipt")
	ErrValidation   = errors.New("receipts: validation failed")
)
