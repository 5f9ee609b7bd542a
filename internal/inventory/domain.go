package inventory

import (
	"errors"
	"time"
)

// TransactionType enumerates supported stock movements.
type TransactionType string

const (
	// TransactionTypeIn represents goods received into stock ("Nhập kho").
	TransactionTypeIn TransactionType = "NHAP_KHO"
	// TransactionTypeOut represents goods leaving stock ("Xuất kho").
	TransactionTypeOut TransactionType = "XUAT_KHO"
	// TransactionTypeAdjust indicates manual adjustments ("Điều chỉnh").
	TransactionTypeAdjust TransactionType = "DIEU_CHINH"
)

// NegativePolicy names the behaviour when a movement would drive stock below
// zero. Receipt edit paths reject; whole-receipt reversal clamps at zero.
// The choice is always explicit on the movement, never implied by call site.
type NegativePolicy string

const (
	// PolicyReject aborts the movement with ErrNegativeStock.
	PolicyReject NegativePolicy = "REJECT"
	// PolicyClampZero floors the resulting quantity at zero.
	PolicyClampZero NegativePolicy = "CLAMP_ZERO"
)

// Transaction models one row of the inventory ledger.
type Transaction struct {
	ID         int64
	Type       TransactionType
	BranchID   int64
	PartID     int64
	PartName   string
	ReceiptID  *int64
	Qty        int64
	UnitPrice  float64
	TotalPrice float64
	RefModule  string
	Note       string
	PostedAt   time.Time
	CreatedBy  int64
	CreatedAt  time.Time
}

// Movement describes a signed stock change to apply.
type Movement struct {
	Type      TransactionType
	BranchID  int64
	PartID    int64
	PartName  string
	Qty       int64
	UnitPrice float64
	ReceiptID *int64
	RefModule string
	Note      string
	ActorID   int64
	Policy    NegativePolicy
	PostedAt  time.Time
}

// StockChange reports the effect of an applied movement.
type StockChange struct {
	BranchID      int64
	PartID        int64
	Before        int64
	Applied       int64
	After         int64
	Clamped       bool
	TransactionID int64
}

// AdjustmentInput describes a manual stock adjustment.
type AdjustmentInput struct {
	BranchID int64
	PartID   int64
	PartName string
	Qty      int64
	Note     string
	ActorID  int64
}

// LowStock is one branch stock row at or under a threshold.
type LowStock struct {
	BranchID int64  `json:"branch_id"`
	PartID   int64  `json:"part_id"`
	PartName string `json:"part_name"`
	SKU      string `json:"sku"`
	Qty      int64  `json:"qty"`
}

// TransactionFilter filters ledger listings.
type TransactionFilter struct {
	BranchID  int64
	PartID    int64
	Type      TransactionType
	ReceiptID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// ErrNegativeStock triggered when a movement would result in negative stock
// under PolicyReject. Wrapping errors carry the part name for user messages.
var ErrNegativeStock = errors.New("không đủ tồn kho")

// ErrInvalidQuantity indicates a zero quantity movement.
var ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")

// ErrInvalidPolicy indicates a movement without an explicit negative policy.
var ErrInvalidPolicy = errors.New("inventory: negative-stock policy required")

// ErrStockNotFound indicates no branch_stocks row; callers treat it as zero.
var ErrStockNotFound = errors.New("inventory: stock row not found")
