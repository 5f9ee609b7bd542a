package masterdata

import (
	"errors"
	"time"
)

// ListFilters represents standard list page filters.
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	Category string
	BranchID int64
	IsActive *bool
}

// Branch represents a store location. Stock and prices are tracked per
// branch in branch_stocks.
type Branch struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Supplier represents a parts supplier.
type Supplier struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Part represents a spare part in the catalog.
type Part struct {
	ID        int64     `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Unit      string    `json:"unit"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BranchStock holds the per-branch quantity and price fields of a part.
type BranchStock struct {
	BranchID       int64     `json:"branch_id"`
	PartID         int64     `json:"part_id"`
	Qty            int64     `json:"qty"`
	CostPrice      float64   `json:"cost_price"`
	RetailPrice    float64   `json:"retail_price"`
	WholesalePrice float64   `json:"wholesale_price"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PartWithStock combines a part with its stock rows across branches.
type PartWithStock struct {
	Part
	Stocks []BranchStock `json:"stocks"`
}

// PriceUpdate carries new per-branch prices for a part. Nil fields are
// left untouched.
type PriceUpdate struct {
	BranchID       int64
	PartID         int64
	CostPrice      *float64
	RetailPrice    *float64
	WholesalePrice *float64
}

// Errors returned by the masterdata service.
var (
	ErrNotFound     = errors.New("masterdata: not found")
	ErrDuplicateSKU = errors.New("masterdata: sku already exists")
	ErrValidation   = errors.New("masterdata: validation failed")
)

// SKUChunkSize bounds IN-list sizes for bulk SKU lookups so a large import
// does not exceed query parameter limits.
const SKUChunkSize = 100
