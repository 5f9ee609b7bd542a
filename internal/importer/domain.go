// Package importer loads parts and opening stock from spreadsheet files.
package importer

import "errors"

// Row is one parsed spreadsheet line.
type Row struct {
	Num            int     `json:"row"`
	SKU            string  `json:"sku"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Unit           string  `json:"unit"`
	Quantity       int64   `json:"quantity"`
	CostPrice      float64 `json:"cost_price"`
	RetailPrice    float64 `json:"retail_price"`
	WholesalePrice float64 `json:"wholesale_price"`
}

// Row outcome statuses.
const (
	StatusCreated = "created"
	StatusUpdated = "updated"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// RowResult is the outcome of one row.
type RowResult struct {
	Row     int    `json:"row"`
	SKU     string `json:"sku"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Result aggregates an import run.
type Result struct {
	Created int         `json:"created"`
	Updated int         `json:"updated"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Rows    []RowResult `json:"rows"`
}

// Errors returned by the importer.
var (
	ErrNoRows      = errors.New("file không có dòng dữ liệu")
	ErrBadWorkbook = errors.New("importer: cannot read workbook")
)
