package analytics

import "time"

// RevenuePoint is daily revenue within a range.
type RevenuePoint struct {
	Day     time.Time `json:"day"`
	Revenue float64   `json:"revenue"`
	Orders  int64     `json:"orders"`
}

// RevenueReport aggregates sales for a range.
type RevenueReport struct {
	From   time.Time      `json:"from"`
	To     time.Time      `json:"to"`
	Total  float64        `json:"total"`
	Points []RevenuePoint `json:"points"`
}

// ValuationRow is stock value for one branch.
type ValuationRow struct {
	BranchID   int64   `json:"branch_id"`
	BranchName string  `json:"branch_name"`
	Units      int64   `json:"units"`
	Value      float64 `json:"value"`
}

// TopPart ranks parts by movement volume.
type TopPart struct {
	PartID   int64  `json:"part_id"`
	PartName string `json:"part_name"`
	SKU      string `json:"sku"`
	Moved    int64  `json:"moved"`
}

// Summary is the dashboard headline block.
type Summary struct {
	Revenue         float64 `json:"revenue"`
	Invoices        int64   `json:"invoices"`
	StockValue      float64 `json:"stock_value"`
	DebtOutstanding float64 `json:"debt_outstanding"`
}
