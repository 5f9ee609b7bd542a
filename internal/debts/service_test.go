package debts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func due(asOf time.Time, daysAgo int) *time.Time {
	t := asOf.AddDate(0, 0, -daysAgo)
	return &t
}

func TestBucketizeAgingBoundaries(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	debts := []Debt{
		{Amount: 100, DueAt: nil},                 // no due date → current
		{Amount: 50, DueAt: due(asOf, -10)},       // due in the future → current
		{Amount: 200, DueAt: due(asOf, 0)},        // due today → current
		{Amount: 300, DueAt: due(asOf, 1)},        // 1 day → 1-30
		{Amount: 400, DueAt: due(asOf, 30)},       // boundary → 1-30
		{Amount: 500, DueAt: due(asOf, 31)},       // → 31-60
		{Amount: 600, DueAt: due(asOf, 90)},       // boundary → 61-90
		{Amount: 700, DueAt: due(asOf, 91)},       // → 91-120
		{Amount: 800, DueAt: due(asOf, 121)},      // → 120+
		{Amount: 900, PaidAmount: 900, DueAt: due(asOf, 200)}, // settled, excluded
	}

	report := BucketizeAging(debts, asOf)
	require.InDelta(t, 3650, report.Total, 0.001)

	byLabel := map[string]AgingBucket{}
	for _, b := range report.Buckets {
		byLabel[b.Label] = b
	}
	require.InDelta(t, 350, byLabel["current"].Amount, 0.001)
	require.Equal(t, 3, byLabel["current"].Count)
	require.InDelta(t, 700, byLabel["1-30"].Amount, 0.001)
	require.InDelta(t, 500, byLabel["31-60"].Amount, 0.001)
	require.InDelta(t, 600, byLabel["61-90"].Amount, 0.001)
	require.InDelta(t, 700, byLabel["91-120"].Amount, 0.001)
	require.InDelta(t, 800, byLabel["120+"].Amount, 0.001)
}

func TestBucketizeAgingUsesBalanceNotAmount(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	debts := []Debt{{Amount: 1000, PaidAmount: 400, DueAt: due(asOf, 45)}}

	report := BucketizeAging(debts, asOf)
	require.InDelta(t, 600, report.Total, 0.001)
	require.InDelta(t, 600, report.Buckets[2].Amount, 0.001)
}

func TestDebtBalance(t *testing.T) {
	d := Debt{Amount: 500000, PaidAmount: 125000}
	require.InDelta(t, 375000, d.Balance(), 0.001)
}
