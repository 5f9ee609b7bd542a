package analytics

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	points         []RevenuePoint
	revenueCalls   int
	valuation      []ValuationRow
	valuationCalls int
	topParts       []TopPart
	topCalls       int
	debt           float64
}

func (m *mockRepo) RevenueByDay(context.Context, int64, time.Time, time.Time) ([]RevenuePoint, error) {
	m.revenueCalls++
	return m.points, nil
}

func (m *mockRepo) StockValuation(context.Context, int64) ([]ValuationRow, error) {
	m.valuationCalls++
	return m.valuation, nil
}

func (m *mockRepo) TopPartsByMovement(context.Context, int64, time.Time, time.Time, int) ([]TopPart, error) {
	m.topCalls++
	return m.topParts, nil
}

func (m *mockRepo) DebtOutstanding(context.Context) (float64, error) {
	return m.debt, nil
}

func newTestService(t *testing.T, repo RepositoryPort) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

func TestRevenueCaches(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockRepo{points: []RevenuePoint{
		{Day: day, Revenue: 1200000, Orders: 4},
		{Day: day.AddDate(0, 0, 1), Revenue: 800000, Orders: 2},
	}}
	svc := newTestService(t, repo)
	ctx := context.Background()
	from, to := day, day.AddDate(0, 0, 7)

	report, err := svc.Revenue(ctx, 1, from, to)
	require.NoError(t, err)
	require.InDelta(t, 2000000, report.Total, 0.001)
	require.Len(t, report.Points, 2)
	require.Equal(t, 1, repo.revenueCalls)

	// second read is served from cache
	_, err = svc.Revenue(ctx, 1, from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.revenueCalls)
}

func TestBumpInvalidates(t *testing.T) {
	repo := &mockRepo{valuation: []ValuationRow{{BranchID: 1, BranchName: "Chi nhánh 1", Units: 50, Value: 12000000}}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.Valuation(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Valuation(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, repo.valuationCalls)

	require.NoError(t, svc.InvalidateCache(ctx))

	_, err = svc.Valuation(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, repo.valuationCalls, "version bump must force a reload")
}

func TestSummarizeCombinesInputs(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		points:    []RevenuePoint{{Day: day, Revenue: 500000, Orders: 3}},
		valuation: []ValuationRow{{BranchID: 1, Value: 7000000}, {BranchID: 2, Value: 3000000}},
		debt:      1500000,
	}
	svc := newTestService(t, repo)

	sum, err := svc.Summarize(context.Background(), 0, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.InDelta(t, 500000, sum.Revenue, 0.001)
	require.EqualValues(t, 3, sum.Invoices)
	require.InDelta(t, 10000000, sum.StockValue, 0.001)
	require.InDelta(t, 1500000, sum.DebtOutstanding, 0.001)
}

func TestCacheNilClientDegradesToLoader(t *testing.T) {
	repo := &mockRepo{topParts: []TopPart{{PartID: 1, PartName: "Nhớt", Moved: 40}}}
	svc := NewService(repo, nil)

	parts, err := svc.TopParts(context.Background(), 0, time.Now().AddDate(0, 0, -7), time.Now(), 5)
	require.NoError(t, err)
	require.Len(t, parts, 1)
}
