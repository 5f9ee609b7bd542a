package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// RepositoryPort abstracts the reporting queries.
type RepositoryPort interface {
	RevenueByDay(ctx context.Context, branchID int64, from, to time.Time) ([]RevenuePoint, error)
	StockValuation(ctx context.Context, branchID int64) ([]ValuationRow, error)
	TopPartsByMovement(ctx context.Context, branchID int64, from, to time.Time, limit int) ([]TopPart, error)
	DebtOutstanding(ctx context.Context) (float64, error)
}

// Service coordinates analytics query execution with the cache layer.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService wires a RepositoryPort with a Cache helper.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// InvalidateCache bumps the cache version. Write paths call this after
// commit so the next dashboard read recomputes.
func (s *Service) InvalidateCache(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Revenue returns daily revenue for the range.
func (s *Service) Revenue(ctx context.Context, branchID int64, from, to time.Time) (RevenueReport, error) {
	key, err := s.cache.BuildKey(ctx, keyRevenue(branchID, from.Format("2006-01-02"), to.Format("2006-01-02")))
	if err != nil {
		return RevenueReport{}, err
	}
	var report RevenueReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		points, err := s.repo.RevenueByDay(ctx, branchID, from, to)
		if err != nil {
			return nil, err
		}
		r := RevenueReport{From: from, To: to, Points: points}
		for _, p := range points {
			r.Total += p.Revenue
		}
		return r, nil
	})
	return report, err
}

// Valuation returns per-branch stock value at cost.
func (s *Service) Valuation(ctx context.Context, branchID int64) ([]ValuationRow, error) {
	key, err := s.cache.BuildKey(ctx, keyValuation(branchID))
	if err != nil {
		return nil, err
	}
	var rows []ValuationRow
	err = s.cache.FetchJSON(ctx, key, &rows, func(ctx context.Context) (interface{}, error) {
		return s.repo.StockValuation(ctx, branchID)
	})
	return rows, err
}

// TopParts ranks parts by ledger movement.
func (s *Service) TopParts(ctx context.Context, branchID int64, from, to time.Time, limit int) ([]TopPart, error) {
	key, err := s.cache.BuildKey(ctx, keyTopParts(branchID, from.Format("2006-01-02"), to.Format("2006-01-02")))
	if err != nil {
		return nil, err
	}
	var parts []TopPart
	err = s.cache.FetchJSON(ctx, key, &parts, func(ctx context.Context) (interface{}, error) {
		return s.repo.TopPartsByMovement(ctx, branchID, from, to, limit)
	})
	return parts, err
}

// Summarize builds the dashboard headline block. Not cached as a whole;
// its inputs are.
func (s *Service) Summarize(ctx context.Context, branchID int64, from, to time.Time) (Summary, error) {
	var (
		revenue   RevenueReport
		valuation []ValuationRow
		debt      float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		revenue, err = s.Revenue(gctx, branchID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		valuation, err = s.Valuation(gctx, branchID)
		return err
	})
	g.Go(func() error {
		var err error
		debt, err = s.repo.DebtOutstanding(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	sum := Summary{Revenue: revenue.Total, DebtOutstanding: debt}
	for _, p := range revenue.Points {
		sum.Invoices += p.Orders
	}
	for _, v := range valuation {
		sum.StockValue += v.Value
	}
	return sum, nil
}
