package market

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/syntick/syntick/pkg/models"
)

// BatchRequest names one ticker in a batch call.
type BatchRequest struct {
	Ticker     string
	Name       string
	WindowDays int
}

// BatchResult pairs a request with its outcome. Err is per-ticker; one
// failed ticker never aborts the rest of the batch.
type BatchResult struct {
	Ticker  string
	Metrics *models.FinancialMetrics
	Err     error
}

// BatchMetrics assembles metrics for several tickers with bounded
// parallelism. Results keep request order.
func (s *Service) BatchMetrics(ctx context.Context, requests []BatchRequest) []BatchResult {
	results := make([]BatchResult, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			m, err := s.Metrics(gctx, req.Ticker, req.Name, req.WindowDays)
			results[i] = BatchResult{Ticker: req.Ticker, Metrics: m, Err: err}
			return nil // non-fatal
		})
	}
	// Workers only ever return nil; Wait is just the join point.
	_ = g.Wait()

	return results
}
