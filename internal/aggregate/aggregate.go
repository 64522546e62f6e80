// Package aggregate fans out enrichment lookups to the configured sources
// and reduces the partial results to a single answer, falling back to a
// heuristic estimate when nothing usable comes back.
package aggregate

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vinous-app/vinous-api/internal/estimate"
	"github.com/vinous-app/vinous-api/internal/model"
	"github.com/vinous-app/vinous-api/internal/source"
)

// DefaultLookupTimeout bounds each source lookup so a hung provider can
// never stall a request; a timed-out lookup counts as a failed source.
const DefaultLookupTimeout = 10 * time.Second

// Aggregator coordinates multi-source rating and price lookups.
type Aggregator struct {
	registry      *source.Registry
	estimator     *estimate.Estimator
	lookupTimeout time.Duration
}

// New creates an aggregator over the registered sources.
func New(registry *source.Registry, estimator *estimate.Estimator, lookupTimeout time.Duration) *Aggregator {
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}
	return &Aggregator{
		registry:      registry,
		estimator:     estimator,
		lookupTimeout: lookupTimeout,
	}
}

// RatingOutcome is the reduced answer for a rating query.
type RatingOutcome struct {
	Best model.RatingResult
	// All holds every successful candidate; empty when Estimated.
	All []model.RatingResult

	// Estimated is true when every source failed or had no data and Best
	// is a heuristic estimate.
	Estimated bool
}

// Rating queries every rating source concurrently and selects the
// candidate with the highest raw rating value. Source failures are
// non-fatal; when no candidates survive, a heuristic estimate is
// returned instead.
//
// The raw-value comparison deliberately ignores that sources use
// different scales (5-point community vs 100-point professional), so a
// 100-point score always outranks a 5-point one. Kept as is until the
// scoring semantics are settled.
func (a *Aggregator) Rating(ctx context.Context, req model.EnrichRequest) RatingOutcome {
	sources := a.registry.Ratings()
	results := make([]*model.RatingResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			res, err := a.lookupRating(gctx, src, req)
			if err != nil {
				zap.L().Warn("rating source failed",
					zap.String("source", src.Name()),
					zap.String("wine", req.WineName),
					zap.Error(err),
				)
				return nil // non-fatal
			}
			results[i] = res
			return nil
		})
	}
	// Lookup errors are absorbed above; wait for every source to finish
	// before reducing.
	_ = g.Wait()

	var candidates []model.RatingResult
	for _, r := range results {
		if r != nil {
			candidates = append(candidates, *r)
		}
	}

	if len(candidates) == 0 {
		return RatingOutcome{Best: a.estimator.Rating(req), Estimated: true}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Rating > best.Rating {
			best = c
		}
	}
	return RatingOutcome{Best: best, All: candidates}
}

func (a *Aggregator) lookupRating(ctx context.Context, src source.RatingSource, req model.EnrichRequest) (res *model.RatingResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, eris.Errorf("rating source panic: %v", r)
		}
	}()
	return src.LookupRating(ctx, req)
}

// PriceOutcome is the reduced answer for a price query.
type PriceOutcome struct {
	// Summary holds the live-quote reduction; nil when Estimated.
	Summary *model.PriceSummary
	// Estimate holds the heuristic fallback quote when no live quotes
	// were found.
	Estimate  *model.PriceQuote
	Estimated bool
}

// Price queries every price source concurrently, sorts the surviving
// quotes ascending by price and reduces them to average plus lowest.
// When no quotes survive, a heuristic estimate is returned instead.
func (a *Aggregator) Price(ctx context.Context, req model.EnrichRequest) PriceOutcome {
	sources := a.registry.Prices()
	results := make([]*model.PriceQuote, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			quote, err := a.lookupPrice(gctx, src, req)
			if err != nil {
				zap.L().Warn("price source failed",
					zap.String("source", src.Name()),
					zap.String("wine", req.WineName),
					zap.Error(err),
				)
				return nil // non-fatal
			}
			results[i] = quote
			return nil
		})
	}
	_ = g.Wait()

	var quotes []model.PriceQuote
	for _, q := range results {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}

	if len(quotes) == 0 {
		est := a.estimator.Price(req)
		return PriceOutcome{Estimate: &est, Estimated: true}
	}

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Price < quotes[j].Price })

	sum := 0.0
	for _, q := range quotes {
		sum += q.Price
	}
	avg := math.Round(sum/float64(len(quotes))*100) / 100

	return PriceOutcome{
		Summary: &model.PriceSummary{
			AveragePrice: avg,
			LowestPrice:  quotes[0],
			AllPrices:    quotes,
			Currency:     "USD",
			UpdatedAt:    time.Now().UTC(),
		},
	}
}

func (a *Aggregator) lookupPrice(ctx context.Context, src source.PriceSource, req model.EnrichRequest) (quote *model.PriceQuote, err error) {
	ctx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			quote, err = nil, eris.Errorf("price source panic: %v", r)
		}
	}()
	return src.LookupPrice(ctx, req)
}
