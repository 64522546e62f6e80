// Package source defines the interfaces and implementations for external
// rating and price providers.
package source

import (
	"context"
	"sync"

	"github.com/vinous-app/vinous-api/internal/model"
)

// RatingSource looks up a rating for a wine from one provider. A nil
// result with a nil error means the provider had no data for the wine.
type RatingSource interface {
	// Name returns the provider identifier used in results and logs.
	Name() string
	// LookupRating fetches a rating candidate for the wine.
	LookupRating(ctx context.Context, req model.EnrichRequest) (*model.RatingResult, error)
}

// PriceSource looks up a retail price for a wine from one provider. A nil
// quote with a nil error means the provider has no listing.
type PriceSource interface {
	// Name returns the provider identifier used in results and logs.
	Name() string
	// LookupPrice fetches a price quote for the wine.
	LookupPrice(ctx context.Context, req model.EnrichRequest) (*model.PriceQuote, error)
}

// Registry manages the configured rating and price sources. Real
// integrations register here in place of the mock providers without
// touching the aggregation logic.
type Registry struct {
	mu      sync.RWMutex
	ratings []RatingSource
	prices  []PriceSource
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterRating adds a rating source to the registry.
func (r *Registry) RegisterRating(s RatingSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratings = append(r.ratings, s)
}

// RegisterPrice adds a price source to the registry.
func (r *Registry) RegisterPrice(s PriceSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices = append(r.prices, s)
}

// Ratings returns the registered rating sources in registration order.
func (r *Registry) Ratings() []RatingSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RatingSource, len(r.ratings))
	copy(out, r.ratings)
	return out
}

// Prices returns the registered price sources in registration order.
func (r *Registry) Prices() []PriceSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PriceSource, len(r.prices))
	copy(out, r.prices)
	return out
}
