// Package store persists scanned wines.
package store

import (
	"context"

	"github.com/vinous-app/vinous-api/internal/model"
)

// Store defines the persistence interface for the wines table.
type Store interface {
	// ListWines returns every saved wine, newest first.
	ListWines(ctx context.Context) ([]model.WineRecord, error)
	// SaveWine inserts a record with nil fields stripped and returns the
	// inserted row(s) as read back from the store.
	SaveWine(ctx context.Context, rec model.WineRecord) ([]model.WineRecord, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// wineColumns is the fixed column order used by selects and RETURNING
// clauses across both store implementations.
const wineColumns = "id, name, winery, vintage, region, country, grape_variety, alcohol_content, wine_type, description, confidence"
