package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinous-app/vinous-api/internal/config"
	"github.com/vinous-app/vinous-api/internal/model"
	"github.com/vinous-app/vinous-api/internal/source"
)

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", SQLitePath: "test.db"},
		Anthropic: config.AnthropicConfig{
			Key:                "sk-test",
			VisionModel:        "claude-haiku-4-5-20251001",
			NotesModel:         "claude-haiku-4-5-20251001",
			RequestTimeoutSecs: 60,
			RequestsPerSecond:  2,
		},
		Sources: config.SourcesConfig{LookupTimeoutSecs: 10, MockDelayMs: 0, Seed: 42},
		Server:  config.ServerConfig{Port: 8000},
		Log:     config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestBuildSourcesRegistersFixedProviders(t *testing.T) {
	cfg = testConfig()

	reg, estimator := buildSources()
	require.NotNil(t, estimator)
	assert.Len(t, reg.Ratings(), 2)
	assert.Len(t, reg.Prices(), 4)

	names := make([]string, 0, 4)
	for _, p := range reg.Prices() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"Wine.com", "Total Wine", "Vivino Marketplace", "Wine-Searcher"}, names)
}

func TestBuildSourcesSeedIsReproducible(t *testing.T) {
	cfg = testConfig()
	req := model.EnrichRequest{WineName: "Barolo", Vintage: "2012", Region: "Piedmont"}

	regA, _ := buildSources()
	regB, _ := buildSources()

	a, err := regA.Ratings()[0].LookupRating(context.Background(), req)
	require.NoError(t, err)
	b, err := regB.Ratings()[0].LookupRating(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.Rating, b.Rating)
	assert.Equal(t, a.ReviewCount, b.ReviewCount)
}

func TestBuildSourcesStreamsAreDistinct(t *testing.T) {
	lastRetailer := retailerStreamBase + uint64(len(source.RetailerNames)) - 1

	streams := []uint64{vivinoStream, spectatorStream}
	for i := range source.RetailerNames {
		streams = append(streams, retailerStreamBase+uint64(i))
	}
	streams = append(streams, estimatorStream)

	seen := make(map[uint64]bool)
	for _, s := range streams {
		assert.False(t, seen[s], "stream %d assigned twice", s)
		seen[s] = true
	}

	// The estimator must not share a stream with any retailer.
	assert.Greater(t, estimatorStream, lastRetailer)
}

func TestInitStoreSQLite(t *testing.T) {
	cfg = testConfig()
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "wines.db")

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Ping(context.Background()))
}

func TestInitStorePostgresRequiresURL(t *testing.T) {
	cfg = testConfig()
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""

	_, err := initStore(context.Background())
	assert.ErrorContains(t, err, "database URL is required")
}

func TestInitStoreUnsupportedDriver(t *testing.T) {
	cfg = testConfig()
	cfg.Store.Driver = "dynamo"

	_, err := initStore(context.Background())
	assert.ErrorContains(t, err, "unsupported store driver")
}
