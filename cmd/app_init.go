package main

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vinous-app/vinous-api/internal/aggregate"
	"github.com/vinous-app/vinous-api/internal/estimate"
	"github.com/vinous-app/vinous-api/internal/scan"
	"github.com/vinous-app/vinous-api/internal/server"
	"github.com/vinous-app/vinous-api/internal/sommelier"
	"github.com/vinous-app/vinous-api/internal/source"
	"github.com/vinous-app/vinous-api/internal/store"
	anthropicpkg "github.com/vinous-app/vinous-api/pkg/anthropic"
)

// appEnv holds the initialized store and HTTP server shared by the
// serve command. Callers should defer env.Close().
type appEnv struct {
	Store  store.Store
	Server *server.Server
}

// Close releases resources held by the application environment.
func (ae *appEnv) Close() {
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// initApp sets up the store, the Anthropic client, the source registry
// and the HTTP server.
func initApp(ctx context.Context) (*appEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (VINOUS_ANTHROPIC_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	llm := anthropicpkg.NewClient(cfg.Anthropic.Key,
		anthropicpkg.WithRequestTimeout(time.Duration(cfg.Anthropic.RequestTimeoutSecs)*time.Second),
		anthropicpkg.WithRateLimit(cfg.Anthropic.RequestsPerSecond),
	)

	reg, estimator := buildSources()
	agg := aggregate.New(reg, estimator, time.Duration(cfg.Sources.LookupTimeoutSecs)*time.Second)

	scanner := scan.NewScanner(llm, cfg.Anthropic.VisionModel)
	notes := sommelier.NewGenerator(llm, cfg.Anthropic.NotesModel)
	prober := server.NewNetworkProber(cfg.Debug.ProbeHost, cfg.Debug.ProbeSite)

	zap.L().Info("application initialized",
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("vision_model", cfg.Anthropic.VisionModel),
		zap.Int("rating_sources", len(reg.Ratings())),
		zap.Int("price_sources", len(reg.Prices())),
	)

	return &appEnv{
		Store:  st,
		Server: server.New(st, scanner, agg, notes, prober),
	}, nil
}

// PCG stream ids for seeded runs. Each generator needs a distinct
// stream since lookups run concurrently; the estimator sits past the
// retailer range (retailerStreamBase + 3).
const (
	vivinoStream       uint64 = 1
	spectatorStream    uint64 = 2
	retailerStreamBase uint64 = 3
	estimatorStream    uint64 = 10
)

// buildSources registers the lookup sources and builds the fallback
// estimator. A nonzero configured seed makes results reproducible.
func buildSources() (*source.Registry, *estimate.Estimator) {
	delay := source.WithDelay(time.Duration(cfg.Sources.MockDelayMs) * time.Millisecond)
	seed := uint64(cfg.Sources.Seed)

	mockOpts := func(stream uint64) []source.MockOption {
		opts := []source.MockOption{delay}
		if seed != 0 {
			opts = append(opts, source.WithRand(rand.New(rand.NewPCG(seed, stream))))
		}
		return opts
	}

	reg := source.NewRegistry()
	reg.RegisterRating(source.NewMockVivino(mockOpts(vivinoStream)...))
	reg.RegisterRating(source.NewMockSpectator(mockOpts(spectatorStream)...))
	for i, r := range source.RetailerNames {
		reg.RegisterPrice(source.NewMockRetailer(r.Name, r.Markup, mockOpts(retailerStreamBase+uint64(i))...))
	}

	var estOpts []estimate.Option
	if seed != 0 {
		estOpts = append(estOpts, estimate.WithRand(rand.New(rand.NewPCG(seed, estimatorStream))))
	}
	return reg, estimate.NewEstimator(estOpts...)
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("database URL is required (VINOUS_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
