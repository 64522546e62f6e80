package source

import (
	"context"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vinous-app/vinous-api/internal/model"
)

// The providers below are placeholder implementations that synthesize
// plausible responses from wine characteristics plus bounded randomness.
// They hold the RatingSource/PriceSource slots until real integrations
// land.

// MockOption configures a mock provider.
type MockOption func(*mockConfig)

// lockedRand guards a rand.Rand for concurrent lookups.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

type mockConfig struct {
	rng     *lockedRand
	delay   time.Duration
	nowYear int
}

func newMockConfig(opts []MockOption) mockConfig {
	cfg := mockConfig{
		rng:     &lockedRand{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))},
		nowYear: time.Now().Year(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithRand sets the random source, letting tests pass a fixed seed.
func WithRand(rng *rand.Rand) MockOption {
	return func(c *mockConfig) { c.rng = &lockedRand{rng: rng} }
}

// WithDelay sets the simulated provider latency. Zero means no delay.
func WithDelay(d time.Duration) MockOption {
	return func(c *mockConfig) { c.delay = d }
}

// WithYear fixes the current year used for vintage-age adjustments.
func WithYear(year int) MockOption {
	return func(c *mockConfig) { c.nowYear = year }
}

// sleep waits for the simulated latency, honoring cancellation.
func (c *mockConfig) sleep(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// uniform returns a random float64 in [lo, hi).
func (c *mockConfig) uniform(lo, hi float64) float64 {
	return lo + c.rng.Float64()*(hi-lo)
}

// intBetween returns a random int in [lo, hi] inclusive.
func (c *mockConfig) intBetween(lo, hi int) int {
	return lo + c.rng.IntN(hi-lo+1)
}

func searchURL(domain, wineName string) string {
	return "https://" + domain + "/search/" + strings.ReplaceAll(wineName, " ", "-")
}

func containsAny(haystack string, needles []string) bool {
	haystack = strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// MockVivino synthesizes community-style ratings on a 5-point scale.
type MockVivino struct {
	cfg mockConfig
}

// NewMockVivino creates the Vivino placeholder rating source.
func NewMockVivino(opts ...MockOption) *MockVivino {
	return &MockVivino{cfg: newMockConfig(opts)}
}

func (s *MockVivino) Name() string { return "Vivino" }

func (s *MockVivino) LookupRating(ctx context.Context, req model.EnrichRequest) (*model.RatingResult, error) {
	if err := s.cfg.sleep(ctx); err != nil {
		return nil, err
	}

	base := 3.8
	if year, err := strconv.Atoi(req.Vintage); err == nil && year < 2015 {
		base += 0.2
	}
	if containsAny(req.Winery, []string{"dom perignon", "opus one", "screaming eagle"}) {
		base += 0.5
	}
	rating := math.Min(base+s.cfg.uniform(-0.3, 0.4), 5.0)

	return &model.RatingResult{
		Rating:      round1(rating),
		MaxRating:   5.0,
		Source:      s.Name(),
		ReviewCount: s.cfg.intBetween(50, 500),
		URL:         searchURL("vivino.com", req.WineName),
	}, nil
}

// MockSpectator synthesizes professional-style reviews on a 100-point scale.
type MockSpectator struct {
	cfg mockConfig
}

// NewMockSpectator creates the Wine Spectator placeholder rating source.
func NewMockSpectator(opts ...MockOption) *MockSpectator {
	return &MockSpectator{cfg: newMockConfig(opts)}
}

func (s *MockSpectator) Name() string { return "Wine Spectator" }

func (s *MockSpectator) LookupRating(ctx context.Context, req model.EnrichRequest) (*model.RatingResult, error) {
	if err := s.cfg.sleep(ctx); err != nil {
		return nil, err
	}

	base := 85
	if year, err := strconv.Atoi(req.Vintage); err == nil && year < 2015 {
		base += 3
	}
	if containsAny(req.Winery, []string{"caymus", "silver oak", "opus one"}) {
		base += 5
	}
	rating := min(base+s.cfg.intBetween(-5, 8), 100)

	return &model.RatingResult{
		Rating:      float64(rating),
		MaxRating:   100,
		Source:      s.Name(),
		ReviewCount: 1,
		Description: "Professional review for " + req.WineName,
		URL:         searchURL("winespectator.com", req.WineName),
	}, nil
}

// MockRetailer synthesizes a single price quote for one named retailer,
// applying a per-retailer markup over a shared characteristic-based base.
type MockRetailer struct {
	name   string
	markup float64
	cfg    mockConfig
}

// RetailerNames lists the fixed set of placeholder retailers with their
// markup factors, in query order.
var RetailerNames = []struct {
	Name   string
	Markup float64
}{
	{"Wine.com", 1.0},
	{"Total Wine", 0.85},
	{"Vivino Marketplace", 0.95},
	{"Wine-Searcher", 1.1},
}

// NewMockRetailer creates a placeholder price source for one retailer.
func NewMockRetailer(name string, markup float64, opts ...MockOption) *MockRetailer {
	return &MockRetailer{name: name, markup: markup, cfg: newMockConfig(opts)}
}

// NewMockRetailers creates the fixed four-retailer set.
func NewMockRetailers(opts ...MockOption) []PriceSource {
	out := make([]PriceSource, 0, len(RetailerNames))
	for _, r := range RetailerNames {
		out = append(out, NewMockRetailer(r.Name, r.Markup, opts...))
	}
	return out
}

func (s *MockRetailer) Name() string { return s.name }

func (s *MockRetailer) LookupPrice(ctx context.Context, req model.EnrichRequest) (*model.PriceQuote, error) {
	if err := s.cfg.sleep(ctx); err != nil {
		return nil, err
	}

	base := 25.0
	if containsAny(req.Region, []string{"napa", "bordeaux", "burgundy", "champagne"}) {
		base *= 3
	} else if containsAny(req.Region, []string{"chianti", "rioja", "rhone"}) {
		base *= 1.5
	}
	if year, err := strconv.Atoi(req.Vintage); err == nil && year < s.cfg.nowYear-10 {
		base *= 1.5
	}

	availability := "In Stock"
	if s.cfg.rng.Float64() <= 0.2 {
		availability = "Limited"
	}

	domain := strings.ReplaceAll(strings.ToLower(s.name), " ", "") + ".com"
	return &model.PriceQuote{
		Price:        round2(base * s.markup * s.cfg.uniform(0.9, 1.2)),
		Currency:     "USD",
		Source:       s.name,
		Availability: availability,
		URL:          searchURL(domain, req.WineName),
	}, nil
}
