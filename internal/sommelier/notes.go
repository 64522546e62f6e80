// Package sommelier generates prose tasting notes for a wine, delegating
// to a language model with a canned grape-profile fallback.
package sommelier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vinous-app/vinous-api/internal/model"
	"github.com/vinous-app/vinous-api/internal/resilience"
	"github.com/vinous-app/vinous-api/pkg/anthropic"
)

// GeneratedBy tags identifying which path produced the notes.
const (
	GeneratedByModel    = "AI Sommelier"
	GeneratedByFallback = "Grape Profile Database"
)

const systemPrompt = `You are a professional sommelier and wine expert with decades of experience.
Generate detailed, authentic tasting notes for wines based on their characteristics.
Focus on aroma, flavor profile, texture, and finish. Be specific and use professional
wine tasting terminology. Keep it to 2-3 sentences that sound natural and expert-level.`

// grapeProfiles holds canned notes for the varieties we can describe
// without a model. Unknown varieties default to the sangiovese profile.
var grapeProfiles = map[string]string{
	"sangiovese":         "Medium-bodied with bright acidity and firm tannins. Notes of cherry, plum, and herbs with earthy undertones. The finish is persistent with hints of leather and tobacco.",
	"cabernet sauvignon": "Full-bodied with structured tannins and dark fruit flavors. Aromas of blackcurrant, cedar, and vanilla with a long, elegant finish showing notes of chocolate and spice.",
	"pinot noir":         "Light to medium-bodied with silky tannins. Delicate aromas of red cherry, strawberry, and violet with earthy minerality. The finish is smooth and refined.",
	"chardonnay":         "Medium to full-bodied with balanced acidity. Flavors of green apple, citrus, and mineral notes. Creamy texture with a clean, refreshing finish.",
	"merlot":             "Medium to full-bodied with soft tannins. Rich flavors of black cherry, plum, and chocolate with hints of herbs and vanilla. Smooth, approachable finish.",
}

const defaultProfile = "sangiovese"

// Generator produces tasting notes for wine descriptors.
type Generator struct {
	llm      anthropic.Client
	modelID  string
	retryCfg resilience.RetryConfig
	now      func() time.Time
}

// NewGenerator creates a tasting-note generator backed by the given model.
func NewGenerator(llm anthropic.Client, modelID string) *Generator {
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "tasting_notes")
	return &Generator{
		llm:      llm,
		modelID:  modelID,
		retryCfg: retryCfg,
		now:      time.Now,
	}
}

// WithNow sets the clock used for generated_at timestamps, for tests.
func (g *Generator) WithNow(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate returns 2-3 sentences of tasting notes. The model path is
// tried first; any failure falls back to the grape-profile dictionary so
// the caller always gets usable content.
func (g *Generator) Generate(ctx context.Context, req model.EnrichRequest) model.TastingNotes {
	notes, err := g.fromModel(ctx, req)
	if err != nil {
		zap.L().Warn("tasting notes model call failed, using grape profile",
			zap.String("wine", req.WineName),
			zap.Error(err),
		)
		return model.TastingNotes{
			TastingNotes: profileFor(req.GrapeVariety),
			GeneratedBy:  GeneratedByFallback,
			WineContext:  req,
			GeneratedAt:  g.now().UTC(),
		}
	}
	return model.TastingNotes{
		TastingNotes: notes,
		GeneratedBy:  GeneratedByModel,
		WineContext:  req,
		GeneratedAt:  g.now().UTC(),
	}
}

func (g *Generator) fromModel(ctx context.Context, req model.EnrichRequest) (string, error) {
	temp := 0.7
	msg := anthropic.MessageRequest{
		Model:       g.modelID,
		MaxTokens:   200,
		Temperature: &temp,
		System:      []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: userPrompt(req),
		}},
	}

	resp, err := resilience.DoVal(ctx, g.retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.llm.CreateMessage(ctx, msg)
	})
	if err != nil {
		return "", err
	}

	resp.Usage.LogCost(g.modelID, "tasting_notes")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

var errEmptyResponse = fmt.Errorf("model returned no text")

func userPrompt(req model.EnrichRequest) string {
	orUnknown := func(v string) string {
		if v == "" {
			return "Unknown"
		}
		return v
	}
	context := fmt.Sprintf(`Wine Name: %s
Winery: %s
Grape Variety: %s
Wine Type: %s
Region: %s, %s
Vintage: %s
Alcohol Content: %s`,
		req.WineName,
		orUnknown(req.Winery),
		orUnknown(req.GrapeVariety),
		orUnknown(req.WineType),
		orUnknown(req.Region), orUnknown(req.Country),
		orUnknown(req.Vintage),
		orUnknown(req.AlcoholContent),
	)

	return fmt.Sprintf(`Generate professional tasting notes for this wine:

%s

Please provide detailed tasting notes covering aroma, palate, and finish.
Make it sound authentic and professional, as if written by a sommelier.`, context)
}

func profileFor(grapeVariety string) string {
	if p, ok := grapeProfiles[strings.ToLower(grapeVariety)]; ok {
		return p
	}
	return grapeProfiles[defaultProfile]
}
