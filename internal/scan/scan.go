// Package scan turns a wine-label photo into a structured WineRecord via
// the vision model and the response normalizer.
package scan

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vinous-app/vinous-api/internal/model"
	"github.com/vinous-app/vinous-api/internal/normalize"
	"github.com/vinous-app/vinous-api/internal/resilience"
	"github.com/vinous-app/vinous-api/pkg/anthropic"
)

// ErrNotImage is returned when the upload is not an image. The check runs
// before any model call is made.
var ErrNotImage = eris.New("file must be an image")

const visionPrompt = `Analyze this wine label image and extract the following information. Return ONLY a valid JSON object without any markdown formatting or code blocks:
{
    "name": "wine name or null",
    "winery": "winery name or null",
    "vintage": "year or null",
    "region": "wine region or null",
    "country": "country or null",
    "grape_variety": "grape varieties or null",
    "alcohol_content": "alcohol percentage or null",
    "wine_type": "red/white/rosé/sparkling or null",
    "description": "brief description or null",
    "confidence": "confidence level 0-1"
}`

// Scanner extracts wine attributes from label images.
type Scanner struct {
	llm      anthropic.Client
	modelID  string
	retryCfg resilience.RetryConfig
}

// NewScanner creates a label scanner backed by the given vision model.
func NewScanner(llm anthropic.Client, modelID string) *Scanner {
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "scan_label")
	return &Scanner{llm: llm, modelID: modelID, retryCfg: retryCfg}
}

// Scan validates the upload, sends it to the vision model and normalizes
// the reply. Model failures are returned to the caller; malformed model
// output is absorbed by the normalizer and never surfaces as an error.
func (s *Scanner) Scan(ctx context.Context, imageData []byte, contentType string) (model.WineRecord, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return model.WineRecord{}, ErrNotImage
	}
	if len(imageData) == 0 {
		return model.WineRecord{}, eris.New("empty image upload")
	}

	encoded := base64.StdEncoding.EncodeToString(imageData)

	resp, err := resilience.DoVal(ctx, s.retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.llm.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.modelID,
			MaxTokens: 500,
			Messages: []anthropic.Message{{
				Role:    "user",
				Content: visionPrompt,
				Images: []anthropic.ImageSource{{
					MediaType:  contentType,
					Base64Data: encoded,
				}},
			}},
		})
	})
	if err != nil {
		return model.WineRecord{}, eris.Wrap(err, "scan: vision model call")
	}

	resp.Usage.LogCost(s.modelID, "scan_label")

	raw := resp.Text()
	zap.L().Debug("vision model reply", zap.Int("bytes", len(raw)))

	return normalize.Extract(raw), nil
}
