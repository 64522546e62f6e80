package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinous-app/vinous-api/internal/aggregate"
	"github.com/vinous-app/vinous-api/internal/estimate"
	"github.com/vinous-app/vinous-api/internal/model"
	"github.com/vinous-app/vinous-api/internal/scan"
	"github.com/vinous-app/vinous-api/internal/sommelier"
	"github.com/vinous-app/vinous-api/internal/source"
	"github.com/vinous-app/vinous-api/pkg/anthropic"
)

type fakeStore struct {
	wines   []model.WineRecord
	listErr error
	saveErr error
	saved   *model.WineRecord
}

func (f *fakeStore) ListWines(ctx context.Context) ([]model.WineRecord, error) {
	return f.wines, f.listErr
}

func (f *fakeStore) SaveWine(ctx context.Context, rec model.WineRecord) ([]model.WineRecord, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	rec.ID = "saved-id"
	f.saved = &rec
	return []model.WineRecord{rec}, nil
}

func (f *fakeStore) Ping(ctx context.Context) error    { return nil }
func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

type fakeLLM struct {
	text string
	err  error
}

func (f *fakeLLM) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}},
	}, nil
}

type fixedRatingSource struct {
	name   string
	result *model.RatingResult
}

func (f *fixedRatingSource) Name() string { return f.name }

func (f *fixedRatingSource) LookupRating(ctx context.Context, req model.EnrichRequest) (*model.RatingResult, error) {
	return f.result, nil
}

type fixedPriceSource struct {
	name   string
	quotes *model.PriceQuote
}

func (f *fixedPriceSource) Name() string { return f.name }

func (f *fixedPriceSource) LookupPrice(ctx context.Context, req model.EnrichRequest) (*model.PriceQuote, error) {
	return f.quotes, nil
}

func newTestServer(t *testing.T, st *fakeStore, llm anthropic.Client, reg *source.Registry) http.Handler {
	t.Helper()
	if st == nil {
		st = &fakeStore{}
	}
	if llm == nil {
		llm = &fakeLLM{text: "{}"}
	}
	if reg == nil {
		reg = source.NewRegistry()
	}
	agg := aggregate.New(reg, estimate.NewEstimator(), time.Second)
	srv := New(st, scan.NewScanner(llm, "claude-haiku-4-5-20251001"), agg, sommelier.NewGenerator(llm, "claude-haiku-4-5-20251001"), NewNetworkProber("db.example.com", "https://example.com"))
	return srv.Router(nil)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRootAndHealth(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "Vinous API is running", body["message"])
	assert.Equal(t, "Vinous Wine Scanner", body["app"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeEnvelope(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "vinous-api", body["service"])
}

func multipartUpload(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="label.jpg"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestScanLabel_Success(t *testing.T) {
	llm := &fakeLLM{text: `{"name": "Barolo Riserva", "winery": "Conterno", "wine_type": "red"}`}
	h := newTestServer(t, nil, llm, nil)

	buf, ct := multipartUpload(t, "image/jpeg", []byte("fake-image-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan-wine-label", buf)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Wine label scanned successfully", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Barolo Riserva", data["name"])
	assert.Equal(t, "Conterno", data["winery"])
}

func TestScanLabel_RejectsNonImage(t *testing.T) {
	h := newTestServer(t, nil, &fakeLLM{text: "{}"}, nil)

	buf, ct := multipartUpload(t, "text/plain", []byte("not an image"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan-wine-label", buf)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "File must be an image", body["message"])
}

func TestScanLabel_MissingFile(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("other", "value"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan-wine-label", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanLabel_ModelFailure(t *testing.T) {
	h := newTestServer(t, nil, &fakeLLM{err: errors.New("model unavailable")}, nil)

	buf, ct := multipartUpload(t, "image/png", []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan-wine-label", buf)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "Error processing image")
}

func TestWineRating_FromSources(t *testing.T) {
	reg := source.NewRegistry()
	reg.RegisterRating(&fixedRatingSource{name: "Vivino", result: &model.RatingResult{
		Source: "Vivino", Rating: 4.2, MaxRating: 5.0, ReviewCount: 120, URL: "https://www.vivino.com/search?q=x",
	}})
	h := newTestServer(t, nil, nil, reg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wine-rating", strings.NewReader(`{"wine_name": "Opus One"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Wine rating retrieved successfully", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Vivino", data["source"])
	all := body["all_ratings"].([]any)
	assert.Len(t, all, 1)
}

func TestWineRating_EstimatedWhenNoSources(t *testing.T) {
	h := newTestServer(t, nil, nil, source.NewRegistry())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wine-rating", strings.NewReader(`{"wine_name": "Mystery Red"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Wine rating estimated (no online data found)", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Expert Estimate", data["source"])
}

func TestWineRating_MissingName(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wine-rating", strings.NewReader(`{"vintage": "2019"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "wine_name is required", body["message"])
}

func TestWinePrice_FromSources(t *testing.T) {
	reg := source.NewRegistry()
	reg.RegisterPrice(&fixedPriceSource{name: "Wine.com", quotes: &model.PriceQuote{
		Source: "Wine.com", Price: 24.99, Currency: "USD", Availability: "In Stock", URL: "https://wine.com",
	}})
	h := newTestServer(t, nil, nil, reg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wine-price", strings.NewReader(`{"wine_name": "Opus One"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "Wine prices retrieved successfully", body["message"])
	data := body["data"].(map[string]any)
	lowest := data["lowest_price"].(map[string]any)
	assert.Equal(t, 24.99, lowest["price"])
	prices := data["all_prices"].([]any)
	assert.Len(t, prices, 1)
}

func TestWinePrice_EstimatedWhenNoSources(t *testing.T) {
	h := newTestServer(t, nil, nil, source.NewRegistry())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wine-price", strings.NewReader(`{"wine_name": "Mystery Red"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "Wine price estimated (no online data found)", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Market Estimate", data["source"])
}

func TestTastingNotes_ModelPath(t *testing.T) {
	llm := &fakeLLM{text: "Aromas of dark cherry and leather with a long finish."}
	h := newTestServer(t, nil, llm, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasting-notes", strings.NewReader(`{"wine_name": "Barolo", "grape_variety": "Nebbiolo"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Tasting notes generated successfully", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "AI Sommelier", data["generated_by"])
}

func TestTastingNotes_FallbackOnModelError(t *testing.T) {
	h := newTestServer(t, nil, &fakeLLM{err: errors.New("quota exceeded")}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasting-notes", strings.NewReader(`{"wine_name": "Some Cab", "grape_variety": "Cabernet Sauvignon"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Fallback tasting notes provided", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Grape Profile Database", data["generated_by"])
}

func TestListWines(t *testing.T) {
	name := "Chianti Classico"
	st := &fakeStore{wines: []model.WineRecord{{ID: "w1", Name: &name}}}
	h := newTestServer(t, st, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/wines", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Retrieved 1 wines", body["message"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
}

func TestListWines_DatabaseError(t *testing.T) {
	st := &fakeStore{listErr: errors.New("connection refused")}
	h := newTestServer(t, st, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/wines", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "Database error")
	data := body["data"].([]any)
	assert.Empty(t, data)
}

func TestSaveWine(t *testing.T) {
	st := &fakeStore{}
	h := newTestServer(t, st, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wines", strings.NewReader(`{"name": "Rioja Reserva", "winery": "La Rioja Alta"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Wine saved successfully", body["message"])
	require.NotNil(t, st.saved)
	assert.Equal(t, "Rioja Reserva", *st.saved.Name)
}

func TestSaveWine_StorageError(t *testing.T) {
	st := &fakeStore{saveErr: errors.New("insert failed")}
	h := newTestServer(t, st, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wines", strings.NewReader(`{"name": "Rioja"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "Error saving wine")
}

func TestSaveWine_InvalidBody(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wines", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
