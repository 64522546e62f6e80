// Package server exposes the HTTP surface of the API: label scanning,
// rating/price enrichment, tasting notes, and saved-wine persistence.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/vinous-app/vinous-api/internal/aggregate"
	"github.com/vinous-app/vinous-api/internal/model"
	"github.com/vinous-app/vinous-api/internal/scan"
	"github.com/vinous-app/vinous-api/internal/sommelier"
	"github.com/vinous-app/vinous-api/internal/store"
)

// DefaultMaxUploadBytes caps label image uploads at 10 MiB.
const DefaultMaxUploadBytes = 10 << 20

// Server holds the long-lived collaborators shared by all requests.
type Server struct {
	store          store.Store
	scanner        *scan.Scanner
	agg            *aggregate.Aggregator
	notes          *sommelier.Generator
	prober         *NetworkProber
	maxUploadBytes int64
}

// New creates a Server over the injected collaborators.
func New(st store.Store, scanner *scan.Scanner, agg *aggregate.Aggregator, notes *sommelier.Generator, prober *NetworkProber) *Server {
	return &Server{
		store:          st,
		scanner:        scanner,
		agg:            agg,
		notes:          notes,
		prober:         prober,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Router assembles the chi router with CORS and request logging.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	r.Use(requestLogger)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/debug/network", s.handleDebugNetwork)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scan-wine-label", s.handleScanLabel)
		r.Post("/wine-rating", s.handleWineRating)
		r.Post("/wine-price", s.handleWinePrice)
		r.Post("/tasting-notes", s.handleTastingNotes)
		r.Get("/wines", s.handleListWines)
		r.Post("/wines", s.handleSaveWine)
	})

	return r
}

// envelope is the response shape of every /api/v1 endpoint. AllRatings
// is populated only by the rating endpoint, mirroring the mobile
// client's expectations.
type envelope struct {
	Success    bool                 `json:"success"`
	Data       any                  `json:"data"`
	AllRatings []model.RatingResult `json:"all_ratings,omitempty"`
	Message    string               `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

// requestLogger logs one line per request with method, path, status and
// duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
