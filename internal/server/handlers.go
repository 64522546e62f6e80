package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/vinous-app/vinous-api/internal/model"
	"github.com/vinous-app/vinous-api/internal/scan"
	"github.com/vinous-app/vinous-api/internal/sommelier"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Vinous API is running",
		"app":     "Vinous Wine Scanner",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "vinous-api",
	})
}

func (s *Server) handleDebugNetwork(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prober.Probe(r.Context()))
}

func (s *Server) handleScanLabel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Invalid multipart upload"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Missing file upload"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Could not read upload"})
		return
	}

	record, err := s.scanner.Scan(r.Context(), imageData, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, scan.ErrNotImage) {
			writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "File must be an image"})
			return
		}
		zap.L().Error("scan wine label", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: fmt.Sprintf("Error processing image: %s", err)})
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    record,
		Message: "Wine label scanned successfully",
	})
}

func (s *Server) handleWineRating(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEnrichRequest(w, r)
	if !ok {
		return
	}

	out := s.agg.Rating(r.Context(), req)
	msg := "Wine rating retrieved successfully"
	if out.Estimated {
		msg = "Wine rating estimated (no online data found)"
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       out.Best,
		AllRatings: out.All,
		Message:    msg,
	})
}

func (s *Server) handleWinePrice(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEnrichRequest(w, r)
	if !ok {
		return
	}

	out := s.agg.Price(r.Context(), req)
	if out.Estimated {
		writeJSON(w, http.StatusOK, envelope{
			Success: true,
			Data:    out.Estimate,
			Message: "Wine price estimated (no online data found)",
		})
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    out.Summary,
		Message: "Wine prices retrieved successfully",
	})
}

func (s *Server) handleTastingNotes(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEnrichRequest(w, r)
	if !ok {
		return
	}

	notes := s.notes.Generate(r.Context(), req)
	msg := "Tasting notes generated successfully"
	if notes.GeneratedBy == sommelier.GeneratedByFallback {
		msg = "Fallback tasting notes provided"
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: notes, Message: msg})
}

func (s *Server) handleListWines(w http.ResponseWriter, r *http.Request) {
	wines, err := s.store.ListWines(r.Context())
	if err != nil {
		zap.L().Error("list wines", zap.Error(err))
		writeJSON(w, http.StatusOK, envelope{
			Success: false,
			Data:    []model.WineRecord{},
			Message: fmt.Sprintf("Database error: %s", err),
		})
		return
	}
	if wines == nil {
		wines = []model.WineRecord{}
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    wines,
		Message: fmt.Sprintf("Retrieved %d wines", len(wines)),
	})
}

func (s *Server) handleSaveWine(w http.ResponseWriter, r *http.Request) {
	var rec model.WineRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Invalid request body"})
		return
	}

	saved, err := s.store.SaveWine(r.Context(), rec)
	if err != nil {
		zap.L().Error("save wine", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, envelope{
			Success: false,
			Message: fmt.Sprintf("Error saving wine: %s", err),
		})
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    saved,
		Message: "Wine saved successfully",
	})
}

// decodeEnrichRequest parses the shared enrichment payload and rejects
// requests without a wine name. It writes the error response itself and
// returns ok=false when the caller should stop.
func decodeEnrichRequest(w http.ResponseWriter, r *http.Request) (model.EnrichRequest, bool) {
	var req model.EnrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Invalid request body"})
		return req, false
	}
	if req.WineName == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "wine_name is required"})
		return req, false
	}
	return req, true
}
