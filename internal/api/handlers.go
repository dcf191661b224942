package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/netsentry/kpi-rca/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "run_id": s.results.Bundle.RunID})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.results.Bundle.Summary)
}

func (s *Server) handleDegradations(w http.ResponseWriter, _ *http.Request) {
	degradations := s.results.Bundle.Degradations
	if degradations == nil {
		degradations = []models.DegradationInterval{}
	}
	s.writeJSON(w, http.StatusOK, degradations)
}

func (s *Server) handleIntervalEvents(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "interval index must be an integer")
		return
	}
	if index < 0 || index >= len(s.results.Bundle.Degradations) {
		s.writeError(w, http.StatusNotFound, "no such interval")
		return
	}

	events := s.results.Bundle.Correlations[index]
	if events == nil {
		events = []models.ConsolidatedEvent{}
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleVerdicts(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.results.Bundle.Verdicts)
}

func (s *Server) handleBaselines(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"baselines":  s.results.Baselines,
		"statistics": s.results.Statistics,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
