package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/FocuswithJustin/formations/core/cache"
	"github.com/FocuswithJustin/formations/core/errors"
	"github.com/FocuswithJustin/formations/core/render"
	"github.com/FocuswithJustin/formations/internal/logging"
	"github.com/FocuswithJustin/formations/internal/store"
	"github.com/FocuswithJustin/formations/internal/validation"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// FormationList is the /formations response.
type FormationList struct {
	Word       string            `json:"word"`
	Formations []render.Rendered `json:"formations"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status     string       `json:"status"`
	Version    string       `json:"version"`
	Uptime     string       `json:"uptime"`
	Words      int64        `json:"words"`
	Formations int64        `json:"formations"`
	LastRun    *store.Run   `json:"last_run,omitempty"`
	Cache      *cache.Stats `json:"render_cache,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"name":    "Formations API",
		"version": s.cfg.Version,
		"endpoints": []string{
			"GET /health",
			"GET /query/:word",
			"GET /formations/:word",
			"GET /words/:word",
			"WS /ws",
		},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
}

// handleQuery returns {formation_number: display} with no envelope. An
// unknown word, or one without formations, is an empty object.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	word, ok := s.queryWord(w, r)
	if !ok {
		return
	}
	out, err := s.renderer.Render(r.Context(), word)
	if err != nil {
		s.renderFailed(w, r, word, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleFormations(w http.ResponseWriter, r *http.Request) {
	word, ok := s.queryWord(w, r)
	if !ok {
		return
	}
	out, err := s.renderer.Ordered(r.Context(), word)
	if err != nil {
		s.renderFailed(w, r, word, err)
		return
	}
	respondList(w, FormationList{Word: word, Formations: out}, len(out))
}

func (s *Server) handleWord(w http.ResponseWriter, r *http.Request) {
	word, ok := s.queryWord(w, r)
	if !ok {
		return
	}
	info, err := s.backend.WordInfo(r.Context(), word)
	switch {
	case err == nil:
		respond(w, http.StatusOK, info)
	case errors.Is(err, errors.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Word not found")
	default:
		logging.ErrorContext(r.Context(), "word lookup failed", "word", word, "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Word lookup failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info, err := s.health.Load("health", func() (HealthInfo, error) {
		return s.collectHealth(r.Context())
	})
	if err != nil {
		logging.ErrorContext(r.Context(), "health check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unavailable")
		return
	}
	info.Uptime = time.Since(s.started).Round(time.Second).String()
	if s.renders != nil {
		st := s.renders.Stats()
		info.Cache = &st
	}
	respond(w, http.StatusOK, info)
}

func (s *Server) collectHealth(ctx context.Context) (HealthInfo, error) {
	st, err := s.backend.Stats(ctx)
	if err != nil {
		return HealthInfo{}, err
	}
	info := HealthInfo{Status: "healthy", Version: s.cfg.Version, Words: st.Words, Formations: st.Formations}
	run, err := s.backend.LatestRun(ctx)
	switch {
	case err == nil:
		info.LastRun = run
		if run.Status != store.RunStatusCompleted {
			info.Status = "degraded"
		}
	case errors.Is(err, errors.ErrNotFound):
		info.Status = "empty"
	default:
		return HealthInfo{}, err
	}
	return info, nil
}

// queryWord validates the {word} path value and normalizes it against the
// alphabet. It answers 400 itself when the word is rejected.
func (s *Server) queryWord(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.PathValue("word")
	if err := validation.ValidateWord(raw); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return "", false
	}
	return s.norm.Normalize(raw), true
}

// renderFailed reports a render error. A corrupt stored formation is a
// server fault, never an empty result.
func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, word string, err error) {
	if errors.Is(err, errors.ErrCorruptRender) {
		logging.ErrorContext(r.Context(), "corrupt formation", "word", word, "error", err)
		respondError(w, http.StatusInternalServerError, "CORRUPT_FORMATION", err.Error())
		return
	}
	logging.ErrorContext(r.Context(), "render failed", "word", word, "error", err)
	respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load formations")
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func respondList(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Total: total, Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
