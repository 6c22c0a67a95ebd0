package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/signupassist/provider-pipeline/internal/forms"
	"github.com/signupassist/provider-pipeline/pkg/httpx"
)

type discoverRequest struct {
	OrgRef   string `json:"org_ref"`
	Category string `json:"category,omitempty"`
	AgeHint  int    `json:"age_hint,omitempty"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	result, err := s.pipeline.GetOrSynthesizeProgramData(r.Context(), req.OrgRef, req.Category, req.AgeHint)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

type normalizeRequest struct {
	Fields []forms.DiscoveredField `json:"fields"`
}

type normalizeResponse struct {
	Questions []forms.Question  `json:"questions"`
	Defaults  map[string]string `json:"defaults"`
}

func (s *Server) handleNormalizeQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req normalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, normalizeResponse{
		Questions: s.pipeline.BuildQuestions(req.Fields),
		Defaults:  s.pipeline.DefaultAnswers(req.Fields),
	})
}

type quoteRequest struct {
	BasePriceCents *int64                  `json:"base_price_cents"`
	Fields         []forms.DiscoveredField `json:"fields"`
	Answers        map[string]any          `json:"answers"`
}

type quoteResponse struct {
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, quoteResponse{
		TotalCents: s.pipeline.QuoteTotal(req.BasePriceCents, req.Fields, req.Answers),
		Currency:   "USD",
	})
}

type cacheMutationResponse struct {
	Removed int `json:"removed"`
}

func (s *Server) handleCacheSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	removed, err := s.pipeline.SweepCache(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "sweep_failed", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cacheMutationResponse{Removed: removed})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	removed, err := s.pipeline.ClearCache(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "clear_failed", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cacheMutationResponse{Removed: removed})
}

func trimmedPath(r *http.Request) string {
	return strings.TrimSpace(r.URL.Path)
}
