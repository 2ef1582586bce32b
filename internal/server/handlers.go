package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/slippax/lotus-ge/internal/summaries"
)

// SummaryHandler serves the per-category opportunity endpoints
type SummaryHandler struct {
	summaries *summaries.Service
	log       zerolog.Logger
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(svc *summaries.Service, log zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{
		summaries: svc,
		log:       log.With().Str("handler", "summaries").Logger(),
	}
}

// RegisterRoutes registers one GET route per category
func (h *SummaryHandler) RegisterRoutes(r chi.Router) {
	for _, category := range summaries.Categories() {
		r.Get("/"+string(category), h.handleCategory(category))
	}
}

// summaryResponse is the uniform success envelope
type summaryResponse struct {
	Success     bool          `json:"success"`
	Data        []interface{} `json:"data"`
	Timestamp   int64         `json:"timestamp"`
	DataUpdated *string       `json:"dataUpdated"`
	Cached      bool          `json:"cached"`
	Count       int           `json:"count"`
}

// errorResponse is the uniform failure envelope
type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
}

// handleCategory builds the handler for one category's endpoint.
// Freshness is governed entirely by the service's internal window; client
// cache headers are advisory and ignored.
func (h *SummaryHandler) handleCategory(category summaries.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h.summaries.Get(r.Context(), category)
		if err != nil {
			h.log.Error().
				Err(err).
				Str("category", string(category)).
				Msg("Failed to serve category")

			h.writeJSON(w, http.StatusInternalServerError, errorResponse{
				Success:   false,
				Error:     "Failed to fetch " + string(category) + " opportunities",
				Timestamp: time.Now().UnixMilli(),
			})
			return
		}

		var dataUpdated *string
		if result.SourceUpdated != "" {
			dataUpdated = &result.SourceUpdated
		}

		data := result.Opportunities
		if data == nil {
			data = []interface{}{}
		}

		h.writeJSON(w, http.StatusOK, summaryResponse{
			Success:     true,
			Data:        data,
			Timestamp:   time.Now().UnixMilli(),
			DataUpdated: dataUpdated,
			Cached:      result.Cached,
			Count:       len(data),
		})
	}
}

// writeJSON writes a JSON response with the given status code
func (h *SummaryHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
