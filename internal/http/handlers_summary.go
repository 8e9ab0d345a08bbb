package http

import (
	"log/slog"
	"net/http"

	"spendwise/internal/core"
)

type categoryValueResponse struct {
	Category   string  `json:"category"`
	Value      float64 `json:"value"`
	Percentage int     `json:"percentage"`
}

func toCategoryValues(in []core.CategoryValue) []categoryValueResponse {
	out := make([]categoryValueResponse, 0, len(in))
	for _, cv := range in {
		out = append(out, categoryValueResponse{
			Category:   cv.Category,
			Value:      cv.Value,
			Percentage: cv.Percentage,
		})
	}
	return out
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ownerID := s.requireOwner(w, r)
	if ownerID == 0 {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	year, month := parseYearMonth(r)
	summary, err := s.summaries.MonthlySummary(r.Context(), ownerID, year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build summary", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":              summary.Year,
		"month":             summary.Month,
		"total":             summary.Total,
		"category_totals":   toCategoryValues(summary.CategoryTotals),
		"category_averages": toCategoryValues(summary.CategoryAverages),
		"available_years":   summary.AvailableYears,
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ownerID := s.requireOwner(w, r)
	if ownerID == 0 {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	year, month := parseYearMonth(r)
	alerts, err := s.alerts.GenerateAlerts(r.Context(), ownerID, year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to generate alerts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type alertResponse struct {
		Category   string  `json:"category"`
		Budget     float64 `json:"budget"`
		Spent      float64 `json:"spent"`
		ExceededBy float64 `json:"exceeded_by"`
		Message    string  `json:"message"`
	}
	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertResponse{
			Category:   a.Category,
			Budget:     a.Budget,
			Spent:      a.Spent,
			ExceededBy: a.ExceededBy,
			Message:    a.Message,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": out})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type categoryResponse struct {
		Key     string   `json:"key"`
		Display string   `json:"display"`
		Aliases []string `json:"aliases,omitempty"`
	}
	categories := s.catalog.Categories()
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{Key: c.Key, Display: c.Display, Aliases: c.Aliases})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}
