package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

type recurringPayload struct {
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	StartDate   string `json:"start_date"`
}

type recurringResponse struct {
	ID          int64   `json:"id"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Frequency   string  `json:"frequency"`
	StartDate   string  `json:"start_date"`
	Active      bool    `json:"active"`
	LastRun     string  `json:"last_run,omitempty"`
}

func toRecurringResponse(re core.RecurringExpense) recurringResponse {
	out := recurringResponse{
		ID:          re.ID,
		Category:    re.Category,
		Amount:      re.Amount.Euros(),
		Description: re.Description,
		Frequency:   string(re.Frequency),
		StartDate:   re.StartDate.Format(),
		Active:      re.Active,
	}
	if !re.LastRun.IsZero() {
		out.LastRun = re.LastRun.UTC().Format("2006-01-02")
	}
	return out
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	ownerID := s.requireOwner(w, r)
	if ownerID == 0 {
		return
	}
	switch r.Method {
	case http.MethodPost:
		s.createRecurring(w, r, ownerID)
	case http.MethodGet:
		s.listRecurring(w, r, ownerID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createRecurring(w http.ResponseWriter, r *http.Request, ownerID int64) {
	var payload recurringPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	startDate, err := parseDate(payload.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
		return
	}
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(payload.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	frequency, err := core.ParseFrequency(payload.Frequency)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	re := core.RecurringExpense{
		OwnerID:     ownerID,
		Category:    sanitizeInput(payload.Category),
		Amount:      core.Money{Cents: cents},
		Description: sanitizeInput(payload.Description),
		Frequency:   frequency,
		StartDate:   startDate,
	}
	id, err := s.recurring.CreateTemplate(r.Context(), re)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create recurring template", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	re.ID = id
	re.Active = true
	writeJSON(w, http.StatusCreated, toRecurringResponse(re))
}

func (s *Server) listRecurring(w http.ResponseWriter, r *http.Request, ownerID int64) {
	templates, err := s.recurring.ListTemplates(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list recurring templates", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]recurringResponse, 0, len(templates))
	for _, re := range templates {
		out = append(out, toRecurringResponse(re))
	}
	writeJSON(w, http.StatusOK, map[string]any{"recurring": out})
}

func (s *Server) handleRecurringByID(w http.ResponseWriter, r *http.Request) {
	ownerID := s.requireOwner(w, r)
	if ownerID == 0 {
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/recurring/"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid recurring expense id")
		return
	}

	switch r.Method {
	case http.MethodDelete:
		if err := s.recurring.DeleteTemplate(r.Context(), ownerID, id); err != nil {
			writeRecurringLookupError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPatch:
		var payload struct {
			Active *bool `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Active == nil {
			writeError(w, http.StatusBadRequest, "invalid request body, expected {\"active\": bool}")
			return
		}
		if err := s.recurring.SetActive(r.Context(), ownerID, id, *payload.Active); err != nil {
			writeRecurringLookupError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writeRecurringLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "recurring expense not found")
		return
	}
	slog.ErrorContext(r.Context(), "Recurring template operation failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
