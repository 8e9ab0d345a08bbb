package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"spendwise/internal/core"
	"spendwise/internal/services"
	"spendwise/internal/storage"
)

type expensePayload struct {
	Date        string `json:"date"`     // YYYY-MM-DD
	Category    string `json:"category"` // canonical key
	Amount      string `json:"amount"`   // decimal, comma or period separator
	Description string `json:"description"`
}

type expenseResponse struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Date:        e.Date.Format(),
		Category:    e.Category,
		Amount:      e.Amount.Euros(),
		Description: e.Description,
	}
}

func (s *Server) decodeExpense(r *http.Request, ownerID int64) (core.Expense, error) {
	var payload expensePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return core.Expense{}, errors.New("invalid request body")
	}

	date, err := parseDate(strings.TrimSpace(payload.Date))
	if err != nil {
		return core.Expense{}, errors.New("date must be YYYY-MM-DD")
	}
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(payload.Amount))
	if err != nil {
		return core.Expense{}, errors.New("amount is not a valid decimal")
	}

	return core.Expense{
		OwnerID:     ownerID,
		Date:        date,
		Category:    sanitizeInput(payload.Category),
		Amount:      core.Money{Cents: cents},
		Description: sanitizeInput(payload.Description),
	}, nil
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	ownerID := s.requireOwner(w, r)
	if ownerID == 0 {
		return
	}

	switch r.Method {
	case http.MethodPost:
		s.createExpense(w, r, ownerID)
	case http.MethodGet:
		s.listExpenses(w, r, ownerID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request, ownerID int64) {
	expense, err := s.decodeExpense(r, ownerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.expenses.CreateExpense(r.Context(), expense)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create expense", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	expense.ID = id
	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request, ownerID int64) {
	year, month := parseYearMonth(r)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	result, err := s.expenses.ListExpenses(r.Context(), ownerID, year, month, page, pageSize)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]expenseResponse, 0, len(result.Expenses))
	for _, e := range result.Expenses {
		items = append(items, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"expenses": items,
		"total":    result.Total,
		"year":     year,
		"month":    month,
	})
}

// handleExpenseByID covers GET, PUT and DELETE on /api/expenses/{id}.
func (s *Server) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	ownerID := s.requireOwner(w, r)
	if ownerID == 0 {
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/expenses/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		expense, err := s.expenses.FindExpense(r.Context(), ownerID, id)
		if err != nil {
			s.writeLookupError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toExpenseResponse(expense))

	case http.MethodPut:
		expense, err := s.decodeExpense(r, ownerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		expense.ID = id
		if err := s.expenses.UpdateExpense(r.Context(), expense); err != nil {
			if isValidationError(err) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			s.writeLookupError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toExpenseResponse(expense))

	case http.MethodDelete:
		if err := s.expenses.DeleteExpense(r.Context(), ownerID, id); err != nil {
			s.writeLookupError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	slog.ErrorContext(r.Context(), "Expense lookup failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// handleImport ingests a CSV batch, either as a multipart "file" part
// or as a raw request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ownerID := s.requireOwner(w, r)
	if ownerID == 0 {
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reader := r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file upload")
			return
		}
		defer file.Close()
		reader = file
	}

	outcome, err := s.importer.ImportCSV(r.Context(), ownerID, reader)
	if err != nil {
		if errors.Is(err, services.ErrEmptyInput) {
			writeError(w, http.StatusBadRequest, "csv input is empty")
			return
		}
		slog.ErrorContext(r.Context(), "CSV import failed", "error", err)
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"imported": outcome.Imported,
		"skipped":  outcome.Skipped,
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrFutureDate) ||
		errors.Is(err, core.ErrNonPositiveAmount) ||
		errors.Is(err, core.ErrEmptyDescription) ||
		errors.Is(err, core.ErrEmptyCategory) ||
		errors.Is(err, services.ErrUnknownCategory)
}
