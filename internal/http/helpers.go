package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendwise/internal/auth"
	"spendwise/internal/core"
)

const sessionCookie = "spendwise_session"

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sessionToken pulls the session from the Authorization header or the
// session cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireOwner resolves the request's session to an owner id. A zero
// return means the 401 was already written.
func (s *Server) requireOwner(w http.ResponseWriter, r *http.Request) int64 {
	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return 0
	}
	ownerID, err := s.auth.Resolve(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrSessionExpired) {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
		} else {
			slog.ErrorContext(r.Context(), "Failed to resolve session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return 0
	}
	return ownerID
}

// parseYearMonth reads year/month query parameters, defaulting to the
// current calendar month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}
	return year, month
}

func parseDate(dateStr string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
