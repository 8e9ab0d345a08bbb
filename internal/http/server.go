// Package http exposes the JSON API: auth, expense CRUD, CSV import,
// monthly summaries and budget alerts.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spendwise/internal/auth"
	"spendwise/internal/catalog"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/services"
)

type Server struct {
	http.Server

	auth      *auth.Service
	expenses  *services.ExpenseService
	importer  *services.ImportService
	summaries *services.SummaryService
	alerts    *services.AlertService
	recurring *services.RecurringService
	catalog   *catalog.Catalog

	limiter *ratelimit.Limiter
}

type Deps struct {
	Auth      *auth.Service
	Expenses  *services.ExpenseService
	Importer  *services.ImportService
	Summaries *services.SummaryService
	Alerts    *services.AlertService
	Recurring *services.RecurringService
	Catalog   *catalog.Catalog

	// RequestsPerMinute <= 0 falls back to the ratelimit default.
	RequestsPerMinute int
}

func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		auth:      deps.Auth,
		expenses:  deps.Expenses,
		importer:  deps.Importer,
		summaries: deps.Summaries,
		alerts:    deps.Alerts,
		recurring: deps.Recurring,
		catalog:   deps.Catalog,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RequestsPerMinute}),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/logout", s.handleLogout)

	mux.HandleFunc("/api/expenses", s.handleExpenses)
	mux.HandleFunc("/api/expenses/", s.handleExpenseByID)
	mux.HandleFunc("/api/expenses/import", s.handleImport)

	mux.HandleFunc("/api/recurring", s.handleRecurring)
	mux.HandleFunc("/api/recurring/", s.handleRecurringByID)

	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	mux.HandleFunc("/api/categories", s.handleCategories)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(clientIP)
	handler := headers.Middleware(
		s.limiter.Middleware(clientIP)(
			tracer.Middleware(mux)))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Shutdown()
	err := s.Server.Shutdown(ctx)
	slog.InfoContext(ctx, "HTTP server stopped")
	return err
}

// clientIP honors proxy headers before falling back to the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
