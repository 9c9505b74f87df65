// Package api provides the local dashboard HTTP server of voucherdesk.
// It exposes the desk's projection as JSON and one endpoint per operator
// action, so any front end can render the voucher dashboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/voucherdesk/voucherdesk/internal/app/desk"
	"github.com/voucherdesk/voucherdesk/internal/app/executor"
	"github.com/voucherdesk/voucherdesk/internal/app/projection"
	"github.com/voucherdesk/voucherdesk/internal/domain"
	"github.com/voucherdesk/voucherdesk/internal/infra/observability"
)

// Server is the dashboard HTTP server.
type Server struct {
	desk           *desk.Desk
	metricsEnabled bool
	requestTimeout time.Duration
}

// NewServer creates a dashboard server over d.
func NewServer(d *desk.Desk) *Server {
	return &Server{desk: d, requestTimeout: 5 * time.Minute}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(requestTrace)
	r.Use(requestLogger)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "ok",
			"authenticated": s.desk.Authenticated(),
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.handleView)
		r.Get("/trace", s.handleTrace)
		r.Delete("/trace", s.handleResetTrace)
		r.Get("/batch", s.handleBatchStats)

		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/register", s.handleRegister)

		r.Post("/tabs/{status}", s.handleSwitchTab)
		r.Post("/pages/next", s.handleNextPage)
		r.Post("/pages/prev", s.handlePreviousPage)
		r.Post("/pages/{n}", s.handleGoToPage)
		r.Post("/reload", s.handleReload)

		r.Post("/vouchers", s.handleCreateBulk)
		r.Post("/vouchers/{code}/recharge", s.handleRecharge)
		r.Post("/vouchers/{id}/disable", s.handleDisable)
		r.Post("/vouchers/{id}/enable", s.handleEnable)
		r.Post("/vouchers/{id}/mark-sold", s.handleMarkSold)
		r.Post("/vouchers/{id}/details", s.handleDetails)
		r.Get("/balance/{code}", s.handleCheckBalance)
		r.Post("/pay", s.handlePay)

		r.Post("/menus/{id}/toggle", s.handleToggleMenu)
		r.Post("/menus/close", s.handleCloseMenus)
		r.Delete("/notifications/{id}", s.handleDismiss)
	})

	return r
}

// ListenAndServe runs the server on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("dashboard shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeFailure maps err to a status code and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), domain.Message(err))
}

// errorStatus maps action failures to dashboard status codes. Backend 4xx
// answers keep their code; anything else from the backend becomes 502.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidCount),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidPage),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrCredentialsRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrVoucherNotFound),
		errors.Is(err, domain.ErrVoucherNotVisible):
		return http.StatusNotFound
	case errors.Is(err, projection.ErrControlBusy),
		errors.Is(err, executor.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrClipboard):
		return http.StatusInternalServerError
	}
	if status := domain.StatusOf(err); status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}

// requestTrace makes the request id the trace id of every action span the
// request starts.
func requestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(observability.WithTraceID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each dashboard request at debug.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("dashboard request")
	})
}

// corsMiddleware adds CORS headers for local front ends.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
