package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"handover/internal/config"
	"handover/internal/domain"
	"handover/internal/export"
	"handover/internal/metrics"
	"handover/internal/models"
	"handover/internal/repository"
	"handover/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the submission and read endpoints.
type HTTPServer struct {
	cfg         *config.APIConfig
	store       domain.Store
	submissions *service.SubmissionService
	policy      domain.AuthorizationPolicy
	server      *http.Server
	auth        *HTTPAuth
	logger      zerolog.Logger
}

func NewHTTPServer(
	cfg *config.APIConfig,
	store domain.Store,
	submissions *service.SubmissionService,
	policy domain.AuthorizationPolicy,
	logger *zerolog.Logger,
) *HTTPServer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:         cfg,
		store:       store,
		submissions: submissions,
		policy:      policy,
		logger:      base,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/requests", srv.handleSubmit)
	mux.HandleFunc("/api/v1/items", srv.handleItems)
	mux.HandleFunc("/api/v1/items/", srv.handleItemSubtree)
	mux.HandleFunc("/api/v1/audit/counters", srv.handleAudit)
	mux.HandleFunc("/api/v1/exports/requests", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("submit")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload models.SubmissionPayload
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result := s.submissions.Submit(r.Context(), payload)
	writeJSON(w, statusForOutcome(result.Outcome), result)
}

func statusForOutcome(outcome string) int {
	switch outcome {
	case models.OutcomeSuccess:
		return http.StatusCreated
	case models.OutcomeValidationFailed:
		return http.StatusBadRequest
	case models.OutcomeItemNotFound:
		return http.StatusNotFound
	case models.OutcomeConflict:
		return http.StatusConflict
	case models.OutcomeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) handleItems(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("items")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	items, err := s.store.ListItems(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleItemSubtree routes /api/v1/items/{id}/requests and
// /api/v1/items/{id}/requests/{rid}/withdraw.
func (s *HTTPServer) handleItemSubtree(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/items/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 2 && parts[1] == "requests":
		s.handleItemRequests(w, r, parts[0])
	case len(parts) == 4 && parts[1] == "requests" && parts[3] == "withdraw":
		s.handleWithdraw(w, r, parts[0], parts[2])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleItemRequests(w http.ResponseWriter, r *http.Request, itemID string) {
	metrics.IncHTTP("item_requests")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.privileged(r) {
		writeError(w, http.StatusForbidden, "privileged access required")
		return
	}

	if _, err := s.store.GetItem(r.Context(), itemID); err != nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	requests, err := s.store.ListRequests(r.Context(), itemID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (s *HTTPServer) handleWithdraw(w http.ResponseWriter, r *http.Request, itemID, requestID string) {
	metrics.IncHTTP("withdraw")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.privileged(r) {
		writeError(w, http.StatusForbidden, "privileged access required")
		return
	}

	err := s.submissions.Withdraw(r.Context(), itemID, requestID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "request withdrawn"})
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not found")
	case isConflict(err):
		writeError(w, http.StatusConflict, "conflicting updates, try again")
	default:
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	}
}

func (s *HTTPServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("audit")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.privileged(r) {
		writeError(w, http.StatusForbidden, "privileged access required")
		return
	}

	drifts, err := service.AuditCounters(r.Context(), s.store)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"consistent": len(drifts) == 0,
		"drifts":     drifts,
	})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.privileged(r) {
		writeError(w, http.StatusForbidden, "privileged access required")
		return
	}

	data, err := export.RequestsWorkbook(r.Context(), s.store)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "export failed")
		return
	}

	fileName := fmt.Sprintf("requests_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// privileged checks the caller identity header against the allow-list policy.
func (s *HTTPServer) privileged(r *http.Request) bool {
	if s.policy == nil {
		return false
	}

	header := strings.TrimSpace(s.cfg.Auth.HeaderIdentity)
	if header == "" {
		header = "x-identity"
	}
	return s.policy.IsPrivileged(r.Header.Get(header))
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrItemNotFound) || errors.Is(err, repository.ErrRequestNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrTxConflict)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
