package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"invoicebook/backend/internal/attachment"
	"invoicebook/backend/internal/domain"
	"invoicebook/backend/internal/logging"
	"invoicebook/backend/internal/service"
	"invoicebook/backend/internal/store"
)

const (
	jsonBodyLimit      = 1 << 20
	multipartBodyLimit = attachment.MaxImageBytes + jsonBodyLimit
)

type Options struct {
	AllowedOrigin string
	// UploadDir is served under /uploads/ when set.
	UploadDir string
	Logger    logrus.FieldLogger
}

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	uploadDir     string
	loginLimiter  *attemptLimiter
	logger        logrus.FieldLogger
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: opts.AllowedOrigin,
		uploadDir:     opts.UploadDir,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		logger:        opts.Logger,
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	anyRole := []string{domain.RoleAdmin, domain.RoleUser}
	mux.HandleFunc("/api/v1/distributors", a.requireAuth(a.handleDistributors, anyRole...))
	mux.HandleFunc("/api/v1/distributors/{id}", a.requireAuth(a.handleDistributor, anyRole...))
	mux.HandleFunc("/api/v1/distributors/{id}/invoices", a.requireAuth(a.handleDistributorInvoices, anyRole...))
	mux.HandleFunc("/api/v1/invoices", a.requireAuth(a.handleInvoices, anyRole...))
	mux.HandleFunc("/api/v1/invoices/{id}", a.requireAuth(a.handleInvoice, anyRole...))
	mux.HandleFunc("/api/v1/invoices/{id}/payments", a.requireAuth(a.handleInvoicePayments, anyRole...))
	mux.HandleFunc("/api/v1/payments", a.requireAuth(a.handlePayments, anyRole...))
	mux.HandleFunc("/api/v1/payments/{id}", a.requireAuth(a.handlePayment, anyRole...))
	mux.HandleFunc("/api/v1/users", a.requireAuth(a.handleUsers, domain.RoleAdmin))

	if a.uploadDir != "" {
		mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.uploadDir))))
	}

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("username and password are required"))
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			contentType := strings.ToLower(r.Header.Get("Content-Type"))
			switch {
			case strings.HasPrefix(contentType, "multipart/form-data"):
				r.Body = http.MaxBytesReader(w, r.Body, multipartBodyLimit)
			default:
				r.Body = http.MaxBytesReader(w, r.Body, jsonBodyLimit)
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"durationMs": time.Since(startedAt).Milliseconds(),
		}).Info("http_request")
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (a *API) writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		a.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses carry a generic message; the cause only goes to the log.
	msg := err.Error()
	if status >= 500 {
		a.logger.WithFields(logrus.Fields{"status": status, "error": err.Error()}).Error("internal_error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

// writeServiceError maps the store and service error taxonomy onto HTTP.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	var validation *store.ValidationError
	var inUse *store.DistributorInUseError
	switch {
	case errors.As(err, &validation):
		body := map[string]any{"error": validation.Message}
		if len(validation.Fields) > 0 {
			body["fields"] = validation.Fields
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &inUse):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":        "distributor has invoices and cannot be deleted",
			"invoiceCount": inUse.InvoiceCount,
		})
	case errors.Is(err, store.ErrNotFound):
		a.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrConflict):
		a.writeError(w, http.StatusConflict, err)
	case errors.Is(err, store.ErrInvalidInput):
		a.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, service.ErrForbidden):
		a.writeError(w, http.StatusForbidden, err)
	default:
		a.writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
