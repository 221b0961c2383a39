package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/stratusbase/stratus/internal/identity"
	"github.com/stratusbase/stratus/internal/index"
	"github.com/stratusbase/stratus/internal/rules"
	"github.com/stratusbase/stratus/internal/storage/types"
	"github.com/stratusbase/stratus/pkg/model"
)

// Context keys for request-scoped values
type contextKey string

const contextKeyPrincipal contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*types.Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal).(*types.Principal)
	return p, ok
}

// RuleService is the lifecycle surface the gateway exposes.
type RuleService interface {
	Create(ctx context.Context, rule model.Rule) (*rules.Result, error)
	Get(ctx context.Context, name string) (*model.Rule, error)
	Update(ctx context.Context, name string, patch model.RulePatch) (*rules.Result, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, q index.Query) ([]model.RuleView, error)
}

type Handler struct {
	rules RuleService
	gate  identity.Gate
}

func NewHandler(svc RuleService, gate identity.Gate) *Handler {
	if gate == nil {
		panic("identity gate cannot be nil")
	}
	return &Handler{rules: svc, gate: gate}
}

// Default body size limit
const DefaultMaxBodySize = 1 << 20 // 1MB

// Default request timeout
const DefaultRequestTimeout = 30 * time.Second

// APIError represents a structured error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// writeError writes a structured JSON error response
func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{Code: code, Message: message}); err != nil {
		slog.Warn("Failed to encode error response", "error", err)
	}
}

// writeInternalError writes an internal error response, but first checks
// if the error is due to client cancellation (returns 499 instead of
// 500).
func writeInternalError(w http.ResponseWriter, err error, message string) {
	if model.IsCanceled(err) {
		w.WriteHeader(499) // Client Closed Request
		return
	}
	slog.Error(message, "error", err)
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}

// maxBodySize wraps a handler with request body size limiting
func maxBodySize(next http.HandlerFunc, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next(w, r)
	}
}

// withTimeout wraps a handler with a context timeout
func withTimeout(next http.HandlerFunc, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Rule Operations
	// Note: Request ID and panic recovery are handled by the unified server middleware
	mux.HandleFunc("GET /v1/rules", withTimeout(h.protected(h.handleListRules), DefaultRequestTimeout))
	mux.HandleFunc("GET /v1/rules/{name}", withTimeout(h.protected(h.handleGetRule), DefaultRequestTimeout))
	mux.HandleFunc("POST /v1/rules", withTimeout(maxBodySize(h.protected(h.handleCreateRule), DefaultMaxBodySize), DefaultRequestTimeout))
	mux.HandleFunc("PUT /v1/rules/{name}", withTimeout(maxBodySize(h.protected(h.handleUpdateRule), DefaultMaxBodySize), DefaultRequestTimeout))
	mux.HandleFunc("PATCH /v1/rules/{name}", withTimeout(maxBodySize(h.protected(h.handleUpdateRule), DefaultMaxBodySize), DefaultRequestTimeout))
	mux.HandleFunc("DELETE /v1/rules/{name}", withTimeout(h.protected(h.handleDeleteRule), DefaultRequestTimeout))

	// Health Check (no auth, minimal timeout)
	mux.HandleFunc("GET /health", withTimeout(h.handleHealth, 5*time.Second))
}

// protected rejects the request before any store, provisioner or index
// effect unless the bearer token resolves to an active principal.
func (h *Handler) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := h.gate.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrAuthorizationMissing):
				writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "authorization missing")
			case errors.Is(err, identity.ErrInvalidToken):
				writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid token")
			case errors.Is(err, identity.ErrUnauthorizedUser):
				writeError(w, http.StatusForbidden, ErrCodeForbidden, "unauthorized user")
			default:
				writeInternalError(w, err, "Authentication failed")
			}
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyPrincipal, principal)
		next(w, r.WithContext(ctx))
	}
}
