// Package httpapi exposes device sessions and family items as JSON over HTTP.
//
// Session routes are keyed by the X-Device-ID header. Item routes require the
// bearer token issued to an authenticated session and act on the family the
// token was issued for, for as long as that session stays authenticated.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmynk/homestock/internal/apperr"
	"github.com/mmynk/homestock/internal/auth"
	"github.com/mmynk/homestock/internal/metrics"
	"github.com/mmynk/homestock/internal/middleware"
	"github.com/mmynk/homestock/internal/session"
	"github.com/mmynk/homestock/pkg/logging"
)

// DeviceHeader identifies the device session of a request.
const DeviceHeader = "X-Device-ID"

// Config holds the dependencies of a Server.
type Config struct {
	Registry     *session.Registry
	Tokens       *auth.JWTManager
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	FetchRetries int
}

// Server routes requests to sessions and item operations.
type Server struct {
	registry     *session.Registry
	tokens       *auth.JWTManager
	metrics      *metrics.Metrics
	logger       *slog.Logger
	fetchRetries int
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := logging.OrDefault(cfg.Logger)
	retries := cfg.FetchRetries
	if retries < 1 {
		retries = 1
	}
	return &Server{
		registry:     cfg.Registry,
		tokens:       cfg.Tokens,
		metrics:      cfg.Metrics,
		logger:       logger,
		fetchRetries: retries,
	}
}

// Handler returns the routed handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /session", s.withDevice(s.getSession))
	mux.HandleFunc("POST /session/start", s.withDevice(s.startSession))
	mux.HandleFunc("POST /auth/username", s.withDevice(s.loginWithUsername))
	mux.HandleFunc("POST /auth/provider", s.withDevice(s.loginWithProvider))
	mux.HandleFunc("POST /auth/popup-result", s.withDevice(s.deliverPopup))
	mux.HandleFunc("POST /auth/redirect-result", s.withDevice(s.deliverRedirectResult))
	mux.HandleFunc("POST /auth/state", s.withDevice(s.deliverAuthState))
	mux.HandleFunc("POST /auth/logout", s.withDevice(s.logout))
	mux.HandleFunc("POST /family", s.withDevice(s.createFamily))
	mux.HandleFunc("POST /family/join", s.withDevice(s.joinFamily))
	mux.HandleFunc("GET /family", s.withDevice(s.getFamily))

	requireAuth := middleware.RequireAuth(s.tokens)
	mux.Handle("GET /items", requireAuth(http.HandlerFunc(s.listItems)))
	mux.Handle("POST /items", requireAuth(http.HandlerFunc(s.addItem)))
	mux.Handle("POST /items/scan", requireAuth(http.HandlerFunc(s.scanBarcode)))
	mux.Handle("PUT /items/{id}", requireAuth(http.HandlerFunc(s.updateItem)))
	mux.Handle("POST /items/{id}/increase", requireAuth(http.HandlerFunc(s.increaseItem)))
	mux.Handle("POST /items/{id}/decrease", requireAuth(http.HandlerFunc(s.decreaseItem)))
	mux.Handle("DELETE /items/{id}", requireAuth(http.HandlerFunc(s.removeItem)))

	mux.Handle("GET /metrics", s.metrics.Handler())

	return middleware.Logging(s.logger)(middleware.CORS(mux))
}

type deviceHandler func(w http.ResponseWriter, r *http.Request, d session.Device)

// withDevice resolves the device session named by DeviceHeader.
func (s *Server) withDevice(h deviceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(DeviceHeader))
		if id == "" {
			writeError(w, apperr.New(apperr.InvalidInput, DeviceHeader+" header is required."))
			return
		}
		h(w, r, s.registry.Get(id))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorResponse struct {
	Kind   apperr.Kind   `json:"kind"`
	Reason apperr.Reason `json:"reason,omitempty"`
	Error  string        `json:"error"`
}

// writeError maps a classified error to a status code. Unclassified errors
// are reported without their message.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal error."})
		return
	}
	writeJSON(w, statusFor(appErr.Kind), errorResponse{
		Kind:   appErr.Kind,
		Reason: appErr.Reason,
		Error:  appErr.Message,
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.LoginFailed, apperr.IdentityResolutionFailed:
		return http.StatusUnauthorized
	case apperr.InvalidFamilyContext:
		return http.StatusForbidden
	case apperr.FamilyNotFound, apperr.ItemNotFound:
		return http.StatusNotFound
	case apperr.SetupRequired:
		return http.StatusConflict
	case apperr.StorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func decode(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, "Malformed request body.", err)
	}
	return nil
}
