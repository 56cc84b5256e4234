package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/homestock/internal/auth"
	"github.com/mmynk/homestock/internal/models"
	"github.com/mmynk/homestock/pkg/logging"
)

func TestRequireAuth(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := manager.Generate(models.User{UserID: "u1", Email: "a@example.com", FamilyID: "F1"}, "d1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var seenFamily string
	handler := RequireAuth(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenFamily = GetFamilyID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "no header", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + token, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/items", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if seenFamily != "F1" {
		t.Errorf("family in context: got %q", seenFamily)
	}
}

func TestLoggingAndCORS(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, 0)

	handler := Logging(logger)(CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	})))

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/items", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status: got %d", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("missing CORS header")
		}
	})

	t.Run("status is logged", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))
		if rec.Code != http.StatusTeapot {
			t.Errorf("status: got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "418") {
			t.Errorf("status missing from log: %s", buf.String())
		}
	})
}
