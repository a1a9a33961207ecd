package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/anzen-ai/anzen/internal/auth"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{"standard", "Bearer ak_12345", "ak_12345", true},
		{"lowercase scheme", "bearer ak_12345", "ak_12345", true},
		{"mixed case scheme", "BeArEr token", "token", true},
		{"extra whitespace", "Bearer   token  ", "token", true},
		{"missing header", "", "", false},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", false},
		{"scheme only", "Bearer ", "", false},
		{"bare token", "ak_12345", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, ok := extractBearerToken(r)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("extractBearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAPIKeyMiddleware_Unauthorized(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := deps.apiKeyMiddleware(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed key", "Bearer not-a-key"},
		{"truncated key", "Bearer ak_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/v1/anzen/check/input", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestJWTMiddleware(t *testing.T) {
	deps, _ := newTestDeps(t)

	var gotClaims *auth.Claims
	handler := deps.jwtMiddleware(func(_ http.ResponseWriter, r *http.Request) {
		gotClaims = claimsFromContext(r.Context())
	})

	token, err := deps.JWT.IssueToken("user-1", "org-1", true)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/admin/api-keys", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotClaims == nil || gotClaims.Subject != "user-1" || gotClaims.OrganizationID != "org-1" || !gotClaims.Admin {
		t.Errorf("claims = %+v", gotClaims)
	}
}

func TestJWTMiddleware_Unauthorized(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := deps.jwtMiddleware(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	})

	otherIssuer := auth.NewJWTManager("other-secret", time.Hour)
	forged, err := otherIssuer.IssueToken("user-1", "org-1", true)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"garbage token", "Bearer garbage"},
		{"wrong secret", "Bearer " + forged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/admin/api-keys", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

// A panic anywhere below the middleware becomes a generic 500 carrying
// only a correlation trace ID. No internal detail reaches the client.
func TestRecoverMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("recognizer exploded: secret detail")
	})
	handler := recoverMiddleware(inner, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/anzen/check/input", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var resp ErrorResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Detail != "Safety check failed" {
		t.Errorf("detail = %q", resp.Detail)
	}
	if resp.TraceID == "" {
		t.Error("trace_id missing")
	}
	if strings.Contains(w.Body.String(), "secret detail") {
		t.Error("panic message leaked to client")
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	r := httptest.NewRequest(http.MethodOptions, "/v1/anzen/check/input", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS headers: %v", w.Header())
	}
}

func TestRouter_Healthz(t *testing.T) {
	deps, _ := newTestDeps(t)
	router := NewRouter(deps)

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", w.Body)
	}
}

func TestRouter_CheckRequiresAuth(t *testing.T) {
	deps, _ := newTestDeps(t)
	router := NewRouter(deps)

	r := httptest.NewRequest(http.MethodPost, "/v1/anzen/check/input", strings.NewReader(`{"text":"hi"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
