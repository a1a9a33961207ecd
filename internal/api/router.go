package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/anzen-ai/anzen/internal/audit"
	"github.com/anzen-ai/anzen/internal/auth"
	"github.com/anzen-ai/anzen/internal/pipeline"
	"github.com/anzen-ai/anzen/internal/store"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Store    *store.Store
	Pipeline *pipeline.Pipeline
	Trail    *audit.Trail
	KeyAuth  *auth.KeyAuthenticator
	JWT      *auth.JWTManager
	Logger   *zap.Logger
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Safety checks (API-key auth)
	mux.HandleFunc("POST /v1/anzen/check/input", deps.apiKeyMiddleware(deps.handleCheckInput))
	mux.HandleFunc("POST /v1/anzen/check/output", deps.apiKeyMiddleware(deps.handleCheckOutput))

	// Admin surface (JWT auth, except login)
	mux.HandleFunc("POST /admin/login", deps.handleLogin)
	mux.HandleFunc("POST /admin/users", deps.jwtMiddleware(deps.handleCreateUser))
	mux.HandleFunc("POST /admin/api-keys", deps.jwtMiddleware(deps.handleCreateAPIKey))
	mux.HandleFunc("GET /admin/api-keys", deps.jwtMiddleware(deps.handleListAPIKeys))
	mux.HandleFunc("DELETE /admin/api-keys/{key_id}", deps.jwtMiddleware(deps.handleRevokeAPIKey))
	mux.HandleFunc("POST /admin/reports/compliance", deps.jwtMiddleware(deps.handleComplianceReport))
	mux.HandleFunc("GET /admin/logs/recent", deps.jwtMiddleware(deps.handleRecentLogs))

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(recoverMiddleware(mux, deps.Logger), deps.Logger))
}
