package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anzen-ai/anzen/internal/auth"
	"github.com/anzen-ai/anzen/internal/pipeline"
)

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey int

const (
	orgCtxKey contextKey = iota
	claimsCtxKey
)

// orgFromContext extracts the authenticated org context for a request.
func orgFromContext(ctx context.Context) *pipeline.OrgContext {
	v, _ := ctx.Value(orgCtxKey).(*pipeline.OrgContext)
	return v
}

// claimsFromContext extracts the verified admin-token claims.
func claimsFromContext(ctx context.Context) *auth.Claims {
	v, _ := ctx.Value(claimsCtxKey).(*auth.Claims)
	return v
}

// apiKeyMiddleware validates Bearer ak_ keys on the check endpoints and
// injects the resolved organization context.
func (d *Dependencies) apiKeyMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Missing or invalid Authorization header"})
			return
		}

		org, err := d.KeyAuth.Authenticate(r.Context(), token)
		if err != nil {
			d.Logger.Warn("api key auth failed", zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Invalid API key"})
			return
		}

		ctx := context.WithValue(r.Context(), orgCtxKey, org)
		next(w, r.WithContext(ctx))
	}
}

// jwtMiddleware validates Bearer admin tokens on the admin endpoints.
func (d *Dependencies) jwtMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Missing or invalid Authorization header"})
			return
		}

		claims, err := d.JWT.VerifyToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Invalid or expired token"})
			return
		}

		ctx := context.WithValue(r.Context(), claimsCtxKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is case-insensitive per RFC 6750.
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:]), true
	}
	return "", false
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func readJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Recovery ---

// recoverMiddleware converts panics into a generic 500 carrying only a
// correlation trace ID. Detection and policy faults are structurally
// impossible at runtime (patterns compile at startup), but if one occurs
// anyway it must fail loud, not silently return no entities.
func recoverMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				traceID := uuid.New().String()
				logger.Error("request panic",
					zap.String("trace_id", traceID),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
				)
				writeJSON(w, http.StatusInternalServerError, ErrorResp{
					Detail:  "Safety check failed",
					TraceID: traceID,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// --- Request logging ---

func requestLogging(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// --- CORS ---

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
