package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRecentLogsLimit = 100
	maxRecentLogsLimit     = 1000
)

// handleLogin implements POST /admin/login.
func (d *Dependencies) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	user, err := d.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		d.Logger.Error("login lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Login failed"})
		return
	}
	if user == nil || !user.IsActive || !user.VerifyPassword(req.Password) {
		writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Incorrect email or password"})
		return
	}

	token, err := d.JWT.IssueToken(user.ID, user.OrganizationID, user.IsAdmin)
	if err != nil {
		d.Logger.Error("token issue failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Login failed"})
		return
	}

	if err := d.Store.TouchLastLogin(r.Context(), user.ID); err != nil {
		d.Logger.Warn("last login update failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User: UserResp{
			ID:             user.ID,
			Email:          user.Email,
			Name:           user.Name,
			IsAdmin:        user.IsAdmin,
			OrganizationID: user.OrganizationID,
		},
	})
}

// handleCreateUser implements POST /admin/users (admin only).
func (d *Dependencies) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil || !claims.Admin {
		writeJSON(w, http.StatusForbidden, ErrorResp{Detail: "Admin access required"})
		return
	}

	var req CreateUserRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "email and password are required"})
		return
	}

	user, err := d.Store.CreateUser(r.Context(), claims.OrganizationID, req.Email, req.Name, req.Password, req.IsAdmin)
	if err != nil {
		d.Logger.Error("create user failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to create user"})
		return
	}

	writeJSON(w, http.StatusCreated, UserResp{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		IsAdmin:        user.IsAdmin,
		OrganizationID: user.OrganizationID,
	})
}

// handleCreateAPIKey implements POST /admin/api-keys.
func (d *Dependencies) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req CreateAPIKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name is required"})
		return
	}

	var expiresAt *time.Time
	if req.ExpiresDays != nil && *req.ExpiresDays > 0 {
		t := time.Now().AddDate(0, 0, *req.ExpiresDays)
		expiresAt = &t
	}

	key, fullKey, err := d.Store.CreateAPIKey(r.Context(), claims.OrganizationID, claims.Subject, req.Name, expiresAt)
	if err != nil {
		d.Logger.Error("create api key failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to create API key"})
		return
	}

	writeJSON(w, http.StatusCreated, APIKeyResp{
		ID:         key.ID,
		Name:       key.Name,
		KeyPrefix:  key.KeyPrefix,
		APIKey:     fullKey, // shown once
		IsActive:   key.IsActive,
		CreatedAt:  key.CreatedAt,
		ExpiresAt:  key.ExpiresAt,
		LastUsed:   key.LastUsed,
		UsageCount: key.UsageCount,
	})
}

// handleListAPIKeys implements GET /admin/api-keys.
func (d *Dependencies) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	keys, err := d.Store.ListAPIKeys(r.Context(), claims.OrganizationID)
	if err != nil {
		d.Logger.Error("list api keys failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list API keys"})
		return
	}

	resp := make([]APIKeyResp, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, APIKeyResp{
			ID:         k.ID,
			Name:       k.Name,
			KeyPrefix:  k.KeyPrefix,
			IsActive:   k.IsActive,
			CreatedAt:  k.CreatedAt,
			ExpiresAt:  k.ExpiresAt,
			LastUsed:   k.LastUsed,
			UsageCount: k.UsageCount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRevokeAPIKey implements DELETE /admin/api-keys/{key_id}.
func (d *Dependencies) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID := r.PathValue("key_id")
	if err := d.Store.RevokeAPIKey(r.Context(), keyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "API key not found"})
			return
		}
		d.Logger.Error("revoke api key failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to revoke API key"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleComplianceReport implements POST /admin/reports/compliance.
func (d *Dependencies) handleComplianceReport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req ComplianceReportRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "start_date and end_date are required"})
		return
	}

	report, err := d.Trail.ComplianceReport(r.Context(), claims.OrganizationID, req.StartDate, req.EndDate, req.RouteFilter)
	if err != nil {
		d.Logger.Error("compliance report failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to generate report"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleRecentLogs implements GET /admin/logs/recent.
func (d *Dependencies) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	limit := defaultRecentLogsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecentLogsLimit)
	}
	routeFilter := r.URL.Query().Get("route_filter")

	entries, err := d.Trail.RecentLogs(r.Context(), claims.OrganizationID, limit, routeFilter)
	if err != nil {
		d.Logger.Error("recent logs failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to fetch logs"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
