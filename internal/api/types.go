package api

import (
	"time"

	"github.com/anzen-ai/anzen/internal/pipeline"
)

// --- Safety check endpoints ---

// CheckRequest is the JSON body for POST /v1/anzen/check/{input,output}.
type CheckRequest struct {
	Text      string `json:"text"`
	Route     string `json:"route"`
	Language  string `json:"language"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// CheckResponse is the safety check result.
type CheckResponse struct {
	Decision  string                    `json:"decision"`
	Entities  []pipeline.DetectedEntity `json:"entities"`
	SafeText  string                    `json:"safe_text"`
	RiskLevel string                    `json:"risk_level"`
	TraceID   string                    `json:"trace_id"`
	Metadata  map[string]string         `json:"metadata"`
}

// --- Admin: login ---

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        UserResp `json:"user"`
}

type UserResp struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	IsAdmin        bool   `json:"is_admin"`
	OrganizationID string `json:"organization_id"`
}

// --- Admin: users ---

type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

// --- Admin: API keys ---

type CreateAPIKeyRequest struct {
	Name        string `json:"name"`
	ExpiresDays *int   `json:"expires_days,omitempty"`
}

// APIKeyResp never includes the hash; the plaintext key appears only in
// the creation response.
type APIKeyResp struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	APIKey     string     `json:"api_key,omitempty"` // creation only
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsed   *time.Time `json:"last_used"`
	UsageCount int        `json:"usage_count"`
}

// --- Admin: compliance ---

type ComplianceReportRequest struct {
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	RouteFilter string    `json:"route_filter,omitempty"`
}

// ErrorResp is the standard error body. Detail is always a generic
// message; TraceID correlates with server-side logs. Internal state,
// hash values, and entity text never appear here.
type ErrorResp struct {
	Detail  string `json:"detail"`
	TraceID string `json:"trace_id,omitempty"`
}
