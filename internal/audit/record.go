package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Record is one append-only audit row: a hashed, de-identified summary of
// a single safety check. No field ever contains raw detected text or the
// un-hashed original text.
type Record struct {
	TraceID          string            `json:"trace_id"`
	OrganizationID   string            `json:"organization_id"`
	Route            string            `json:"route"`
	Method           string            `json:"method"` // "input" or "output"
	SessionID        string            `json:"session_id,omitempty"`
	EntityTypes      []string          `json:"entity_types"`
	EntityCount      int               `json:"entity_count"`
	RiskLevel        string            `json:"risk_level"`
	Decision         string            `json:"decision"`
	InputHash        string            `json:"input_hash"`
	OutputHash       string            `json:"output_hash,omitempty"`
	TextLength       int               `json:"text_length"`
	ProcessingTimeMs float64           `json:"processing_time_ms"`
	CreatedAt        time.Time         `json:"created_at"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// LogEntry is a sanitized view of a Record for the recent-logs surface.
// It never carries hash fields.
type LogEntry struct {
	TraceID          string            `json:"trace_id"`
	Route            string            `json:"route"`
	Method           string            `json:"method"`
	EntityTypes      []string          `json:"entities_detected"`
	EntityCount      int               `json:"entity_count"`
	RiskLevel        string            `json:"risk_level"`
	Decision         string            `json:"decision"`
	TextLength       int               `json:"text_length"`
	ProcessingTimeMs float64           `json:"processing_time_ms"`
	CreatedAt        time.Time         `json:"created_at"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Sanitize strips a record down to the fields safe to show in log views.
func (r *Record) Sanitize() LogEntry {
	return LogEntry{
		TraceID:          r.TraceID,
		Route:            r.Route,
		Method:           r.Method,
		EntityTypes:      r.EntityTypes,
		EntityCount:      r.EntityCount,
		RiskLevel:        r.RiskLevel,
		Decision:         r.Decision,
		TextLength:       r.TextLength,
		ProcessingTimeMs: r.ProcessingTimeMs,
		CreatedAt:        r.CreatedAt,
		Metadata:         r.Metadata,
	}
}

// Hash returns the hex SHA-256 digest of text. Absence of text yields an
// empty hash. The digest is one-way: nothing in the system maps it back.
func Hash(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// MatchRoute reports whether route passes the given filter: empty filter
// matches everything, a trailing '*' does prefix matching, anything else
// must match exactly.
func MatchRoute(filter, route string) bool {
	if filter == "" {
		return true
	}
	if prefix, ok := strings.CutSuffix(filter, "*"); ok {
		return strings.HasPrefix(route, prefix)
	}
	return route == filter
}
