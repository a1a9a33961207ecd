package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// KeyPrefixLength is how many characters of an API key are stored in
// clear for lookup and display. The rest exists only as a bcrypt hash.
const KeyPrefixLength = 8

// APIKey represents a row in the api_keys table. KeyHash is a bcrypt
// digest; the plaintext key is shown exactly once at creation.
type APIKey struct {
	ID             string
	OrganizationID string
	UserID         string
	Name           string
	KeyHash        string
	KeyPrefix      string
	IsActive       bool
	CreatedAt      time.Time
	ExpiresAt      *time.Time
	LastUsed       *time.Time
	UsageCount     int
}

// APIKeyWithOwner joins an API key with its organization and owning user,
// for auth lookups that need the caller's context in one round trip.
type APIKeyWithOwner struct {
	APIKey
	OrganizationSlug string
	UserEmail        string
}

// GenerateAPIKey creates a new ak_ key with its bcrypt hash and display
// prefix. Returns (fullKey, hash, prefix, error); the fullKey is shown to
// the caller once and never stored.
func GenerateAPIKey() (string, string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("GenerateAPIKey: %w", err)
	}
	fullKey := "ak_" + hex.EncodeToString(raw)

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("GenerateAPIKey: %w", err)
	}

	return fullKey, string(hashBytes), fullKey[:KeyPrefixLength], nil
}

// CreateAPIKey inserts a new key for an organization and returns it along
// with the plaintext key.
func (s *Store) CreateAPIKey(ctx context.Context, organizationID, userID, name string, expiresAt *time.Time) (*APIKey, string, error) {
	fullKey, keyHash, keyPrefix, err := GenerateAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("CreateAPIKey: %w", err)
	}

	var k APIKey
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO api_keys (organization_id, user_id, name, key_hash, key_prefix, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, organization_id, user_id, name, key_hash, key_prefix,
		          is_active, created_at, expires_at, last_used, usage_count`,
		organizationID, userID, name, keyHash, keyPrefix, expiresAt,
	).Scan(&k.ID, &k.OrganizationID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix,
		&k.IsActive, &k.CreatedAt, &k.ExpiresAt, &k.LastUsed, &k.UsageCount)
	if err != nil {
		return nil, "", fmt.Errorf("CreateAPIKey: %w", err)
	}

	return &k, fullKey, nil
}

// ListAPIKeys returns an organization's keys, newest first.
func (s *Store) ListAPIKeys(ctx context.Context, organizationID string) ([]*APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, user_id, name, key_hash, key_prefix,
		       is_active, created_at, expires_at, last_used, usage_count
		FROM api_keys WHERE organization_id = $1
		ORDER BY created_at DESC`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("ListAPIKeys: %w", err)
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.OrganizationID, &k.UserID, &k.Name, &k.KeyHash,
			&k.KeyPrefix, &k.IsActive, &k.CreatedAt, &k.ExpiresAt, &k.LastUsed,
			&k.UsageCount); err != nil {
			return nil, fmt.Errorf("ListAPIKeys: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey deactivates a key. Returns sql.ErrNoRows if it doesn't exist.
func (s *Store) RevokeAPIKey(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("RevokeAPIKey: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// LookupActiveKeyByPrefix finds an active, unexpired key by its prefix,
// joined with its organization and owner. Used by auth to narrow
// candidates before the bcrypt verify. Returns nil when nothing matches.
func (s *Store) LookupActiveKeyByPrefix(ctx context.Context, prefix string) (*APIKeyWithOwner, error) {
	var kw APIKeyWithOwner
	err := s.db.QueryRowContext(ctx, `
		SELECT k.id, k.organization_id, k.user_id, k.name, k.key_hash, k.key_prefix,
		       k.is_active, k.created_at, k.expires_at, k.last_used, k.usage_count,
		       o.slug, u.email
		FROM api_keys k
		JOIN organizations o ON o.id = k.organization_id
		JOIN users u ON u.id = k.user_id
		WHERE k.key_prefix = $1
		  AND k.is_active
		  AND (k.expires_at IS NULL OR k.expires_at > now())`, prefix,
	).Scan(&kw.ID, &kw.OrganizationID, &kw.UserID, &kw.Name, &kw.KeyHash, &kw.KeyPrefix,
		&kw.IsActive, &kw.CreatedAt, &kw.ExpiresAt, &kw.LastUsed, &kw.UsageCount,
		&kw.OrganizationSlug, &kw.UserEmail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LookupActiveKeyByPrefix: %w", err)
	}
	return &kw, nil
}

// TouchAPIKeyUsage bumps the usage counter and last-used timestamp.
// Credential bookkeeping only; it never feeds the safety-check path.
func (s *Store) TouchAPIKeyUsage(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET last_used = now(), usage_count = usage_count + 1
		WHERE id = $1`, id); err != nil {
		return fmt.Errorf("TouchAPIKeyUsage: %w", err)
	}
	return nil
}
