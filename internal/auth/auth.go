package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/anzen-ai/anzen/internal/pipeline"
	"github.com/anzen-ai/anzen/internal/store"
)

var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrInvalidAPIKey = errors.New("invalid API key")
)

const refreshTimeout = 5 * time.Second

// KeyAuthenticator validates Bearer ak_ API keys against Postgres and
// resolves them to an explicit organization context for the pipeline.
type KeyAuthenticator struct {
	store  *store.Store
	cache  *keyCache
	logger *zap.Logger
}

// NewKeyAuthenticator creates an authenticator with the given cache TTL.
func NewKeyAuthenticator(st *store.Store, cacheTTL time.Duration, logger *zap.Logger) *KeyAuthenticator {
	return &KeyAuthenticator{
		store:  st,
		cache:  newKeyCache(cacheTTL),
		logger: logger,
	}
}

// Authenticate resolves an API key to its organization context.
// Cache hits (fresh or stale) return immediately; stale hits trigger one
// background refresh.
func (a *KeyAuthenticator) Authenticate(ctx context.Context, token string) (*pipeline.OrgContext, error) {
	if token == "" {
		return nil, ErrMissingAPIKey
	}
	if len(token) < store.KeyPrefixLength || !strings.HasPrefix(token, "ak_") {
		return nil, ErrInvalidAPIKey
	}

	org, hit, needsRefresh := a.cache.get(token)
	if hit && needsRefresh {
		go a.refresh(token)
	}
	if hit && org != nil {
		return org, nil
	}

	org, err := a.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	a.cache.set(token, org)
	return org, nil
}

// lookup validates the key against Postgres and builds the org context.
func (a *KeyAuthenticator) lookup(ctx context.Context, token string) (*pipeline.OrgContext, error) {
	kw, err := a.store.LookupActiveKeyByPrefix(ctx, token[:store.KeyPrefixLength])
	if err != nil {
		return nil, err
	}
	if kw == nil {
		return nil, ErrInvalidAPIKey
	}

	if err := bcrypt.CompareHashAndPassword([]byte(kw.KeyHash), []byte(token)); err != nil {
		return nil, ErrInvalidAPIKey
	}

	// Usage bookkeeping happens off the request path.
	go func(id string) {
		touchCtx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := a.store.TouchAPIKeyUsage(touchCtx, id); err != nil {
			a.logger.Warn("api key usage update failed", zap.Error(err))
		}
	}(kw.ID)

	return &pipeline.OrgContext{
		OrganizationID:   kw.OrganizationID,
		OrganizationSlug: kw.OrganizationSlug,
		UserEmail:        kw.UserEmail,
	}, nil
}

// refresh revalidates a stale cache entry in the background.
func (a *KeyAuthenticator) refresh(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	org, err := a.lookup(ctx, token)
	if err != nil {
		a.logger.Warn("background auth refresh failed", zap.Error(err))
		return
	}
	a.cache.set(token, org)
}
