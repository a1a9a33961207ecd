package auth

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/anzen-ai/anzen/internal/pipeline"
)

// keyCache is a TTL-based in-memory cache for authenticated organization
// contexts, keyed by full API key. Uses sync.Map for lock-free reads on
// the hot path.
//
// Stale-while-revalidate: when an entry expires, get() still returns the
// stale value immediately and signals that a background refresh is
// needed, so no request blocks on Postgres + bcrypt after cold start.
type keyCache struct {
	store sync.Map // map[string]*cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	org        *pipeline.OrgContext
	expiresAt  time.Time
	refreshing atomic.Bool // prevents duplicate background refreshes
}

func newKeyCache(ttl time.Duration) *keyCache {
	return &keyCache{ttl: ttl}
}

// get looks up the API key. A stale hit returns the cached value with
// needsRefresh=true for exactly one caller (CompareAndSwap gate).
func (c *keyCache) get(apiKey string) (org *pipeline.OrgContext, hit bool, needsRefresh bool) {
	val, ok := c.store.Load(apiKey)
	if !ok {
		return nil, false, false
	}

	entry := val.(*cacheEntry)
	if time.Now().Before(entry.expiresAt) {
		return entry.org, true, false
	}

	needsRefresh = entry.refreshing.CompareAndSwap(false, true)
	return entry.org, true, needsRefresh
}

func (c *keyCache) set(apiKey string, org *pipeline.OrgContext) {
	c.store.Store(apiKey, &cacheEntry{
		org:       org,
		expiresAt: time.Now().Add(c.ttl),
	})
}
