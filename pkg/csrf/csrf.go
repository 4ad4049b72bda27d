package csrf

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache is the process-wide holder of the anti-forgery token.
// The zero value is usable. Safe for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	value string
}

// Get returns the cached token. The second return is false when no token
// has been stored yet.
func (c *Cache) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.value != ""
}

// Set replaces the cached token. Empty strings are ignored so a failed
// fetch can never clobber a previously issued token.
func (c *Cache) Set(token string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	c.value = token
	c.mu.Unlock()
}

// FetchFunc retrieves a freshly issued anti-forgery token from the server.
type FetchFunc func(ctx context.Context) (string, error)

// Refresher coordinates token fetches so that at most one request is in
// flight at a time. Concurrent callers join the outstanding fetch instead
// of issuing duplicates.
type Refresher struct {
	cache *Cache
	fetch FetchFunc
	group singleflight.Group
	log   *slog.Logger
}

// NewRefresher creates a Refresher that populates cache via fetch.
// A nil logger falls back to slog.Default.
func NewRefresher(cache *Cache, fetch FetchFunc, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{cache: cache, fetch: fetch, log: logger}
}

// Token returns the currently cached token, if any.
func (r *Refresher) Token() (string, bool) {
	return r.cache.Get()
}

// Cache exposes the underlying token cache.
func (r *Refresher) Cache() *Cache { return r.cache }

// EnsureLoaded returns immediately when a token is cached; otherwise it
// joins or starts the single in-flight fetch. Fetch failures are swallowed:
// the caller proceeds without a token rather than blocking on one.
func (r *Refresher) EnsureLoaded(ctx context.Context) {
	if _, ok := r.cache.Get(); ok {
		return
	}
	r.refresh(ctx)
}

// ForceRefresh fetches a new token regardless of cache state. It is used
// after the server reports the cached token stale, and after privilege
// changes (login, register, logout) that rotate the token server-side.
// Returns the new token, or ok=false when the fetch failed.
func (r *Refresher) ForceRefresh(ctx context.Context) (string, bool) {
	return r.refresh(ctx)
}

func (r *Refresher) refresh(ctx context.Context) (string, bool) {
	v, err, _ := r.group.Do("token", func() (any, error) {
		token, err := r.fetch(ctx)
		if err != nil {
			return "", err
		}
		r.cache.Set(token)
		return token, nil
	})
	if err != nil {
		r.log.Debug("csrf: token fetch failed", "error", err)
		return "", false
	}
	token, _ := v.(string)
	return token, token != ""
}
