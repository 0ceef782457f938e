package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
)

const (
	DefaultJWKSTTL        = 10 * time.Minute
	DefaultFetchesPerMin  = 10
	jwksFetchTimeout      = 10 * time.Second
	jwksRateLimitInterval = time.Minute
)

var (
	ErrKeyNotFound  = errors.New("jwks: signing key not found")
	ErrRateLimited  = errors.New("jwks: refetch rate limit reached")
	ErrNoJWKSSource = errors.New("jwks: no key set url configured")
)

// JWKSURL is the well-known key set location of a Cognito user pool.
func JWKSURL(issuer string) string {
	return issuer + "/.well-known/jwks.json"
}

// JWKSCache holds the provider's public keys. A cached set is reused for TTL; an
// unknown kid triggers a refetch, at most FetchesPerMin times per minute.
type JWKSCache struct {
	url           string
	http          *http.Client
	ttl           time.Duration
	fetchesPerMin int
	now           func() time.Time

	mu        sync.Mutex
	keys      *jose.JSONWebKeySet
	fetchedAt time.Time
	fetches   []time.Time
}

func NewJWKSCache(url string) *JWKSCache {
	return &JWKSCache{
		url:           url,
		http:          &http.Client{Timeout: jwksFetchTimeout},
		ttl:           DefaultJWKSTTL,
		fetchesPerMin: DefaultFetchesPerMin,
		now:           time.Now,
	}
}

// Key returns the public key for kid. The lock is held only to read or swap the
// key set, never across the network fetch.
func (c *JWKSCache) Key(ctx context.Context, kid string) (interface{}, error) {
	if c == nil || c.url == "" {
		return nil, ErrNoJWKSSource
	}
	now := c.now()

	c.mu.Lock()
	keys := c.keys
	if keys != nil && now.Sub(c.fetchedAt) < c.ttl {
		if k, ok := lookup(keys, kid); ok {
			c.mu.Unlock()
			return k, nil
		}
	}
	allowed := c.reserveFetch(now)
	c.mu.Unlock()

	var err error
	if allowed {
		var set *jose.JSONWebKeySet
		if set, err = c.fetch(ctx); err == nil {
			c.mu.Lock()
			c.keys, c.fetchedAt = set, now
			c.mu.Unlock()
			keys = set
		}
	} else {
		err = ErrRateLimited
	}

	if keys != nil {
		// a stale set still serves known kids while refetch is unavailable
		if k, ok := lookup(keys, kid); ok {
			return k, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

// reserveFetch records a fetch attempt if the per-minute budget allows one.
// Callers hold c.mu.
func (c *JWKSCache) reserveFetch(now time.Time) bool {
	recent := c.fetches[:0]
	for _, t := range c.fetches {
		if now.Sub(t) < jwksRateLimitInterval {
			recent = append(recent, t)
		}
	}
	c.fetches = recent
	if len(c.fetches) >= c.fetchesPerMin {
		return false
	}
	c.fetches = append(c.fetches, now)
	return true
}

func (c *JWKSCache) fetch(ctx context.Context) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jwks: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("jwks: fetch: status %d", resp.StatusCode)
	}
	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("jwks: decode: %w", err)
	}
	return &set, nil
}

func lookup(set *jose.JSONWebKeySet, kid string) (interface{}, bool) {
	for _, k := range set.Key(kid) {
		if k.Use == "" || k.Use == "sig" {
			return k.Key, true
		}
	}
	return nil, false
}
