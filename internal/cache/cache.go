// Package cache keeps encoded valuations in Redis for the dashboard endpoint,
// with stale-while-revalidate semantics.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/yourorg/valuation-api/internal/canon"
	"github.com/yourorg/valuation-api/internal/redisx"
	"github.com/yourorg/valuation-api/internal/valuation"
)

const (
	DefaultTTL        = time.Hour
	DefaultStaleAfter = 5 * time.Minute
	lockTTL           = 8 * time.Second
)

// Envelope is the cached form of one valuation.
type Envelope struct {
	Identifier   string              `json:"identifier"`
	Type         string              `json:"type"`
	Composite    valuation.Composite `json:"composite"`
	PayloadHex   string              `json:"payload_hex"`
	UsedFallback bool                `json:"used_fallback"`
	FetchedAt    time.Time           `json:"fetched_at"`
	StaleAfter   time.Time           `json:"stale_after"`
}

type Cache struct {
	r          *redisx.Client
	ttl        time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func New(r *redisx.Client, ttl, staleAfter time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if staleAfter <= 0 || staleAfter > ttl {
		staleAfter = DefaultStaleAfter
	}
	return &Cache{r: r, ttl: ttl, staleAfter: staleAfter, now: time.Now}
}

// Key builds the cache key for a request. ok is false when the identifier
// has no canonical form, in which case the request must not be cached.
func Key(typ valuation.RequestType, identifier string) (key string, ok bool) {
	pk := canon.Key(identifier)
	if pk == "" {
		return "", false
	}
	return "valuation:" + string(typ) + ":" + pk, true
}

// Get returns the envelope under key and whether it is past its stale mark.
// A missing key yields redisx.ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) (Envelope, bool, error) {
	b, err := c.r.Get(ctx, key)
	if err != nil {
		return Envelope{}, false, err
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		_ = c.r.Del(ctx, key)
		return Envelope{}, false, redisx.ErrMiss
	}
	return env, c.now().After(env.StaleAfter), nil
}

// Put stores env under key, stamping its freshness window.
func (c *Cache) Put(ctx context.Context, key string, env Envelope) (Envelope, error) {
	env.FetchedAt = c.now().UTC()
	env.StaleAfter = env.FetchedAt.Add(c.staleAfter)
	b, err := json.Marshal(env)
	if err != nil {
		return env, err
	}
	return env, c.r.Set(ctx, key, b, c.ttl)
}

// Lock takes a short per-key lock so concurrent misses compute once.
func (c *Cache) Lock(ctx context.Context, key string) bool {
	ok, err := c.r.SetNX(ctx, "lock:"+key, "1", lockTTL)
	if err != nil {
		// redis trouble should not block serving
		return true
	}
	return ok
}

func (c *Cache) Unlock(ctx context.Context, key string) {
	_ = c.r.Del(ctx, "lock:"+key)
}

// IsMiss reports whether err means "not cached".
func IsMiss(err error) bool { return errors.Is(err, redisx.ErrMiss) }
