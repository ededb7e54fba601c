package embedclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cachedClient memoizes Embed by (client id, content hash) in an in-process
// expiring LRU. Purely a performance optimization: it never substitutes for
// the dimension-mismatch check, and a cache hit still reports the client's
// current advertised dimension. Grounded on the teacher's
// internal/embedcache/embedder_cache_lru.go decorator.
type cachedClient struct {
	next  Client
	cache *expirable.LRU[string, []float32]
}

// WithMemoization wraps a Client with an in-process LRU so repeated chunk
// content (common across near-duplicate files or re-chunked overlaps) skips
// the network round trip.
func WithMemoization(next Client, size int, ttl time.Duration) Client {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &cachedClient{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

func (c *cachedClient) ID() string {
	return c.next.ID()
}

func (c *cachedClient) Dimension() int {
	return c.next.Dimension()
}

func (c *cachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.next.ID(), text)
	if cached, ok := c.cache.Get(key); ok {
		return cloneVector(cached), nil
	}
	values, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cloneVector(values))
	return values, nil
}

func cacheKey(id, text string) string {
	sum := sha256.Sum256([]byte(text))
	return id + ":" + hex.EncodeToString(sum[:])
}

func cloneVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
