package engine

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Keys look like "ga:transcript:dQw4w9WgXcQ". The kind selects the TTL.
const cachePrefix = "ga:"

// IDs longer than this, or carrying separators, are hashed into the key.
const maxReadableID = 64

// CacheOptions configures InitCache. RedisURL may be empty to run L1 only.
type CacheOptions struct {
	RedisURL        string
	TTL             time.Duration
	KindTTL         map[string]time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// CacheCounters is a snapshot of cache activity.
type CacheCounters struct {
	Hits      int64
	Misses    int64
	Shared    int64 // calls served by a load shared with other callers
	Evictions int64
}

var (
	contentCache *tieredCache
	cacheGroup   singleflight.Group
)

var cacheStats struct {
	hits, misses, shared, evictions atomic.Int64
}

// tieredCache is a bounded LRU in memory (L1) in front of Redis (L2).
type tieredCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List // front is most recently used
	rdb        *redis.Client
	ttl        time.Duration
	kindTTL    map[string]time.Duration
	maxEntries int
	stop       chan struct{}
}

type cacheEntry struct {
	key       string
	data      []byte
	expiresAt time.Time
}

// InitCache replaces the engine cache. Call after Init().
func InitCache(opts CacheOptions) {
	c := &tieredCache{
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		ttl:        opts.TTL,
		kindTTL:    opts.KindTTL,
		maxEntries: opts.MaxEntries,
		stop:       make(chan struct{}),
	}
	if c.ttl <= 0 {
		c.ttl = time.Hour
	}
	if opts.RedisURL != "" {
		c.rdb = connectRedis(opts.RedisURL)
	}

	if prev := contentCache; prev != nil {
		close(prev.stop)
	}
	contentCache = c
	slog.Info("cache: initialized",
		slog.Duration("ttl", c.ttl),
		slog.Bool("redis", c.rdb != nil),
		slog.Int("max_entries", c.maxEntries),
	)

	interval := opts.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go c.sweepLoop(interval)
}

func connectRedis(redisURL string) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		return nil
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
		_ = rdb.Close()
		return nil
	}
	slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
	return rdb
}

// CacheKey builds the key for one record of a kind.
func CacheKey(kind, id string) string {
	id = strings.TrimSpace(id)
	if len(id) > maxReadableID || strings.ContainsAny(id, ": \t\n") {
		sum := sha256.Sum256([]byte(id))
		id = hex.EncodeToString(sum[:12])
	}
	return cachePrefix + kind + ":" + id
}

func cacheKind(key string) string {
	kind, _, _ := strings.Cut(strings.TrimPrefix(key, cachePrefix), ":")
	return kind
}

func (c *tieredCache) ttlFor(key string) time.Duration {
	if ttl, ok := c.kindTTL[cacheKind(key)]; ok && ttl > 0 {
		return ttl
	}
	return c.ttl
}

// CacheGet tries L1, then L2. An L2 hit is copied into L1.
func CacheGet(ctx context.Context, key string) ([]byte, bool) {
	c := contentCache
	if c == nil {
		cacheStats.misses.Add(1)
		return nil, false
	}
	if data, ok := c.get(key); ok {
		slog.Debug("cache: L1 hit", slog.String("key", key))
		cacheStats.hits.Add(1)
		return data, true
	}
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			slog.Debug("cache: L2 hit", slog.String("key", key))
			cacheStats.hits.Add(1)
			c.put(key, data)
			return data, true
		case !errors.Is(err, redis.Nil):
			slog.Debug("cache: L2 get failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	cacheStats.misses.Add(1)
	return nil, false
}

// CacheSet stores data in both tiers under the TTL of its kind.
func CacheSet(ctx context.Context, key string, data []byte) {
	c := contentCache
	if c == nil {
		return
	}
	c.put(key, data)
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttlFor(key)).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.String("key", key), slog.Any("error", err))
		}
	}
}

// CacheStats returns the current counters.
func CacheStats() CacheCounters {
	return CacheCounters{
		Hits:      cacheStats.hits.Load(),
		Misses:    cacheStats.misses.Load(),
		Shared:    cacheStats.shared.Load(),
		Evictions: cacheStats.evictions.Load(),
	}
}

func (c *tieredCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*cacheEntry)
	if time.Now().After(e.expiresAt) {
		c.remove(el)
		return nil, false
	}
	c.lru.MoveToFront(el)
	return e.data, true
}

func (c *tieredCache) put(key string, data []byte) {
	expires := time.Now().Add(c.ttlFor(key))
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*cacheEntry)
		e.data, e.expiresAt = data, expires
		c.lru.MoveToFront(el)
		return
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, data: data, expiresAt: expires})
	for c.maxEntries > 0 && c.lru.Len() > c.maxEntries {
		c.remove(c.lru.Back())
		cacheStats.evictions.Add(1)
	}
}

// remove drops el. Caller holds mu.
func (c *tieredCache) remove(el *list.Element) {
	c.lru.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).key)
}

// sweep drops expired L1 entries. Kinds have different TTLs, so expiry is
// not ordered by recency and the whole list is walked.
func (c *tieredCache) sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*cacheEntry).expiresAt) {
			c.remove(el)
			n++
		}
		el = prev
	}
	return n
}

func (c *tieredCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			if n := c.sweep(now); n > 0 {
				slog.Debug("cache: swept expired entries", slog.Int("count", n))
			}
		}
	}
}

// CacheLoadJSON loads a cached value of type T.
// A miss or a decode error returns the zero value and false.
func CacheLoadJSON[T any](ctx context.Context, key string) (T, bool) {
	var out T
	data, ok := CacheGet(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it in the engine cache.
func CacheStoreJSON[T any](ctx context.Context, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSet(ctx, key, data)
}

// CacheFetchJSON returns the cached T for key. On a miss, load runs once per
// key across concurrent callers and its result is stored when keep accepts
// it. Errors are never cached. The shared load is detached from the leader's
// cancellation and deadline: callers joined to it are not failed when the
// leader gives up. load must bound its own I/O.
func CacheFetchJSON[T any](ctx context.Context, key string, load func(context.Context) (T, error), keep func(T) bool) (T, error) {
	if v, ok := CacheLoadJSON[T](ctx, key); ok && keep(v) {
		return v, nil
	}
	loadCtx := context.WithoutCancel(ctx)
	res, err, shared := cacheGroup.Do(key, func() (any, error) {
		v, err := load(loadCtx)
		if err == nil && keep(v) {
			CacheStoreJSON(loadCtx, key, v)
		}
		return v, err
	})
	if shared {
		cacheStats.shared.Add(1)
	}
	v, _ := res.(T)
	return v, err
}
