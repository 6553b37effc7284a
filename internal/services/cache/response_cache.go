package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/replygate/replygate/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "replygate:response:"

	// Max runes of the lower-cased message that participate in the cache
	// key. Near-duplicate long messages hash identically on purpose: the
	// truncation trades exactness for hit rate.
	keyMessageLimit = 100

	durableTimeout = 2 * time.Second
)

// TTL classes chosen at write time from content heuristics.
const (
	ttlBusinessInfo = 12 * time.Hour
	ttlGreeting     = 1 * time.Hour
	ttlDynamic      = 15 * time.Minute
	ttlDefault      = 1 * time.Hour
)

var (
	businessInfoPattern = regexp.MustCompile(`(?i)price|cost|rate|hour|day|available|open|close`)
	greetingPattern     = regexp.MustCompile(`(?i)hello|hi|hey|thank|welcome|greet`)
)

// Stats are the cache's running counters.
type Stats struct {
	Hits        int64  `json:"hits"`
	Misses      int64  `json:"misses"`
	Sets        int64  `json:"sets"`
	MemoryHits  int64  `json:"memory_hits"`
	DurableHits int64  `json:"durable_hits"`
	HitRate     string `json:"hit_rate"`
	MemorySize  int    `json:"memory_size"`
}

type memoryEntry struct {
	value      models.CacheEntry
	lastAccess time.Time
}

// ResponseCache is a two-tier store for generated replies: a bounded
// in-process map in front of an optional Redis durable tier. Durable hits
// are promoted into the memory tier; expired durable entries are deleted on
// read. With no Redis client the cache runs memory-only.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry

	maxEntries int
	client     *redis.Client

	hits        int64
	misses      int64
	sets        int64
	memoryHits  int64
	durableHits int64

	now func() time.Time
}

// New builds the cache. client may be nil.
func New(cfg models.CacheConfig, client *redis.Client) *ResponseCache {
	cfg = cfg.WithDefaults()

	tier := "memory only"
	if client != nil {
		tier = "memory + redis"
	}
	fiberlog.Debugf("ResponseCache: initialized (%s, max entries: %d)", tier, cfg.MaxEntries)

	return &ResponseCache{
		entries:    make(map[string]*memoryEntry),
		maxEntries: cfg.MaxEntries,
		client:     client,
		now:        time.Now,
	}
}

// Key builds the normalized cache key for a request: the tone plus the
// lower-cased message truncated to a fixed rune budget.
func Key(tone models.Tone, message string) string {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if runes := []rune(normalized); len(runes) > keyMessageLimit {
		normalized = string(runes[:keyMessageLimit])
	}
	return string(tone) + ":" + normalized
}

// Get looks in the memory tier first, then the durable tier. A durable hit
// is promoted into memory before returning.
func (c *ResponseCache) Get(ctx context.Context, key string) *models.CacheEntry {
	hashed := hashKey(key)
	now := c.now()

	c.mu.Lock()
	if me, ok := c.entries[hashed]; ok {
		if me.value.Expired(now) {
			delete(c.entries, hashed)
		} else {
			me.lastAccess = now
			value := me.value
			c.hits++
			c.memoryHits++
			c.mu.Unlock()
			fiberlog.Debugf("ResponseCache: memory hit: %s", truncateForLog(key))
			return &value
		}
	}
	c.mu.Unlock()

	if c.client != nil {
		if entry := c.getDurable(ctx, hashed); entry != nil {
			c.mu.Lock()
			c.promote(hashed, *entry, now)
			c.hits++
			c.durableHits++
			c.mu.Unlock()
			fiberlog.Debugf("ResponseCache: durable hit (promoted): %s", truncateForLog(key))
			return entry
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil
}

// Set stores an entry under the key. A zero ttl derives one from content
// heuristics. The durable write is fire-and-forget so a slow Redis never
// stalls the generation path.
func (c *ResponseCache) Set(ctx context.Context, key string, entry models.CacheEntry, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DetermineTTL(entry.Text, false)
	}

	now := c.now()
	entry.CachedAt = now
	entry.ExpiresAt = now.Add(ttl)

	hashed := hashKey(key)

	c.mu.Lock()
	c.promote(hashed, entry, now)
	c.sets++
	c.mu.Unlock()

	if c.client != nil {
		go c.setDurable(hashed, entry, ttl)
	}

	fiberlog.Debugf("ResponseCache: stored %s (ttl: %v)", truncateForLog(key), ttl)
}

// DetermineTTL picks the TTL class for a generated reply. Pricing and
// availability vocabulary gets the long business TTL, greetings a medium
// one, personalized content a short one.
func DetermineTTL(text string, personalized bool) time.Duration {
	lower := strings.ToLower(text)

	if businessInfoPattern.MatchString(lower) {
		return ttlBusinessInfo
	}
	if greetingPattern.MatchString(lower) {
		return ttlGreeting
	}
	if personalized || strings.Contains(lower, "you") || strings.Contains(lower, "your") {
		return ttlDynamic
	}
	return ttlDefault
}

// Stats reports the cache's counters.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := "0%"
	if total > 0 {
		hitRate = fmt.Sprintf("%.2f%%", float64(c.hits)/float64(total)*100)
	}

	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Sets:        c.sets,
		MemoryHits:  c.memoryHits,
		DurableHits: c.durableHits,
		HitRate:     hitRate,
		MemorySize:  len(c.entries),
	}
}

// Clear empties both tiers and resets the counters.
func (c *ResponseCache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]*memoryEntry)
	c.hits, c.misses, c.sets, c.memoryHits, c.durableHits = 0, 0, 0, 0, 0
	c.mu.Unlock()

	if c.client != nil {
		if deleted, err := c.deleteByPrefix(ctx); err != nil {
			fiberlog.Warnf("ResponseCache: failed to clear durable tier: %v", err)
		} else {
			fiberlog.Infof("ResponseCache: durable tier cleared (%d entries)", deleted)
		}
	}
}

// Sweep prunes expired entries from the durable tier. Redis expires keys by
// TTL on its own; the sweep additionally removes entries whose payload
// expiry disagrees with the key TTL, and is cheap enough to run on a timer.
func (c *ResponseCache) Sweep(ctx context.Context) (int, error) {
	if c.client == nil {
		return 0, nil
	}

	now := c.now()
	var cleaned int

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		redisKey := iter.Val()
		data, err := c.client.Get(ctx, redisKey).Bytes()
		if err != nil {
			continue
		}

		var entry models.CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil || entry.Expired(now) {
			// Corrupt payloads are swept along with expired ones.
			if err := c.client.Del(ctx, redisKey).Err(); err == nil {
				cleaned++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return cleaned, fmt.Errorf("durable tier scan failed: %w", err)
	}

	if cleaned > 0 {
		fiberlog.Infof("ResponseCache: swept %d expired durable entries", cleaned)
	}
	return cleaned, nil
}

// promote inserts into the memory tier, evicting the oldest-accessed entry
// when full. Must be called with c.mu held.
func (c *ResponseCache) promote(hashed string, entry models.CacheEntry, now time.Time) {
	if _, ok := c.entries[hashed]; !ok && len(c.entries) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, me := range c.entries {
			if oldestKey == "" || me.lastAccess.Before(oldest) {
				oldestKey = k
				oldest = me.lastAccess
			}
		}
		delete(c.entries, oldestKey)
	}
	c.entries[hashed] = &memoryEntry{value: entry, lastAccess: now}
}

func (c *ResponseCache) getDurable(ctx context.Context, hashed string) *models.CacheEntry {
	ctx, cancel := context.WithTimeout(ctx, durableTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, keyPrefix+hashed).Bytes()
	if err != nil {
		if err != redis.Nil {
			fiberlog.Warnf("ResponseCache: durable read error: %v", err)
		}
		return nil
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		fiberlog.Warnf("ResponseCache: corrupt durable entry, deleting: %v", err)
		c.client.Del(ctx, keyPrefix+hashed)
		return nil
	}

	if entry.Expired(c.now()) {
		c.client.Del(ctx, keyPrefix+hashed)
		return nil
	}
	return &entry
}

func (c *ResponseCache) setDurable(hashed string, entry models.CacheEntry, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), durableTimeout)
	defer cancel()

	data, err := json.Marshal(entry)
	if err != nil {
		fiberlog.Warnf("ResponseCache: failed to encode durable entry: %v", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+hashed, data, ttl).Err(); err != nil {
		fiberlog.Warnf("ResponseCache: durable write error: %v", err)
	}
}

func (c *ResponseCache) deleteByPrefix(ctx context.Context) (int, error) {
	var deleted int
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err == nil {
			deleted++
		}
	}
	return deleted, iter.Err()
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", sum[:16])
}

func truncateForLog(key string) string {
	if len(key) > 40 {
		return key[:40] + "..."
	}
	return key
}
