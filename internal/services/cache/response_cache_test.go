package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/replygate/replygate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(maxEntries int) *ResponseCache {
	return New(models.CacheConfig{MaxEntries: maxEntries}, nil)
}

func TestKeyNormalization(t *testing.T) {
	base := Key(models.ToneProfessional, "What are your rates?")

	assert.Equal(t, base, Key(models.ToneProfessional, "  WHAT ARE YOUR RATES?  "))
	assert.NotEqual(t, base, Key(models.TonePersonal, "What are your rates?"))

	long := strings.Repeat("a", 150)
	assert.Equal(t,
		Key(models.ToneProfessional, long),
		Key(models.ToneProfessional, long+" trailing tail ignored"))
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(10)
	ctx := context.Background()
	key := Key(models.ToneProfessional, "what lenses do you stock?")

	require.Nil(t, c.Get(ctx, key))

	c.Set(ctx, key, models.CacheEntry{Text: "We stock Canon and Sony glass.", Model: "llama-3.1-8b-instant", Confidence: 0.92}, 0)

	entry := c.Get(ctx, key)
	require.NotNil(t, entry)
	assert.Equal(t, "We stock Canon and Sony glass.", entry.Text)
	assert.False(t, entry.ExpiresAt.IsZero())
}

func TestExpiredEntryIsMiss(t *testing.T) {
	c := newTestCache(10)
	ctx := context.Background()
	key := Key(models.TonePersonal, "hey there")

	c.Set(ctx, key, models.CacheEntry{Text: "Hey!"}, time.Minute)
	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	assert.Nil(t, c.Get(ctx, key))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0, stats.MemorySize)
}

func TestEvictsOldestAccessed(t *testing.T) {
	c := newTestCache(2)
	ctx := context.Background()

	base := time.Now()
	clock := base
	c.now = func() time.Time { return clock }

	c.Set(ctx, "a", models.CacheEntry{Text: "a"}, time.Hour)
	clock = base.Add(time.Second)
	c.Set(ctx, "b", models.CacheEntry{Text: "b"}, time.Hour)

	// Touch "a" so "b" becomes the eviction candidate.
	clock = base.Add(2 * time.Second)
	require.NotNil(t, c.Get(ctx, "a"))

	clock = base.Add(3 * time.Second)
	c.Set(ctx, "c", models.CacheEntry{Text: "c"}, time.Hour)

	assert.NotNil(t, c.Get(ctx, "a"))
	assert.Nil(t, c.Get(ctx, "b"))
	assert.NotNil(t, c.Get(ctx, "c"))
}

func TestDetermineTTL(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		personalized bool
		want         time.Duration
	}{
		{"pricing info", "Our daily rate is 2000 INR.", false, ttlBusinessInfo},
		{"availability info", "We are open from 9am.", false, ttlBusinessInfo},
		{"greeting", "Hello! Welcome to the store.", false, ttlGreeting},
		{"personalized", "I checked on that for you.", false, ttlDynamic},
		{"explicitly personalized", "Let me verify that.", true, ttlDynamic},
		{"default", "The equipment list is attached.", false, ttlDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineTTL(tt.text, tt.personalized))
		})
	}
}

func TestStatsAndClear(t *testing.T) {
	c := newTestCache(10)
	ctx := context.Background()

	c.Set(ctx, "k1", models.CacheEntry{Text: "v1"}, time.Hour)
	c.Get(ctx, "k1")
	c.Get(ctx, "missing")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, "50.00%", stats.HitRate)

	c.Clear(ctx)
	stats = c.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, 0, stats.MemorySize)
}
