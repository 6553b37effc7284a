package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/replygate/replygate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimits() models.RateLimitConfig {
	return models.RateLimitConfig{
		PerUser:  3,
		PerIP:    5,
		Global:   10,
		WindowMs: 60000,
	}
}

func testProviders() map[string]models.ProviderConfig {
	return map[string]models.ProviderConfig{
		"groq": {
			Quota: models.QuotaConfig{Limit: 2, ResetInterval: "24h"},
		},
		"gemini": {
			Quota: models.QuotaConfig{Limit: 100, ResetInterval: "1m"},
		},
		"ollama": {Local: true}, // no quota: unlimited
	}
}

func TestUserLimitExceeded(t *testing.T) {
	l := New(testLimits(), testProviders())

	for i := 0; i < 3; i++ {
		d := l.CheckLimit("user-1", "10.0.0.1")
		require.True(t, d.Allowed, "request %d should be allowed", i+1)
		l.RecordRequest("user-1", "10.0.0.1", "groq")
	}

	d := l.CheckLimit("user-1", "10.0.0.1")
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUserLimit, d.Reason)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	// A different subject on the same origin is unaffected.
	assert.True(t, l.CheckLimit("user-2", "10.0.0.1").Allowed)
}

func TestIPLimitExceeded(t *testing.T) {
	l := New(testLimits(), nil)

	for i := 0; i < 5; i++ {
		l.RecordRequest(fmt.Sprintf("user-%d", i), "10.0.0.9", "groq")
	}

	d := l.CheckLimit("user-fresh", "10.0.0.9")
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonIPLimit, d.Reason)

	// No origin provided skips the IP check entirely.
	assert.True(t, l.CheckLimit("user-fresh", "").Allowed)
}

func TestGlobalLimitExceeded(t *testing.T) {
	l := New(testLimits(), nil)

	for i := 0; i < 10; i++ {
		l.RecordRequest(fmt.Sprintf("user-%d", i), fmt.Sprintf("10.0.0.%d", i), "groq")
	}

	d := l.CheckLimit("user-new", "10.0.1.1")
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonGlobalLimit, d.Reason)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

func TestWindowResetsLazily(t *testing.T) {
	l := New(testLimits(), nil)

	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		l.RecordRequest("user-1", "", "groq")
	}
	require.False(t, l.CheckLimit("user-1", "").Allowed)

	// Past the window edge the counter starts over at zero.
	now = now.Add(61 * time.Second)
	assert.True(t, l.CheckLimit("user-1", "").Allowed)
}

func TestAPIQuota(t *testing.T) {
	l := New(testLimits(), testProviders())

	q := l.CheckAPIQuota("groq")
	assert.True(t, q.Available)
	assert.Equal(t, 2, q.Remaining)

	l.RecordRequest("user-1", "", "groq")
	l.RecordRequest("user-1", "", "groq")

	q = l.CheckAPIQuota("groq")
	assert.False(t, q.Available)
	assert.Equal(t, 2, q.Used)
	assert.Equal(t, 0, q.Remaining)

	// CheckAPIQuota is a pure read: repeating it changes nothing.
	assert.False(t, l.CheckAPIQuota("groq").Available)

	// Unlimited providers are always available.
	assert.True(t, l.CheckAPIQuota("ollama").Available)
}

func TestQuotaResetsAfterInterval(t *testing.T) {
	l := New(testLimits(), testProviders())

	now := time.Now()
	l.now = func() time.Time { return now }

	l.RecordRequest("user-1", "", "gemini")
	require.Equal(t, 1, l.CheckAPIQuota("gemini").Used)

	now = now.Add(61 * time.Second)
	q := l.CheckAPIQuota("gemini")
	assert.Equal(t, 0, q.Used)
	assert.True(t, q.Available)
}

func TestWhitelistAndBlacklist(t *testing.T) {
	l := New(testLimits(), nil)

	l.Whitelist("vip")
	for i := 0; i < 50; i++ {
		require.True(t, l.CheckLimit("vip", "").Allowed)
		l.RecordRequest("vip", "", "groq")
	}

	l.Blacklist("abuser")
	d := l.CheckLimit("abuser", "")
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUserLimit, d.Reason)
}

func TestReset(t *testing.T) {
	l := New(testLimits(), testProviders())

	for i := 0; i < 3; i++ {
		l.RecordRequest("user-1", "", "groq")
	}
	require.False(t, l.CheckLimit("user-1", "").Allowed)

	l.Reset()
	assert.True(t, l.CheckLimit("user-1", "").Allowed)
	assert.Equal(t, 0, l.CheckAPIQuota("groq").Used)
}
