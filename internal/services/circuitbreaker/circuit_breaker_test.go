package circuitbreaker

import (
	"testing"
	"time"

	"github.com/replygate/replygate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() models.CircuitBreakerConfig {
	return models.CircuitBreakerConfig{
		FailureThreshold:    5,
		ResetTimeoutMs:      30000,
		HalfOpenMaxAttempts: 3,
	}
}

func TestBreakerOpensAtFailureThreshold(t *testing.T) {
	cb := New("groq", testConfig())

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
		assert.Equal(t, Closed, cb.GetState(), "breaker must stay closed below threshold")
	}

	cb.RecordFailure()
	assert.Equal(t, Open, cb.GetState())
	assert.False(t, cb.CanAttempt())
}

func TestBreakerHalfOpenAfterResetTimeout(t *testing.T) {
	cb := New("groq", testConfig())

	now := time.Now()
	cb.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, Open, cb.GetState())
	require.False(t, cb.CanAttempt())

	// Transition is lazy: it is the CanAttempt call after the cooldown
	// that moves the breaker to half_open.
	now = now.Add(31 * time.Second)
	assert.True(t, cb.CanAttempt())
	assert.Equal(t, HalfOpen, cb.GetState())

	cb.RecordSuccess()
	assert.Equal(t, Closed, cb.GetState())

	snap := cb.Snapshot()
	assert.Equal(t, 0, snap.FailureCount)
}

func TestBreakerHalfOpenFailuresReopen(t *testing.T) {
	cb := New("gemini", testConfig())

	now := time.Now()
	cb.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	now = now.Add(31 * time.Second)
	require.True(t, cb.CanAttempt())
	require.Equal(t, HalfOpen, cb.GetState())

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	assert.Equal(t, Open, cb.GetState())
	assert.False(t, cb.CanAttempt())
}

func TestClosedSuccessDecrementsFailureCount(t *testing.T) {
	cb := New("ollama", testConfig())

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordFailure()

	// Leaky-bucket recovery: one success removes one failure, not all.
	cb.RecordSuccess()
	assert.Equal(t, 2, cb.Snapshot().FailureCount)

	cb.RecordSuccess()
	cb.RecordSuccess()
	cb.RecordSuccess()
	assert.Equal(t, 0, cb.Snapshot().FailureCount)
}

func TestResetForcesClosed(t *testing.T) {
	cb := New("groq", testConfig())

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, Open, cb.GetState())

	cb.Reset()
	assert.Equal(t, Closed, cb.GetState())
	assert.True(t, cb.CanAttempt())

	snap := cb.Snapshot()
	assert.Equal(t, 0, snap.FailureCount)
	assert.Nil(t, snap.LastFailure)
}
