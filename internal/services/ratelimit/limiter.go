package ratelimit

import (
	"sync"
	"time"

	"github.com/replygate/replygate/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Rejection reasons returned by CheckLimit.
const (
	ReasonGlobalLimit = "global_limit"
	ReasonUserLimit   = "user_limit"
	ReasonIPLimit     = "ip_limit"
)

// whitelistFloor pins a whitelisted subject's counter so far below zero that
// the limit is unreachable within any window.
const whitelistFloor = -1 << 30

// Decision is the outcome of a CheckLimit call.
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Reason     string        `json:"reason,omitzero"`
	RetryAfter time.Duration `json:"retry_after,omitzero"`
}

// QuotaStatus is a side-effect-free view of one provider's call budget.
type QuotaStatus struct {
	Available bool      `json:"available"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at,omitzero"`
}

// window is one fixed-window counter. The count is valid only until resetAt;
// any read or write past that point starts a fresh window at zero. A caller
// can therefore burst up to twice the nominal limit across a window edge --
// an accepted property of fixed windows, not a defect.
type window struct {
	count   int
	resetAt time.Time
}

type quota struct {
	used    int
	limit   int
	resetAt time.Time
	period  time.Duration
}

// Limiter bounds request volume per subject, per origin IP and globally over
// fixed windows, and separately tracks each provider's external call budget
// with its own reset cadence.
type Limiter struct {
	mu sync.Mutex

	limits models.RateLimitConfig

	subjects map[string]*window
	origins  map[string]*window
	global   window

	quotas map[string]*quota

	now func() time.Time
}

// New builds a limiter from the configured limits and provider quotas.
func New(limits models.RateLimitConfig, providers map[string]models.ProviderConfig) *Limiter {
	limits = limits.WithDefaults()

	l := &Limiter{
		limits:   limits,
		subjects: make(map[string]*window),
		origins:  make(map[string]*window),
		quotas:   make(map[string]*quota),
		now:      time.Now,
	}
	l.global = window{resetAt: l.now().Add(limits.Window())}

	for name, pc := range providers {
		if pc.Quota.Limit <= 0 {
			continue // unlimited, typically a local backend
		}
		period := pc.Quota.ResetIntervalDuration()
		l.quotas[name] = &quota{
			limit:   pc.Quota.Limit,
			resetAt: l.now().Add(period),
			period:  period,
		}
	}

	fiberlog.Debugf("RateLimiter: initialized (per user: %d, per ip: %d, global: %d, window: %v, quotas: %d)",
		limits.PerUser, limits.PerIP, limits.Global, limits.Window(), len(l.quotas))
	return l
}

// CheckLimit evaluates the global, per-subject and per-origin counters in
// that order; the first exceeded limit decides the rejection reason and the
// retry-after derived from that counter's window reset.
func (l *Limiter) CheckLimit(subjectID, originID string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.After(l.global.resetAt) {
		l.global = window{resetAt: now.Add(l.limits.Window())}
	}
	if l.global.count >= l.limits.Global {
		fiberlog.Warnf("RateLimiter: global limit exceeded (%d/%d)", l.global.count, l.limits.Global)
		return Decision{Allowed: false, Reason: ReasonGlobalLimit, RetryAfter: l.retryAfter(l.global.resetAt, now)}
	}

	w := l.currentWindow(l.subjects, subjectID, now)
	if w.count >= l.limits.PerUser {
		fiberlog.Warnf("RateLimiter: user limit exceeded: %s", subjectID)
		return Decision{Allowed: false, Reason: ReasonUserLimit, RetryAfter: l.retryAfter(w.resetAt, now)}
	}

	if originID != "" {
		w := l.currentWindow(l.origins, originID, now)
		if w.count >= l.limits.PerIP {
			fiberlog.Warnf("RateLimiter: ip limit exceeded: %s", originID)
			return Decision{Allowed: false, Reason: ReasonIPLimit, RetryAfter: l.retryAfter(w.resetAt, now)}
		}
	}

	return Decision{Allowed: true}
}

// RecordRequest increments the global, subject and origin counters plus the
// named provider's quota counter.
func (l *Limiter) RecordRequest(subjectID, originID, provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.After(l.global.resetAt) {
		l.global = window{resetAt: now.Add(l.limits.Window())}
	}
	l.global.count++

	l.currentWindow(l.subjects, subjectID, now).count++
	if originID != "" {
		l.currentWindow(l.origins, originID, now).count++
	}

	if q, ok := l.quotas[provider]; ok {
		l.refreshQuota(q, now)
		q.used++
	}
}

// RecordProviderCall charges one call against a provider's budget without
// touching the request-volume windows. Providers without a configured quota
// are a no-op.
func (l *Limiter) RecordProviderCall(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if q, ok := l.quotas[provider]; ok {
		l.refreshQuota(q, l.now())
		q.used++
	}
}

// CheckAPIQuota is a side-effect-free read of one provider's budget, used to
// skip a provider proactively before attempting a call. Providers without a
// configured quota are always available.
func (l *Limiter) CheckAPIQuota(provider string) QuotaStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.quotas[provider]
	if !ok {
		return QuotaStatus{Available: true}
	}

	l.refreshQuota(q, l.now())

	remaining := q.limit - q.used
	if remaining < 0 {
		remaining = 0
	}
	if remaining == 0 {
		fiberlog.Warnf("RateLimiter: %s quota exhausted (%d/%d)", provider, q.used, q.limit)
	}

	return QuotaStatus{
		Available: remaining > 0,
		Used:      q.used,
		Limit:     q.limit,
		Remaining: remaining,
		ResetAt:   q.resetAt,
	}
}

// Whitelist gives a subject effectively unlimited access by pinning its
// counter far below zero. The override lasts until the window lapses.
func (l *Limiter) Whitelist(subjectID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fiberlog.Infof("RateLimiter: whitelisted subject %s", subjectID)
	l.currentWindow(l.subjects, subjectID, l.now()).count = whitelistFloor
}

// Blacklist blocks a subject by pinning its counter at the limit. Like the
// whitelist this is window-scoped, not permanent.
func (l *Limiter) Blacklist(subjectID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fiberlog.Infof("RateLimiter: blacklisted subject %s", subjectID)
	l.currentWindow(l.subjects, subjectID, l.now()).count = l.limits.PerUser
}

// Stats reports the current counters for the stats endpoint.
func (l *Limiter) Stats() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	quotas := make(map[string]QuotaStatus, len(l.quotas))
	for name, q := range l.quotas {
		l.refreshQuota(q, now)
		remaining := q.limit - q.used
		if remaining < 0 {
			remaining = 0
		}
		quotas[name] = QuotaStatus{
			Available: remaining > 0,
			Used:      q.used,
			Limit:     q.limit,
			Remaining: remaining,
			ResetAt:   q.resetAt,
		}
	}

	return map[string]any{
		"global": map[string]any{
			"count":    l.global.count,
			"limit":    l.limits.Global,
			"reset_at": l.global.resetAt,
		},
		"active_subjects": len(l.subjects),
		"active_origins":  len(l.origins),
		"api_quotas":      quotas,
	}
}

// Reset clears all counters and quotas, for tests and admin use.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.subjects = make(map[string]*window)
	l.origins = make(map[string]*window)
	l.global = window{resetAt: now.Add(l.limits.Window())}
	for _, q := range l.quotas {
		q.used = 0
		q.resetAt = now.Add(q.period)
	}

	fiberlog.Info("RateLimiter: all limits reset")
}

// currentWindow returns the live window for a key, lazily starting a fresh
// one when none exists or the previous window has lapsed. Must be called
// with l.mu held.
func (l *Limiter) currentWindow(m map[string]*window, key string, now time.Time) *window {
	w, ok := m[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.limits.Window())}
		m[key] = w
	}
	return w
}

// refreshQuota rolls the quota into a fresh period if the previous one has
// lapsed. Must be called with l.mu held.
func (l *Limiter) refreshQuota(q *quota, now time.Time) {
	if now.After(q.resetAt) {
		q.used = 0
		q.resetAt = now.Add(q.period)
	}
}

func (l *Limiter) retryAfter(resetAt, now time.Time) time.Duration {
	d := resetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
