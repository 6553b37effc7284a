package api

import (
	"github.com/replygate/replygate/internal/services/cache"
	"github.com/replygate/replygate/internal/services/orchestrator"
	"github.com/replygate/replygate/internal/services/ratelimit"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// StatsHandler exposes the orchestrator, cache and limiter counters.
type StatsHandler struct {
	orch    *orchestrator.Orchestrator
	cache   *cache.ResponseCache
	limiter *ratelimit.Limiter
}

func NewStatsHandler(orch *orchestrator.Orchestrator, responseCache *cache.ResponseCache, limiter *ratelimit.Limiter) *StatsHandler {
	return &StatsHandler{orch: orch, cache: responseCache, limiter: limiter}
}

// Stats returns the running counters.
func (h *StatsHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"orchestrator": h.orch.Stats(),
		"cache":        h.cache.Stats(),
		"rate_limit":   h.limiter.Stats(),
	})
}

// Reset zeroes counters, closes breakers and clears the rate limiter and
// cache. Operational escape hatch, not part of the messaging flow.
func (h *StatsHandler) Reset(c *fiber.Ctx) error {
	requestID := RequestID(c)
	fiberlog.Warnf("[%s] resetting stats, breakers, limiter and cache", requestID)

	h.orch.ResetStats()
	h.limiter.Reset()
	h.cache.Clear(c.UserContext())

	return c.JSON(fiber.Map{"status": "reset"})
}
