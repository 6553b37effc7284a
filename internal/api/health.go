package api

import (
	"context"
	"time"

	"github.com/replygate/replygate/internal/services/database"
	"github.com/replygate/replygate/internal/services/orchestrator"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports service and dependency status. Provider outages
// never mark the service unhealthy: the template fallback keeps drafting
// working with every upstream down.
type HealthHandler struct {
	orch        *orchestrator.Orchestrator
	redisClient *redis.Client
	db          *database.DB
}

func NewHealthHandler(orch *orchestrator.Orchestrator, redisClient *redis.Client, db *database.DB) *HealthHandler {
	return &HealthHandler{orch: orch, redisClient: redisClient, db: db}
}

// HealthCheck returns overall status plus per-provider breaker detail.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	checks := fiber.Map{
		"redis":    h.checkRedis(),
		"database": h.checkDatabase(),
	}

	overallStatus := "healthy"
	statusCode := fiber.StatusOK
	for _, status := range checks {
		if status != "healthy" && status != "not configured" {
			overallStatus = "degraded"
			statusCode = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
		"providers": h.orch.HealthStatus(),
	})
}

func (h *HealthHandler) checkRedis() string {
	if h.redisClient == nil {
		return "not configured"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

func (h *HealthHandler) checkDatabase() string {
	if h.db == nil {
		return "not configured"
	}
	if err := h.db.Ping(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}
