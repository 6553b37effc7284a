package api

import (
	"fmt"
	"strconv"

	"github.com/replygate/replygate/internal/models"
	"github.com/replygate/replygate/internal/services/drafts"
	"github.com/replygate/replygate/internal/services/orchestrator"
	"github.com/replygate/replygate/internal/services/ratelimit"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// DraftsHandler serves draft generation and listing.
type DraftsHandler struct {
	orch    *orchestrator.Orchestrator
	limiter *ratelimit.Limiter
	store   *drafts.Service // nil when no database is configured
}

func NewDraftsHandler(orch *orchestrator.Orchestrator, limiter *ratelimit.Limiter, store *drafts.Service) *DraftsHandler {
	return &DraftsHandler{orch: orch, limiter: limiter, store: store}
}

// Generate drafts a reply for an incoming message. Rate limits reject up
// front with Retry-After; past admission the response is always 200, worst
// case the template reply.
func (h *DraftsHandler) Generate(c *fiber.Ctx) error {
	requestID := RequestID(c)
	fiberlog.Infof("[%s] starting draft generation", requestID)

	var req models.DraftRequest
	if err := c.BodyParser(&req); err != nil {
		fiberlog.Errorf("[%s] failed to parse request body: %v", requestID, err)
		return writeError(c, models.NewValidationError(fmt.Sprintf("invalid request body: %v", err), err), requestID)
	}

	if req.Message == "" {
		return writeError(c, models.NewValidationError("message is required", nil), requestID)
	}
	if req.Tone != "" && !req.Tone.Valid() {
		return writeError(c, models.NewValidationError(fmt.Sprintf("unknown tone %q", req.Tone), nil), requestID)
	}

	subject := req.SenderID
	if subject == "" {
		subject = "anonymous"
	}
	origin := c.IP()

	if decision := h.limiter.CheckLimit(subject, origin); !decision.Allowed {
		retryAfter := int(decision.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set("Retry-After", strconv.Itoa(retryAfter))
		fiberlog.Warnf("[%s] rate limited (%s)", requestID, decision.Reason)
		return writeError(c, models.NewRateLimitError(decision.Reason, retryAfter), requestID)
	}
	h.limiter.RecordRequest(subject, origin, "")

	tone := req.Tone
	if !tone.Valid() {
		tone = models.ToneProfessional
	}

	result := h.orch.GenerateResponse(c.UserContext(), req.Message, req.Context(), requestID)

	if h.store != nil {
		draft := &models.Draft{
			SenderID:     subject,
			SenderName:   req.SenderName,
			Message:      req.Message,
			Tone:         tone,
			Text:         result.Text,
			Model:        result.Model,
			Confidence:   result.Confidence,
			FromCache:    result.FromCache,
			IsFallback:   result.IsFallback,
			ResponseTime: result.ResponseTime,
		}
		if err := h.store.Save(c.UserContext(), draft); err != nil {
			fiberlog.Warnf("[%s] failed to persist draft: %v", requestID, err)
		}
	}

	return c.JSON(result)
}

// List returns recently generated drafts, newest first.
func (h *DraftsHandler) List(c *fiber.Ctx) error {
	requestID := RequestID(c)

	if h.store == nil {
		return writeError(c, models.NewInternalError("draft storage is not configured", nil), requestID)
	}

	filter := drafts.ListFilter{
		SenderID: c.Query("sender_id"),
		Tone:     models.Tone(c.Query("tone")),
	}
	if filter.Tone != "" && !filter.Tone.Valid() {
		return writeError(c, models.NewValidationError(fmt.Sprintf("unknown tone %q", filter.Tone), nil), requestID)
	}
	if limit := c.QueryInt("limit"); limit > 0 {
		filter.Limit = limit
	}

	out, err := h.store.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err, requestID)
	}

	return c.JSON(fiber.Map{"drafts": out, "count": len(out)})
}
