package api

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	requestIDLocalKey  = "request_id"
	maxRequestIDLength = 256
)

// RequestID extracts the caller-supplied X-Request-ID or generates one, and
// caches it in locals so every handler and log line for the request agrees.
func RequestID(c *fiber.Ctx) string {
	if cached := c.Locals(requestIDLocalKey); cached != nil {
		if str, ok := cached.(string); ok && str != "" {
			return str
		}
	}

	requestID := strings.TrimSpace(c.Get("X-Request-ID"))
	if len(requestID) > maxRequestIDLength {
		requestID = requestID[:maxRequestIDLength]
	}
	if requestID == "" {
		requestID = generateRequestID()
	}

	c.Locals(requestIDLocalKey, requestID)
	return requestID
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "req_unknown"
	}
	return "req_" + hex.EncodeToString(bytes)
}
