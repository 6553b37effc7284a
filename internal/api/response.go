package api

import (
	"errors"

	"github.com/replygate/replygate/internal/models"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error information.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitzero"`
}

// writeError maps an error onto the envelope. Typed application errors keep
// their status code and taxonomy; everything else becomes a 500.
func writeError(c *fiber.Ctx, err error, requestID string) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.GetStatusCode()).JSON(ErrorResponse{
			Error: ErrorDetail{
				Message: appErr.Message,
				Type:    string(appErr.Type),
				Code:    appErr.Code,
			},
		})
	}

	fiberlog.Errorf("[%s] unhandled error: %v", requestID, err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: ErrorDetail{
			Message: "internal server error",
			Type:    string(models.ErrorTypeInternal),
		},
	})
}
