package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"recruitflow/internal/repositories"
	"recruitflow/internal/services"
)

// respondError maps service errors onto HTTP responses. Business-rule
// violations carry their own code and status hint; a missing candidate is a
// 404; everything else is an opaque 500.
func respondError(c *fiber.Ctx, err error) error {
	var flowErr *services.FlowError
	if errors.As(err, &flowErr) {
		body := fiber.Map{
			"error":      flowErr.Message,
			"error_code": flowErr.Code,
		}
		if len(flowErr.Details) > 0 {
			body["details"] = flowErr.Details
		}
		return c.Status(flowErr.StatusCode).JSON(body)
	}
	if errors.Is(err, repositories.ErrCandidateNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Candidate not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}
