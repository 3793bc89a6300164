package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"recruitflow/internal/models"
	"recruitflow/internal/services"
)

// DispatchHandler exposes the outbound channels directly: manual SMS resend
// and manual OA push / retry.
type DispatchHandler struct {
	sms    services.SmsDispatchService
	oaPush services.OAPushService
}

func NewDispatchHandler(
	sms services.SmsDispatchService,
	oaPush services.OAPushService,
) *DispatchHandler {
	return &DispatchHandler{
		sms:    sms,
		oaPush: oaPush,
	}
}

// HandleSendSms handles POST /candidates/:id/sms/send
func (h *DispatchHandler) HandleSendSms(c *fiber.Ctx) error {
	return h.dispatchSms(c, false)
}

// HandleRetrySms handles POST /candidates/:id/sms/retry
func (h *DispatchHandler) HandleRetrySms(c *fiber.Ctx) error {
	return h.dispatchSms(c, true)
}

func (h *DispatchHandler) dispatchSms(c *fiber.Ctx, isRetry bool) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	candidate, result, err := h.sms.DispatchScheduleSms(c.Context(), candidateID, isRetry)
	if err != nil {
		return respondError(c, err)
	}

	message := "SMS sent"
	if !result.Success {
		message = "SMS send failed"
	}
	return c.JSON(models.DispatchResponse{
		Message:   message,
		Candidate: candidate,
		Sms:       result.ToPayload(),
	})
}

// HandleOAPush handles POST /candidates/:id/oa-push
func (h *DispatchHandler) HandleOAPush(c *fiber.Ctx) error {
	return h.dispatchOAPush(c, false)
}

// HandleRetryOAPush handles POST /candidates/:id/oa-push/retry
func (h *DispatchHandler) HandleRetryOAPush(c *fiber.Ctx) error {
	return h.dispatchOAPush(c, true)
}

func (h *DispatchHandler) dispatchOAPush(c *fiber.Ctx, isRetry bool) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	candidate, result, err := h.oaPush.Dispatch(c.Context(), candidateID, isRetry)
	if err != nil {
		return respondError(c, err)
	}

	message := "OA push succeeded"
	if !result.Success {
		message = "OA push failed"
	}
	return c.JSON(models.DispatchResponse{
		Message:   message,
		Candidate: candidate,
		OAPush:    result.ToPayload(),
	})
}
