package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"recruitflow/internal/models"
	"recruitflow/internal/services"
)

type HireHandler struct {
	offers services.OfferService
	oaPush services.OAPushService
	logger *zap.Logger
}

func NewHireHandler(
	offers services.OfferService,
	oaPush services.OAPushService,
	logger *zap.Logger,
) *HireHandler {
	return &HireHandler{
		offers: offers,
		oaPush: oaPush,
		logger: logger,
	}
}

// HandleConfirmHire handles POST /candidates/:id/confirm-hire
//
// The OA push runs after the confirm has committed, so a vendor outage can
// never roll back the hire. A failed push is reported inline and retried via
// the dedicated retry endpoint.
func (h *HireHandler) HandleConfirmHire(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	var req models.ConfirmHireRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	candidate, err := h.offers.ConfirmHire(c.Context(), candidateID)
	if err != nil {
		return respondError(c, err)
	}

	response := models.ConfirmHireResponse{
		Message:   "Hire confirmed",
		Candidate: candidate,
	}

	if req.PushOA {
		updated, result, err := h.oaPush.Dispatch(c.Context(), candidateID, false)
		if err != nil {
			h.logger.Warn("OA push after confirm failed",
				zap.String("candidate_id", candidateID.String()),
				zap.Error(err),
			)
			response.OAPush = &models.OAPushResultPayload{
				Success:      false,
				ErrorCode:    services.OAErrorRuntime,
				ErrorMessage: err.Error(),
			}
		} else {
			response.Candidate = updated
			response.OAPush = result.ToPayload()
		}
	}

	return c.JSON(response)
}

// HandleOfferStatus handles POST /candidates/:id/offer-status
func (h *HireHandler) HandleOfferStatus(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	var req models.OfferStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if req.OfferStatus == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "offer_status is required",
		})
	}

	candidate, change, err := h.offers.ChangeOfferStatus(c.Context(), candidateID, req.OfferStatus)
	if err != nil {
		return respondError(c, err)
	}

	message := "Offer status updated"
	if !change.Changed {
		message = "Offer status unchanged"
	}
	return c.JSON(models.OfferStatusResponse{
		Message:        message,
		Candidate:      candidate,
		PreviousStatus: change.Previous,
		Changed:        change.Changed,
	})
}
