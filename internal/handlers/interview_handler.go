package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"recruitflow/internal/models"
	"recruitflow/internal/repositories"
	"recruitflow/internal/services"
)

type InterviewHandler struct {
	repo   repositories.CandidateRepository
	flow   services.InterviewFlowService
	sms    services.SmsDispatchService
	logger *zap.Logger
}

func NewInterviewHandler(
	repo repositories.CandidateRepository,
	flow services.InterviewFlowService,
	sms services.SmsDispatchService,
	logger *zap.Logger,
) *InterviewHandler {
	return &InterviewHandler{
		repo:   repo,
		flow:   flow,
		sms:    sms,
		logger: logger,
	}
}

// HandleGetCandidate handles GET /candidates/:id
func (h *InterviewHandler) HandleGetCandidate(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	candidate, err := h.repo.FindByID(candidateID)
	if err != nil {
		return respondError(c, err)
	}

	records, err := h.repo.FindRoundRecords(candidateID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"candidate":     candidate,
		"round_records": records,
	})
}

// HandleSchedule handles POST /candidates/:id/schedule
//
// The SMS, when requested, goes out after the schedule has committed: a
// notification for a schedule that rolled back would be worse than a schedule
// whose notification failed and can be resent.
func (h *InterviewHandler) HandleSchedule(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	var req models.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if req.InterviewAt.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "interview_at is required",
		})
	}

	candidate, err := h.flow.Schedule(c.Context(), candidateID, services.ScheduleInput{
		InterviewAt:       req.InterviewAt,
		Interviewers:      req.Interviewers,
		InterviewLocation: req.InterviewLocation,
		Note:              req.Note,
	}, req.SendSms)
	if err != nil {
		return respondError(c, err)
	}

	response := models.DispatchResponse{
		Message:   "Interview scheduled",
		Candidate: candidate,
	}

	if req.SendSms {
		updated, result, err := h.sms.DispatchScheduleSms(c.Context(), candidateID, false)
		if err != nil {
			// The schedule itself committed; report the send failure inline
			// rather than failing the whole request.
			h.logger.Warn("schedule SMS dispatch failed",
				zap.String("candidate_id", candidateID.String()),
				zap.Error(err),
			)
			response.Sms = &models.SmsResultPayload{
				Success:         false,
				ProviderCode:    services.SmsCodeRuntimeError,
				ProviderMessage: err.Error(),
			}
		} else {
			response.Candidate = updated
			response.Sms = result.ToPayload()
		}
	}

	return c.JSON(response)
}

// HandleCancelSchedule handles POST /candidates/:id/cancel-schedule
func (h *InterviewHandler) HandleCancelSchedule(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	var req models.CancelScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	candidate, err := h.flow.CancelSchedule(c.Context(), candidateID, req.Note)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(models.CandidateResponse{
		Message:   "Interview schedule cancelled",
		Candidate: candidate,
	})
}

// HandleRecordResult handles POST /candidates/:id/result
func (h *InterviewHandler) HandleRecordResult(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	var req models.RecordResultRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if req.Result == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "result is required",
		})
	}

	candidate, err := h.flow.RecordResult(c.Context(), candidateID, services.ResultInput{
		Result:            req.Result,
		Score:             req.Score,
		InterviewerScores: req.InterviewerScores,
		ResultNote:        req.ResultNote,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(models.CandidateResponse{
		Message:   "Interview result recorded",
		Candidate: candidate,
	})
}
