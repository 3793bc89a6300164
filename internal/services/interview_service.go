package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recruitflow/internal/models"
	"recruitflow/internal/repositories"
)

// InterviewFlowService applies the interview flow engine under a row lock and
// persists the outcome. All network side effects (SMS) stay with the caller,
// outside the lock.
type InterviewFlowService interface {
	Schedule(ctx context.Context, candidateID uuid.UUID, in ScheduleInput, willSendSms bool) (*models.Candidate, error)
	CancelSchedule(ctx context.Context, candidateID uuid.UUID, note string) (*models.Candidate, error)
	RecordResult(ctx context.Context, candidateID uuid.UUID, in ResultInput) (*models.Candidate, error)
}

type interviewFlowService struct {
	repo   repositories.CandidateRepository
	audit  AuditWriter
	logger *zap.Logger
}

func NewInterviewFlowService(
	repo repositories.CandidateRepository,
	audit AuditWriter,
	logger *zap.Logger,
) InterviewFlowService {
	return &interviewFlowService{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

func (s *interviewFlowService) Schedule(ctx context.Context, candidateID uuid.UUID, in ScheduleInput, willSendSms bool) (*models.Candidate, error) {
	wasScheduled := false
	beforeRound := 1

	candidate, err := s.repo.UpdateLocked(ctx, candidateID, func(tx repositories.CandidateTx, c *models.Candidate) error {
		wasScheduled = c.InterviewAt != nil || c.Status == models.StatusScheduled
		beforeRound = c.CurrentRound()

		fields, err := ScheduleInterview(c, in)
		if err != nil {
			return err
		}

		// Any SMS state describes the previous schedule, not this one. Reset it
		// in the same commit so a stale success can never short-circuit the
		// notification for a new round or a rescheduled time.
		now := time.Now()
		c.SmsStatus = models.SmsStatusIdle
		c.SmsRetryCount = 0
		c.SmsLastAttemptAt = nil
		c.SmsSentAt = nil
		c.SmsUpdatedAt = &now
		c.SmsError = ""
		c.SmsProviderCode = ""
		c.SmsProviderMessage = ""
		c.SmsMessageID = ""
		fields = append(fields,
			"sms_status",
			"sms_retry_count",
			"sms_last_attempt_at",
			"sms_sent_at",
			"sms_updated_at",
			"sms_error",
			"sms_provider_code",
			"sms_provider_message",
			"sms_message_id",
		)

		return tx.Save(c, fields...)
	})
	if err != nil {
		return nil, err
	}

	action := "SCHEDULE_INTERVIEW"
	summary := fmt.Sprintf("interview scheduled for %s", candidate.Application.Name)
	if wasScheduled {
		action = "RESCHEDULE_INTERVIEW"
		summary = fmt.Sprintf("interview rescheduled for %s", candidate.Application.Name)
	}
	s.writeAudit(candidate, action, summary, models.JSONMap{
		"before_round":       beforeRound,
		"current_round":      candidate.Round,
		"interview_at":       in.InterviewAt.Format(time.RFC3339),
		"interviewers":       candidate.Interviewers,
		"interview_location": candidate.InterviewLocation,
		"send_sms":           willSendSms,
	})
	return candidate, nil
}

func (s *interviewFlowService) CancelSchedule(ctx context.Context, candidateID uuid.UUID, note string) (*models.Candidate, error) {
	candidate, err := s.repo.UpdateLocked(ctx, candidateID, func(tx repositories.CandidateTx, c *models.Candidate) error {
		fields, err := CancelSchedule(c, note)
		if err != nil {
			return err
		}
		return tx.Save(c, fields...)
	})
	if err != nil {
		return nil, err
	}

	s.writeAudit(candidate, "CANCEL_INTERVIEW_SCHEDULE",
		fmt.Sprintf("interview schedule cancelled for %s", candidate.Application.Name),
		models.JSONMap{"round": candidate.Round},
	)
	return candidate, nil
}

func (s *interviewFlowService) RecordResult(ctx context.Context, candidateID uuid.UUID, in ResultInput) (*models.Candidate, error) {
	candidate, err := s.repo.UpdateLocked(ctx, candidateID, func(tx repositories.CandidateTx, c *models.Candidate) error {
		record, fields, err := RecordResult(c, in, time.Now())
		if err != nil {
			return err
		}
		if err := tx.UpsertRoundRecord(record); err != nil {
			return err
		}
		return tx.Save(c, fields...)
	})
	if err != nil {
		return nil, err
	}

	s.writeAudit(candidate, "SAVE_INTERVIEW_RESULT",
		fmt.Sprintf("interview result recorded for %s", candidate.Application.Name),
		models.JSONMap{
			"round":  candidate.Round,
			"result": string(candidate.Result),
			"score":  candidate.Score,
		},
	)
	return candidate, nil
}

func (s *interviewFlowService) writeAudit(candidate *models.Candidate, action, summary string, details models.JSONMap) {
	targetID := candidate.ID
	details["candidate_id"] = candidate.ID.String()
	details["application_id"] = candidate.ApplicationID.String()
	s.audit.Write(&models.OperationLog{
		Module:      "interviews",
		Action:      action,
		TargetType:  "candidate",
		TargetID:    &targetID,
		TargetLabel: candidate.Application.Name,
		Summary:     summary,
		Details:     details,
	})
}
