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

// OfferStatusChange reports a general offer transition for audit purposes.
type OfferStatusChange struct {
	Previous models.OfferStatus
	Changed  bool
}

// OfferService applies offer transitions under a row lock. The OA push that
// usually follows a confirm stays with the caller, outside the lock.
type OfferService interface {
	ConfirmHire(ctx context.Context, candidateID uuid.UUID) (*models.Candidate, error)
	ChangeOfferStatus(ctx context.Context, candidateID uuid.UUID, next models.OfferStatus) (*models.Candidate, *OfferStatusChange, error)
}

type offerService struct {
	repo   repositories.CandidateRepository
	audit  AuditWriter
	logger *zap.Logger
}

func NewOfferService(
	repo repositories.CandidateRepository,
	audit AuditWriter,
	logger *zap.Logger,
) OfferService {
	return &offerService{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

func (s *offerService) ConfirmHire(ctx context.Context, candidateID uuid.UUID) (*models.Candidate, error) {
	candidate, err := s.repo.UpdateLocked(ctx, candidateID, func(tx repositories.CandidateTx, c *models.Candidate) error {
		if err := EnsureConfirmHireEligible(c); err != nil {
			return err
		}
		fields := ApplyConfirmHire(c, time.Now())
		return tx.Save(c, fields...)
	})
	if err != nil {
		return nil, err
	}

	s.writeAudit(candidate, "CONFIRM_HIRE",
		fmt.Sprintf("hire confirmed for %s", candidate.Application.Name),
		models.JSONMap{
			"is_hired": candidate.IsHired,
			"hired_at": formatTimePtr(candidate.HiredAt),
		},
	)
	return candidate, nil
}

func (s *offerService) ChangeOfferStatus(ctx context.Context, candidateID uuid.UUID, next models.OfferStatus) (*models.Candidate, *OfferStatusChange, error) {
	change := &OfferStatusChange{}

	candidate, err := s.repo.UpdateLocked(ctx, candidateID, func(tx repositories.CandidateTx, c *models.Candidate) error {
		previous, changed, fields, err := ApplyOfferStatusChange(c, next)
		if err != nil {
			return err
		}
		change.Previous = previous
		change.Changed = changed
		if !changed {
			return nil
		}
		return tx.Save(c, fields...)
	})
	if err != nil {
		return nil, nil, err
	}

	if change.Changed {
		s.writeAudit(candidate, "CHANGE_OFFER_STATUS",
			fmt.Sprintf("offer status changed for %s", candidate.Application.Name),
			models.JSONMap{
				"previous_status": string(change.Previous),
				"offer_status":    string(candidate.OfferStatus),
			},
		)
	}
	return candidate, change, nil
}

func (s *offerService) writeAudit(candidate *models.Candidate, action, summary string, details models.JSONMap) {
	targetID := candidate.ID
	details["candidate_id"] = candidate.ID.String()
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

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
