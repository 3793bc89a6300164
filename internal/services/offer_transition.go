package services

import (
	"fmt"
	"time"

	"recruitflow/internal/models"
)

// Offer transitions layer on top of a completed-and-passed candidate. Like the
// interview flow engine these are pure: they mutate the in-memory candidate
// and return the columns to persist under the caller's lock.

// ResolveOfferStatus reads the effective offer status. Rows written before the
// explicit column existed resolve from the hire flag.
func ResolveOfferStatus(c *models.Candidate) models.OfferStatus {
	if c.OfferStatus != "" {
		return c.OfferStatus
	}
	if c.IsHired {
		return models.OfferStatusConfirmed
	}
	return models.OfferStatusPending
}

// EnsureConfirmHireEligible checks that confirming this candidate's hire is
// allowed right now.
func EnsureConfirmHireEligible(c *models.Candidate) error {
	if c.Status != models.StatusCompleted || c.Result != models.ResultPass {
		return newFlowError(CodeInvalidCandidateState, "only completed-and-passed candidates can be confirmed for hire")
	}
	if ResolveOfferStatus(c) != models.OfferStatusPending {
		return newFlowError(CodeInvalidOfferStatusForConfirm, "only candidates pending hire can be confirmed")
	}
	return nil
}

// ApplyConfirmHire marks the candidate hired. Callers must have passed
// EnsureConfirmHireEligible under the same lock.
func ApplyConfirmHire(c *models.Candidate, confirmedAt time.Time) []string {
	if confirmedAt.IsZero() {
		confirmedAt = time.Now()
	}
	c.IsHired = true
	c.HiredAt = &confirmedAt
	c.OfferStatus = models.OfferStatusConfirmed
	return []string{"is_hired", "hired_at", "offer_status"}
}

// EnsureStatusChangeAllowed validates a general offer status change and
// returns the status the candidate currently resolves to. ConfirmedHire is a
// terminal lock: once reached, nothing else may be set, and it can only be
// entered through ApplyConfirmHire.
func EnsureStatusChangeAllowed(c *models.Candidate, next models.OfferStatus) (models.OfferStatus, error) {
	switch next {
	case models.OfferStatusPending, models.OfferStatusIssued, models.OfferStatusRejected:
	default:
		return "", newFlowError(CodeInvalidOfferStatus, fmt.Sprintf("offer status %q cannot be set directly", next))
	}

	before := ResolveOfferStatus(c)
	if before == models.OfferStatusConfirmed && next != before {
		return "", newFlowErrorWithDetails(
			CodeConfirmedStatusLocked,
			"confirmed hire is final, offer status can no longer change",
			map[string]interface{}{"offer_status": string(before)},
		)
	}
	return before, nil
}

// ApplyOfferStatusChange applies a PendingHire/OfferIssued/OfferRejected
// transition. Entering any non-hired state always clears the hire markers.
// Returns the previous status and whether anything changed, for audit.
func ApplyOfferStatusChange(c *models.Candidate, next models.OfferStatus) (models.OfferStatus, bool, []string, error) {
	before, err := EnsureStatusChangeAllowed(c, next)
	if err != nil {
		return "", false, nil, err
	}
	if next == before {
		return before, false, nil, nil
	}

	c.OfferStatus = next
	c.IsHired = false
	c.HiredAt = nil
	return before, true, []string{"offer_status", "is_hired", "hired_at"}, nil
}
