package services

import "github.com/gofiber/fiber/v2"

// Stable business-rule error codes. Clients branch on these, so they never
// change even when messages do. Interview flow codes are uppercase and offer
// transition codes lowercase, matching what the admin frontend already parses.
const (
	CodeFlowClosed             = "INTERVIEW_FLOW_CLOSED"
	CodeNotScheduled           = "INTERVIEW_NOT_SCHEDULED"
	CodeNotScheduledForResult  = "INTERVIEW_NOT_SCHEDULED_FOR_RESULT"
	CodeRoundLimitReached      = "INTERVIEW_ROUND_LIMIT_REACHED"
	CodeInvalidSchedulePayload = "INTERVIEW_INVALID_SCHEDULE_PAYLOAD"
	CodeInvalidResultPayload   = "INTERVIEW_INVALID_RESULT_PAYLOAD"

	CodeInvalidCandidateState        = "invalid_candidate_state"
	CodeInvalidOfferStatusForConfirm = "invalid_offer_status_for_confirm"
	CodeInvalidOfferStatus           = "invalid_offer_status"
	CodeConfirmedStatusLocked        = "confirmed_status_locked"
)

// FlowError is a business-rule violation: local, expected, recoverable.
// It carries a stable code for client branching and an HTTP status hint.
// Never used for infrastructure failures, which propagate as plain errors.
type FlowError struct {
	Code       string                 `json:"error_code"`
	Message    string                 `json:"error"`
	StatusCode int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

func (e *FlowError) Error() string {
	return e.Message
}

func newFlowError(code, message string) *FlowError {
	return &FlowError{
		Code:       code,
		Message:    message,
		StatusCode: fiber.StatusBadRequest,
	}
}

func newFlowErrorWithDetails(code, message string, details map[string]interface{}) *FlowError {
	err := newFlowError(code, message)
	err.Details = details
	return err
}
