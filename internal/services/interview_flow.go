package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"recruitflow/internal/models"
)

// InterviewerJoinSeparator joins interviewer names into the legacy
// single-string interviewer field still read by older list views.
const InterviewerJoinSeparator = "、"

// The interview flow engine below is pure transition logic: each function
// mutates the in-memory candidate and returns the column list the caller must
// persist in the same transaction the candidate was locked in.

type ScheduleInput struct {
	InterviewAt       time.Time
	Interviewers      []string
	InterviewLocation string
	Note              *string
}

type ResultInput struct {
	Result            models.InterviewResult
	Score             *int
	InterviewerScores []models.InterviewerScore
	ResultNote        string
}

func isFlowClosed(c *models.Candidate) bool {
	return c.Status == models.StatusCompleted &&
		(c.Result == models.ResultPass || c.Result == models.ResultReject)
}

// ResolveScheduleRound derives the round the next schedule call will target:
// a reschedule keeps the current round, a pending next-round signal advances
// it (capped at MaxInterviewRound), anything else stays put.
func ResolveScheduleRound(c *models.Candidate) int {
	current := c.CurrentRound()
	if c.Status == models.StatusScheduled && c.InterviewAt != nil {
		return current
	}
	if c.Status == models.StatusPending && c.Result == models.ResultNextRound {
		if current+1 > models.MaxInterviewRound {
			return models.MaxInterviewRound
		}
		return current + 1
	}
	return current
}

// ScheduleInterview schedules or reschedules an interview, consuming the
// next-round signal exactly once when present.
func ScheduleInterview(c *models.Candidate, in ScheduleInput) ([]string, error) {
	if isFlowClosed(c) {
		return nil, newFlowError(CodeFlowClosed, "interview flow already closed, no further scheduling allowed")
	}

	interviewers, err := normalizeInterviewers(in.Interviewers)
	if err != nil {
		return nil, err
	}

	consumeNextRound := c.Status == models.StatusPending && c.Result == models.ResultNextRound

	c.Round = ResolveScheduleRound(c)
	interviewAt := in.InterviewAt
	c.InterviewAt = &interviewAt
	c.Interviewers = interviewers
	c.Interviewer = strings.Join(interviewers, InterviewerJoinSeparator)
	c.InterviewLocation = in.InterviewLocation
	if in.Note != nil {
		c.Note = *in.Note
	}

	if consumeNextRound {
		c.Result = models.ResultNone
		c.Score = nil
		c.InterviewerScores = models.ScoreList{}
		c.ResultNote = ""
		c.ResultAt = nil
	}

	c.Status = models.StatusScheduled

	fields := []string{
		"round",
		"interview_at",
		"interviewer",
		"interviewers",
		"interview_location",
		"note",
		"status",
	}
	if consumeNextRound {
		fields = append(fields, "result", "score", "interviewer_scores", "result_note", "result_at")
	}
	return fields, nil
}

// CancelSchedule drops the current schedule and returns to pending.
func CancelSchedule(c *models.Candidate, note string) ([]string, error) {
	if c.InterviewAt == nil && c.Status != models.StatusScheduled {
		return nil, newFlowError(CodeNotScheduled, "no interview is currently scheduled")
	}

	if note != "" {
		c.Note = note
	}
	c.InterviewAt = nil
	c.Interviewer = ""
	c.Interviewers = models.StringList{}
	c.InterviewLocation = ""
	c.Status = models.StatusPending

	return []string{
		"interview_at",
		"interviewer",
		"interviewers",
		"interview_location",
		"status",
		"note",
	}, nil
}

// RecordResult records the round outcome, returning the round snapshot to
// upsert plus the candidate columns to persist.
func RecordResult(c *models.Candidate, in ResultInput, now time.Time) (*models.RoundRecord, []string, error) {
	if c.Status != models.StatusScheduled || c.InterviewAt == nil {
		return nil, nil, newFlowError(CodeNotScheduledForResult, "schedule an interview before recording a result")
	}
	if !isValidResult(in.Result) {
		return nil, nil, newFlowError(CodeInvalidResultPayload, fmt.Sprintf("unknown interview result %q", in.Result))
	}

	currentRound := c.CurrentRound()
	if in.Result == models.ResultNextRound && currentRound >= models.MaxInterviewRound {
		return nil, nil, newFlowErrorWithDetails(
			CodeRoundLimitReached,
			fmt.Sprintf("round %d is the final round, cannot advance further", models.MaxInterviewRound),
			map[string]interface{}{"round": currentRound},
		)
	}

	scores, aggregate, err := normalizeResultScores(in, c.Interviewers)
	if err != nil {
		return nil, nil, err
	}

	record := &models.RoundRecord{
		CandidateID:       c.ID,
		RoundNo:           currentRound,
		InterviewAt:       c.InterviewAt,
		Interviewer:       c.Interviewer,
		Interviewers:      c.Interviewers,
		Score:             aggregate,
		InterviewerScores: scores,
		Result:            in.Result,
		ResultNote:        in.ResultNote,
	}

	c.Result = in.Result
	c.Score = aggregate
	c.InterviewerScores = scores
	c.ResultNote = in.ResultNote
	resultAt := now
	c.ResultAt = &resultAt
	c.InterviewAt = nil
	c.Interviewer = ""
	c.Interviewers = models.StringList{}
	c.InterviewLocation = ""
	if in.Result == models.ResultNextRound || in.Result == models.ResultPending {
		c.Status = models.StatusPending
	} else {
		c.Status = models.StatusCompleted
	}

	fields := []string{
		"result",
		"score",
		"interviewer_scores",
		"result_note",
		"result_at",
		"interview_at",
		"interviewer",
		"interviewers",
		"interview_location",
		"status",
	}

	// Passing re-enters the offer pipeline fresh, even when a previous pass
	// already moved the candidate through offer states.
	if in.Result == models.ResultPass {
		c.OfferStatus = models.OfferStatusPending
		c.IsHired = false
		c.HiredAt = nil
		fields = append(fields, "offer_status", "is_hired", "hired_at")
	}

	return record, fields, nil
}

func isValidResult(result models.InterviewResult) bool {
	switch result {
	case models.ResultPending, models.ResultNextRound, models.ResultPass, models.ResultReject:
		return true
	}
	return false
}

func normalizeInterviewers(names []string) (models.StringList, error) {
	seen := make(map[string]struct{}, len(names))
	normalized := models.StringList{}
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	if len(normalized) > models.MaxInterviewers {
		return nil, newFlowError(
			CodeInvalidSchedulePayload,
			fmt.Sprintf("at most %d interviewers per round", models.MaxInterviewers),
		)
	}
	return normalized, nil
}

// normalizeResultScores resolves the per-interviewer score list and the
// aggregated score. Detailed scores win; a bare scalar score is the fallback,
// synthesized into a one-entry list when exactly one interviewer is on the
// round (legacy data shim, see resolve rules in the admin result form).
func normalizeResultScores(in ResultInput, interviewers models.StringList) (models.ScoreList, *int, error) {
	if len(in.InterviewerScores) > 0 {
		if len(in.InterviewerScores) > models.MaxInterviewers {
			return nil, nil, newFlowError(
				CodeInvalidResultPayload,
				fmt.Sprintf("at most %d interviewer scores per round", models.MaxInterviewers),
			)
		}

		known := make(map[string]struct{}, len(interviewers))
		for _, name := range interviewers {
			known[name] = struct{}{}
		}

		seen := make(map[string]struct{}, len(in.InterviewerScores))
		scores := make(models.ScoreList, 0, len(in.InterviewerScores))
		total := 0
		for _, entry := range in.InterviewerScores {
			name := strings.TrimSpace(entry.Interviewer)
			if name == "" {
				return nil, nil, newFlowError(CodeInvalidResultPayload, "interviewer score entry missing interviewer name")
			}
			if _, dup := seen[name]; dup {
				return nil, nil, newFlowError(CodeInvalidResultPayload, fmt.Sprintf("duplicate score entry for interviewer %q", name))
			}
			if entry.Score < 0 || entry.Score > 100 {
				return nil, nil, newFlowError(CodeInvalidResultPayload, "interviewer score must be between 0 and 100")
			}
			if len(known) > 0 {
				if _, ok := known[name]; !ok {
					return nil, nil, newFlowError(CodeInvalidResultPayload, fmt.Sprintf("interviewer %q is not on this round", name))
				}
			}
			seen[name] = struct{}{}
			scores = append(scores, models.InterviewerScore{Interviewer: name, Score: entry.Score})
			total += entry.Score
		}

		mean := float64(total) / float64(len(scores))
		aggregate := int(math.Round(mean))
		return scores, &aggregate, nil
	}

	if in.Score != nil {
		if *in.Score < 0 || *in.Score > 100 {
			return nil, nil, newFlowError(CodeInvalidResultPayload, "score must be between 0 and 100")
		}
		aggregate := *in.Score
		if len(interviewers) == 1 {
			scores := models.ScoreList{{Interviewer: interviewers[0], Score: aggregate}}
			return scores, &aggregate, nil
		}
		return models.ScoreList{}, &aggregate, nil
	}

	return models.ScoreList{}, nil, nil
}
