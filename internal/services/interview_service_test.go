package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recruitflow/internal/models"
)

func newFlowService(repo *fakeCandidateRepo) (InterviewFlowService, *captureAudit) {
	audit := &captureAudit{}
	svc := NewInterviewFlowService(repo, audit, zap.NewNop())
	return svc, audit
}

func TestScheduleServicePersistsAndAudits(t *testing.T) {
	candidate := newTestCandidate()
	repo := newFakeCandidateRepo(candidate)
	svc, audit := newFlowService(repo)

	updated, err := svc.Schedule(context.Background(), candidate.ID, ScheduleInput{
		InterviewAt:  time.Now().Add(24 * time.Hour),
		Interviewers: []string{"Alice"},
	}, true)
	require.NoError(t, err)

	assert.Equal(t, models.StatusScheduled, updated.Status)
	require.Len(t, repo.saved, 1)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "SCHEDULE_INTERVIEW", audit.entries[0].Action)
}

func TestScheduleServiceMarksReschedule(t *testing.T) {
	candidate := smsCandidate()
	repo := newFakeCandidateRepo(candidate)
	svc, audit := newFlowService(repo)

	_, err := svc.Schedule(context.Background(), candidate.ID, ScheduleInput{
		InterviewAt: time.Now().Add(48 * time.Hour),
	}, true)
	require.NoError(t, err)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "RESCHEDULE_INTERVIEW", audit.entries[0].Action)
}

func TestScheduleServiceResetsSmsState(t *testing.T) {
	candidate := newTestCandidate()
	candidate.SmsStatus = models.SmsStatusFailed
	candidate.SmsRetryCount = 2
	candidate.SmsError = "rate limited"
	candidate.SmsMessageID = "biz-old"
	repo := newFakeCandidateRepo(candidate)
	svc, _ := newFlowService(repo)

	updated, err := svc.Schedule(context.Background(), candidate.ID, ScheduleInput{
		InterviewAt: time.Now().Add(24 * time.Hour),
	}, false)
	require.NoError(t, err)

	assert.Equal(t, models.SmsStatusIdle, updated.SmsStatus)
	assert.Equal(t, 0, updated.SmsRetryCount)
	assert.Empty(t, updated.SmsError)
	assert.Empty(t, updated.SmsMessageID)
	require.Len(t, repo.saved, 1)
	assert.Contains(t, repo.saved[0], "sms_status")
}

func TestRecordResultServiceWritesRoundRecord(t *testing.T) {
	candidate := smsCandidate()
	repo := newFakeCandidateRepo(candidate)
	svc, audit := newFlowService(repo)

	updated, err := svc.RecordResult(context.Background(), candidate.ID, ResultInput{
		Result: models.ResultPass,
		InterviewerScores: []models.InterviewerScore{
			{Interviewer: "Alice", Score: 90},
			{Interviewer: "Bob", Score: 80},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, updated.Status)
	record, ok := repo.records[2]
	require.True(t, ok)
	assert.Equal(t, models.ResultPass, record.Result)
	assert.Equal(t, 85, *record.Score)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "SAVE_INTERVIEW_RESULT", audit.entries[0].Action)
}

func TestRecordResultServiceRejectsWithoutPersisting(t *testing.T) {
	candidate := newTestCandidate()
	repo := newFakeCandidateRepo(candidate)
	svc, audit := newFlowService(repo)

	_, err := svc.RecordResult(context.Background(), candidate.ID, ResultInput{Result: models.ResultPass})
	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Empty(t, repo.saved)
	assert.Empty(t, repo.records)
	assert.Empty(t, audit.entries)
}

func TestCancelScheduleService(t *testing.T) {
	candidate := smsCandidate()
	repo := newFakeCandidateRepo(candidate)
	svc, audit := newFlowService(repo)

	updated, err := svc.CancelSchedule(context.Background(), candidate.ID, "postponed")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Nil(t, updated.InterviewAt)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "CANCEL_INTERVIEW_SCHEDULE", audit.entries[0].Action)
}

func TestConfirmHireService(t *testing.T) {
	candidate := passedCandidate()
	repo := newFakeCandidateRepo(candidate)
	audit := &captureAudit{}
	svc := NewOfferService(repo, audit, zap.NewNop())

	updated, err := svc.ConfirmHire(context.Background(), candidate.ID)
	require.NoError(t, err)

	assert.True(t, updated.IsHired)
	assert.NotNil(t, updated.HiredAt)
	assert.Equal(t, models.OfferStatusConfirmed, updated.OfferStatus)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "CONFIRM_HIRE", audit.entries[0].Action)
}

func TestChangeOfferStatusService(t *testing.T) {
	candidate := passedCandidate()
	repo := newFakeCandidateRepo(candidate)
	audit := &captureAudit{}
	svc := NewOfferService(repo, audit, zap.NewNop())

	updated, change, err := svc.ChangeOfferStatus(context.Background(), candidate.ID, models.OfferStatusIssued)
	require.NoError(t, err)
	assert.True(t, change.Changed)
	assert.Equal(t, models.OfferStatusPending, change.Previous)
	assert.Equal(t, models.OfferStatusIssued, updated.OfferStatus)
	require.Len(t, audit.entries, 1)

	// Same status again is a no-op and leaves no audit trail.
	_, change, err = svc.ChangeOfferStatus(context.Background(), candidate.ID, models.OfferStatusIssued)
	require.NoError(t, err)
	assert.False(t, change.Changed)
	assert.Len(t, audit.entries, 1)
}
