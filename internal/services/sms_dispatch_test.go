package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recruitflow/internal/config"
	"recruitflow/internal/models"
)

func smsConfig() config.SmsConfig {
	return config.SmsConfig{
		Enabled:  true,
		Provider: "aliyun",
	}
}

func smsCandidate() *models.Candidate {
	c := newTestCandidate()
	at := time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC)
	c.Status = models.StatusScheduled
	c.Round = 2
	c.InterviewAt = &at
	c.Interviewer = "Alice、Bob"
	c.Interviewers = models.StringList{"Alice", "Bob"}
	c.InterviewLocation = "Room 301"
	return c
}

func newSmsService(cfg config.SmsConfig, repo *fakeCandidateRepo, gateway *fakeSmsGateway) (SmsDispatchService, *captureAudit) {
	audit := &captureAudit{}
	svc := NewSmsDispatchService(cfg, repo, gateway, audit, zap.NewNop())
	return svc, audit
}

func TestDispatchScheduleSmsSuccess(t *testing.T) {
	candidate := smsCandidate()
	repo := newFakeCandidateRepo(candidate)
	gateway := &fakeSmsGateway{result: &SmsResult{Success: true, ProviderCode: "OK", BizID: "biz-9"}}
	svc, audit := newSmsService(smsConfig(), repo, gateway)

	updated, result, err := svc.DispatchScheduleSms(context.Background(), candidate.ID, false)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, models.SmsStatusSuccess, updated.SmsStatus)
	assert.NotNil(t, updated.SmsSentAt)
	assert.Equal(t, "biz-9", updated.SmsMessageID)
	assert.Equal(t, 0, updated.SmsRetryCount)
	assert.Empty(t, updated.SmsError)

	assert.Equal(t, 1, gateway.sendCalls)
	assert.Equal(t, "13800000001", gateway.lastPhone)
	assert.Equal(t, "Chen Wei", gateway.lastParams["name"])
	assert.Equal(t, "2", gateway.lastParams["round"])
	assert.Equal(t, "2026-09-10 14:00", gateway.lastParams["time"])
	assert.Equal(t, "Alice、Bob", gateway.lastParams["interviewer"])

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "SEND_INTERVIEW_SMS", audit.entries[0].Action)
}

func TestDispatchScheduleSmsIdempotentAfterSuccess(t *testing.T) {
	candidate := smsCandidate()
	candidate.SmsStatus = models.SmsStatusSuccess
	candidate.SmsMessageID = "biz-earlier"
	repo := newFakeCandidateRepo(candidate)
	gateway := &fakeSmsGateway{}
	svc, audit := newSmsService(smsConfig(), repo, gateway)

	_, result, err := svc.DispatchScheduleSms(context.Background(), candidate.ID, false)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "biz-earlier", result.BizID)
	assert.Equal(t, 0, gateway.sendCalls)
	assert.Empty(t, repo.saved)
	assert.Empty(t, audit.entries)
}

func TestDispatchScheduleSmsRequiresSchedule(t *testing.T) {
	candidate := newTestCandidate()
	repo := newFakeCandidateRepo(candidate)
	gateway := &fakeSmsGateway{}
	svc, _ := newSmsService(smsConfig(), repo, gateway)

	_, _, err := svc.DispatchScheduleSms(context.Background(), candidate.ID, false)
	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, CodeNotScheduled, flowErr.Code)
	assert.Equal(t, 0, gateway.sendCalls)
}

func TestDispatchScheduleSmsDisabled(t *testing.T) {
	candidate := smsCandidate()
	repo := newFakeCandidateRepo(candidate)
	gateway := &fakeSmsGateway{}
	cfg := smsConfig()
	cfg.Enabled = false
	svc, _ := newSmsService(cfg, repo, gateway)

	updated, result, err := svc.DispatchScheduleSms(context.Background(), candidate.ID, false)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, SmsCodeDisabled, result.ProviderCode)
	assert.Equal(t, models.SmsStatusFailed, updated.SmsStatus)
	assert.Equal(t, 0, gateway.sendCalls)
}

func TestDispatchScheduleSmsEmptyPhone(t *testing.T) {
	candidate := smsCandidate()
	candidate.Application.Phone = "  "
	repo := newFakeCandidateRepo(candidate)
	gateway := &fakeSmsGateway{}
	svc, _ := newSmsService(smsConfig(), repo, gateway)

	updated, result, err := svc.DispatchScheduleSms(context.Background(), candidate.ID, false)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, SmsCodePhoneEmpty, result.ProviderCode)
	assert.Equal(t, models.SmsStatusFailed, updated.SmsStatus)
	assert.Equal(t, 0, gateway.sendCalls)
}

func TestDispatchScheduleSmsUnsupportedProvider(t *testing.T) {
	candidate := smsCandidate()
	repo := newFakeCandidateRepo(candidate)
	gateway := &fakeSmsGateway{}
	cfg := smsConfig()
	cfg.Provider = "twilio"
	svc, _ := newSmsService(cfg, repo, gateway)

	_, result, err := svc.DispatchScheduleSms(context.Background(), candidate.ID, false)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, SmsCodeProviderUnsupported, result.ProviderCode)
	assert.Equal(t, 0, gateway.sendCalls)
}

func TestDispatchScheduleSmsProviderFailure(t *testing.T) {
	candidate := smsCandidate()
	repo := newFakeCandidateRepo(candidate)
	gateway := &fakeSmsGateway{result: &SmsResult{
		Success:         false,
		ProviderCode:    "isv.BUSINESS_LIMIT_CONTROL",
		ProviderMessage: "rate limited",
	}}
	svc, audit := newSmsService(smsConfig(), repo, gateway)

	updated, result, err := svc.DispatchScheduleSms(context.Background(), candidate.ID, false)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, models.SmsStatusFailed, updated.SmsStatus)
	assert.Equal(t, "isv.BUSINESS_LIMIT_CONTROL", updated.SmsProviderCode)
	assert.Equal(t, "rate limited", updated.SmsError)
	assert.Nil(t, updated.SmsSentAt)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.OperationFailed, audit.entries[0].Result)
}

func TestDispatchScheduleSmsSendsAgainForNewSchedule(t *testing.T) {
	// Round 1 was notified successfully and advanced with next_round.
	candidate := newTestCandidate()
	candidate.Status = models.StatusPending
	candidate.Round = 1
	candidate.Result = models.ResultNextRound
	candidate.SmsStatus = models.SmsStatusSuccess
	candidate.SmsMessageID = "biz-round-1"
	sentAt := time.Now().Add(-48 * time.Hour)
	candidate.SmsSentAt = &sentAt
	repo := newFakeCandidateRepo(candidate)
	gateway := &fakeSmsGateway{result: &SmsResult{Success: true, ProviderCode: "OK", BizID: "biz-round-2"}}
	svc, _ := newSmsService(smsConfig(), repo, gateway)
	flow, _ := newFlowService(repo)

	// Scheduling round 2 must invalidate the round-1 send, so the dispatch
	// below reaches the gateway instead of replaying the old success.
	_, err := flow.Schedule(context.Background(), candidate.ID, ScheduleInput{
		InterviewAt: time.Date(2026, 9, 20, 10, 0, 0, 0, time.UTC),
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, candidate.Round)
	assert.Equal(t, models.SmsStatusIdle, candidate.SmsStatus)

	updated, result, err := svc.DispatchScheduleSms(context.Background(), candidate.ID, false)
	require.NoError(t, err)

	assert.Equal(t, 1, gateway.sendCalls)
	assert.Equal(t, "2", gateway.lastParams["round"])
	assert.True(t, result.Success)
	assert.Equal(t, "biz-round-2", result.BizID)
	assert.Equal(t, "biz-round-2", updated.SmsMessageID)
}

func TestDispatchScheduleSmsSendsAgainAfterReschedule(t *testing.T) {
	candidate := smsCandidate()
	candidate.SmsStatus = models.SmsStatusSuccess
	candidate.SmsMessageID = "biz-old-slot"
	repo := newFakeCandidateRepo(candidate)
	gateway := &fakeSmsGateway{result: &SmsResult{Success: true, ProviderCode: "OK", BizID: "biz-new-slot"}}
	svc, _ := newSmsService(smsConfig(), repo, gateway)
	flow, _ := newFlowService(repo)

	_, err := flow.Schedule(context.Background(), candidate.ID, ScheduleInput{
		InterviewAt: candidate.InterviewAt.Add(72 * time.Hour),
	}, true)
	require.NoError(t, err)

	updated, result, err := svc.DispatchScheduleSms(context.Background(), candidate.ID, false)
	require.NoError(t, err)

	assert.Equal(t, 1, gateway.sendCalls)
	assert.True(t, result.Success)
	assert.Equal(t, "biz-new-slot", updated.SmsMessageID)
}

func TestDispatchScheduleSmsRetryCountSemantics(t *testing.T) {
	candidate := smsCandidate()
	repo := newFakeCandidateRepo(candidate)
	gateway := &fakeSmsGateway{result: &SmsResult{Success: false, ProviderCode: SmsCodeRequestError}}
	svc, audit := newSmsService(smsConfig(), repo, gateway)
	ctx := context.Background()

	_, _, err := svc.DispatchScheduleSms(ctx, candidate.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, candidate.SmsRetryCount)

	_, _, err = svc.DispatchScheduleSms(ctx, candidate.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, candidate.SmsRetryCount)

	_, _, err = svc.DispatchScheduleSms(ctx, candidate.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, candidate.SmsRetryCount)

	require.Len(t, audit.entries, 3)
	assert.Equal(t, "RETRY_INTERVIEW_SMS", audit.entries[1].Action)
}
