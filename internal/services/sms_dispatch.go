package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/errors"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/dysmsapi"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"recruitflow/internal/config"
	"recruitflow/internal/models"
	"recruitflow/internal/repositories"
)

// SMS provider codes surfaced to operators. SmsCodeSdkMissing exists for
// wire-compatibility with older clients that branch on it; the Go build links
// the vendor SDK statically so it is never produced here.
const (
	SmsCodeConfigMissing       = "SMS_CONFIG_MISSING"
	SmsCodeSdkMissing          = "SMS_SDK_MISSING"
	SmsCodePhoneEmpty          = "SMS_PHONE_EMPTY"
	SmsCodeProviderUnsupported = "SMS_PROVIDER_UNSUPPORTED"
	SmsCodeRequestError        = "SMS_REQUEST_ERROR"
	SmsCodeDisabled            = "SMS_DISABLED"
	SmsCodeRuntimeError        = "SMS_RUNTIME_ERROR"
)

// SmsResult is the classified outcome of one SMS send.
type SmsResult struct {
	Success         bool
	ProviderCode    string
	ProviderMessage string
	RequestID       string
	BizID           string
}

func (r *SmsResult) ToPayload() *models.SmsResultPayload {
	return &models.SmsResultPayload{
		Success:         r.Success,
		ProviderCode:    r.ProviderCode,
		ProviderMessage: r.ProviderMessage,
		RequestID:       r.RequestID,
		BizID:           r.BizID,
	}
}

// SmsGateway performs one provider send call.
type SmsGateway interface {
	Send(ctx context.Context, phone string, templateParams map[string]string, outID string) *SmsResult
}

type aliyunSmsGateway struct {
	cfg config.SmsConfig
}

func NewAliyunSmsGateway(cfg config.SmsConfig) SmsGateway {
	return &aliyunSmsGateway{cfg: cfg}
}

func (g *aliyunSmsGateway) Send(ctx context.Context, phone string, templateParams map[string]string, outID string) *SmsResult {
	if g.cfg.AccessKeyID == "" || g.cfg.AccessKeySecret == "" || g.cfg.SignName == "" || g.cfg.TemplateCode == "" {
		return &SmsResult{
			Success:         false,
			ProviderCode:    SmsCodeConfigMissing,
			ProviderMessage: "SMS config missing, check Aliyun access key, sign name and template settings",
		}
	}

	client, err := dysmsapi.NewClientWithAccessKey(g.cfg.RegionID, g.cfg.AccessKeyID, g.cfg.AccessKeySecret)
	if err != nil {
		return &SmsResult{
			Success:         false,
			ProviderCode:    SmsCodeRequestError,
			ProviderMessage: fmt.Sprintf("failed to create SMS client: %v", err),
		}
	}

	params, err := json.Marshal(templateParams)
	if err != nil {
		return &SmsResult{
			Success:         false,
			ProviderCode:    SmsCodeRequestError,
			ProviderMessage: fmt.Sprintf("failed to encode template params: %v", err),
		}
	}

	request := dysmsapi.CreateSendSmsRequest()
	request.Scheme = "https"
	request.PhoneNumbers = phone
	request.SignName = g.cfg.SignName
	request.TemplateCode = g.cfg.TemplateCode
	request.TemplateParam = string(params)
	if outID != "" {
		request.OutId = outID
	}

	response, err := client.SendSms(request)
	if err != nil {
		code := SmsCodeRequestError
		if sdkErr, ok := err.(errors.Error); ok && sdkErr.ErrorCode() != "" {
			code = sdkErr.ErrorCode()
		}
		return &SmsResult{
			Success:         false,
			ProviderCode:    code,
			ProviderMessage: err.Error(),
		}
	}

	return &SmsResult{
		Success:         response.Code == "OK",
		ProviderCode:    response.Code,
		ProviderMessage: response.Message,
		RequestID:       response.RequestId,
		BizID:           response.BizId,
	}
}

// SmsDispatchService sends the interview notification SMS and keeps the SMS
// sub-state on the candidate row. No automatic retry: a failed send is
// surfaced and the manual resend endpoint is the retry mechanism.
type SmsDispatchService interface {
	DispatchScheduleSms(ctx context.Context, candidateID uuid.UUID, isRetry bool) (*models.Candidate, *SmsResult, error)
}

type smsDispatchService struct {
	cfg     config.SmsConfig
	repo    repositories.CandidateRepository
	gateway SmsGateway
	audit   AuditWriter
	logger  *zap.Logger
}

func NewSmsDispatchService(
	cfg config.SmsConfig,
	repo repositories.CandidateRepository,
	gateway SmsGateway,
	audit AuditWriter,
	logger *zap.Logger,
) SmsDispatchService {
	return &smsDispatchService{
		cfg:     cfg,
		repo:    repo,
		gateway: gateway,
		audit:   audit,
		logger:  logger,
	}
}

func (s *smsDispatchService) DispatchScheduleSms(ctx context.Context, candidateID uuid.UUID, isRetry bool) (*models.Candidate, *SmsResult, error) {
	var cached *SmsResult

	candidate, err := s.repo.UpdateLocked(ctx, candidateID, func(tx repositories.CandidateTx, c *models.Candidate) error {
		if c.SmsStatus == models.SmsStatusSuccess {
			cached = &SmsResult{
				Success:         true,
				ProviderCode:    c.SmsProviderCode,
				ProviderMessage: "SMS already sent, skipping duplicate send",
				BizID:           c.SmsMessageID,
			}
			return nil
		}
		if c.Status != models.StatusScheduled || c.InterviewAt == nil {
			return newFlowError(CodeNotScheduled, "no interview is currently scheduled")
		}
		return s.markSending(tx, c, isRetry)
	})
	if err != nil {
		return nil, nil, err
	}
	if cached != nil {
		return candidate, cached, nil
	}

	result := s.send(ctx, candidate)

	candidate, err = s.repo.UpdateLocked(ctx, candidateID, func(tx repositories.CandidateTx, c *models.Candidate) error {
		return s.markResult(tx, c, result)
	})
	if err != nil {
		return nil, nil, err
	}

	s.writeAudit(candidate, result, isRetry)
	return candidate, result, nil
}

func (s *smsDispatchService) send(ctx context.Context, candidate *models.Candidate) *SmsResult {
	if !s.cfg.Enabled {
		return &SmsResult{
			Success:         false,
			ProviderCode:    SmsCodeDisabled,
			ProviderMessage: "SMS sending is disabled",
		}
	}

	phone := strings.TrimSpace(candidate.Application.Phone)
	if phone == "" {
		return &SmsResult{
			Success:         false,
			ProviderCode:    SmsCodePhoneEmpty,
			ProviderMessage: "candidate has no phone number, cannot send SMS",
		}
	}

	provider := strings.ToLower(strings.TrimSpace(s.cfg.Provider))
	if provider != "aliyun" {
		return &SmsResult{
			Success:         false,
			ProviderCode:    SmsCodeProviderUnsupported,
			ProviderMessage: fmt.Sprintf("unsupported SMS provider: %s", provider),
		}
	}

	return s.gateway.Send(ctx, phone, buildScheduleTemplateParams(candidate), candidate.ID.String())
}

func buildScheduleTemplateParams(c *models.Candidate) map[string]string {
	interviewTime := ""
	if c.InterviewAt != nil {
		interviewTime = c.InterviewAt.Format("2006-01-02 15:04")
	}
	return map[string]string{
		"name":        c.Application.Name,
		"job":         c.Application.JobTitle,
		"round":       strconv.Itoa(c.CurrentRound()),
		"time":        interviewTime,
		"location":    c.InterviewLocation,
		"interviewer": c.Interviewer,
		"note":        c.Note,
	}
}

func (s *smsDispatchService) markSending(tx repositories.CandidateTx, c *models.Candidate, isRetry bool) error {
	now := time.Now()
	if isRetry {
		c.SmsRetryCount++
	} else {
		c.SmsRetryCount = 0
	}
	c.SmsStatus = models.SmsStatusSending
	c.SmsError = ""
	c.SmsLastAttemptAt = &now
	c.SmsUpdatedAt = &now
	c.SmsProviderCode = ""
	c.SmsProviderMessage = ""
	c.SmsMessageID = ""
	c.SmsSentAt = nil

	return tx.Save(c,
		"sms_retry_count",
		"sms_status",
		"sms_error",
		"sms_last_attempt_at",
		"sms_updated_at",
		"sms_provider_code",
		"sms_provider_message",
		"sms_message_id",
		"sms_sent_at",
	)
}

func (s *smsDispatchService) markResult(tx repositories.CandidateTx, c *models.Candidate, result *SmsResult) error {
	now := time.Now()
	if result.Success {
		c.SmsStatus = models.SmsStatusSuccess
		c.SmsSentAt = &now
		c.SmsError = ""
	} else {
		c.SmsStatus = models.SmsStatusFailed
		c.SmsError = fallback(result.ProviderMessage, "SMS send failed")
	}
	c.SmsUpdatedAt = &now
	c.SmsProviderCode = result.ProviderCode
	c.SmsProviderMessage = result.ProviderMessage
	c.SmsMessageID = result.BizID

	return tx.Save(c,
		"sms_status",
		"sms_updated_at",
		"sms_provider_code",
		"sms_provider_message",
		"sms_message_id",
		"sms_error",
		"sms_sent_at",
	)
}

func (s *smsDispatchService) writeAudit(candidate *models.Candidate, result *SmsResult, isRetry bool) {
	action := "SEND_INTERVIEW_SMS"
	if isRetry {
		action = "RETRY_INTERVIEW_SMS"
	}
	auditResult := models.OperationSuccess
	if !result.Success {
		auditResult = models.OperationFailed
	}
	targetID := candidate.ID
	s.audit.Write(&models.OperationLog{
		Module:      "interviews",
		Action:      action,
		TargetType:  "candidate",
		TargetID:    &targetID,
		TargetLabel: candidate.Application.Name,
		Result:      auditResult,
		Summary:     fmt.Sprintf("interview SMS for %s", candidate.Application.Name),
		Details: models.JSONMap{
			"candidate_id":  candidate.ID.String(),
			"success":       result.Success,
			"provider_code": result.ProviderCode,
			"message_id":    result.BizID,
			"retry_count":   candidate.SmsRetryCount,
		},
	})
}
