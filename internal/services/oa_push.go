package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recruitflow/internal/config"
	"recruitflow/internal/models"
	"recruitflow/internal/repositories"
)

// OAPushService pushes a confirmed hire into the enterprise OA workflow
// system, with idempotent short-circuit, bounded automatic retry and full
// state bookkeeping on the candidate row.
type OAPushService interface {
	Dispatch(ctx context.Context, candidateID uuid.UUID, isRetry bool) (*models.Candidate, *OAPushResult, error)
}

type oaPushService struct {
	cfg        config.OAPushConfig
	repo       repositories.CandidateRepository
	gateway    OAGateway
	tokens     TokenCache
	audit      AuditWriter
	logger     *zap.Logger
	builder    *OAPayloadBuilder
	builderErr error
}

func NewOAPushService(
	cfg config.OAPushConfig,
	repo repositories.CandidateRepository,
	gateway OAGateway,
	tokens TokenCache,
	audit AuditWriter,
	logger *zap.Logger,
) OAPushService {
	// A broken mapping config must not prevent startup while pushes are
	// disabled; it surfaces as a payload failure on the first dispatch.
	builder, err := NewOAPayloadBuilder(cfg)
	return &oaPushService{
		cfg:        cfg,
		repo:       repo,
		gateway:    gateway,
		tokens:     tokens,
		audit:      audit,
		logger:     logger,
		builder:    builder,
		builderErr: err,
	}
}

// Dispatch runs the full push: lock and mark pending, call the gateway with
// no lock held, then lock again and persist the outcome.
func (s *oaPushService) Dispatch(ctx context.Context, candidateID uuid.UUID, isRetry bool) (*models.Candidate, *OAPushResult, error) {
	var cached *OAPushResult

	candidate, err := s.repo.UpdateLocked(ctx, candidateID, func(tx repositories.CandidateTx, c *models.Candidate) error {
		if c.OAPushStatus == models.OAPushStatusSuccess && c.OAPushRequestID != "" {
			// Terminal success: never create the OA workflow twice.
			cached = &OAPushResult{
				Success:         true,
				RequestID:       c.OAPushRequestID,
				OACode:          c.OAPushOACode,
				OAMessage:       "already pushed successfully, skipping duplicate create",
				PayloadSnapshot: map[string]interface{}(c.OAPushPayloadSnapshot),
			}
			return nil
		}
		if !c.IsHired {
			return newFlowError(CodeInvalidCandidateState, "candidate is not a confirmed hire, nothing to push")
		}
		return s.markPending(tx, c, isRetry)
	})
	if err != nil {
		return nil, nil, err
	}
	if cached != nil {
		return candidate, cached, nil
	}

	result := s.attempt(ctx, candidate)

	candidate, err = s.repo.UpdateLocked(ctx, candidateID, func(tx repositories.CandidateTx, c *models.Candidate) error {
		return s.markResult(tx, c, result)
	})
	if err != nil {
		return nil, nil, err
	}

	s.writeAudit(candidate, result, isRetry)
	return candidate, result, nil
}

func (s *oaPushService) attempt(ctx context.Context, candidate *models.Candidate) *OAPushResult {
	if !s.cfg.Enabled {
		return &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorDisabled,
			ErrorMessage: "OA push is disabled",
		}
	}

	maxAttempts := s.cfg.AutoRetryTimes + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var result *OAPushResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result = s.pushOnce(ctx, candidate)
		if result.Success || !result.Retryable {
			break
		}
		if attempt < maxAttempts {
			s.logger.Info("retrying OA push",
				zap.String("candidate_id", candidate.ID.String()),
				zap.Int("attempt", attempt),
				zap.String("error_code", result.ErrorCode),
			)
		}
	}
	return result
}

// pushOnce is one full push: build payload, resolve a token, create the
// workflow. A push rejected for an expired token forces one refresh and one
// more create before giving up.
func (s *oaPushService) pushOnce(ctx context.Context, candidate *models.Candidate) *OAPushResult {
	if missing := s.missingConfigKeys(); len(missing) > 0 {
		return &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorConfig,
			ErrorMessage: fmt.Sprintf("OA config missing: %s", strings.Join(missing, ",")),
		}
	}
	if s.builderErr != nil {
		return &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorPayload,
			ErrorMessage: fmt.Sprintf("OA field mappings invalid: %v", s.builderErr),
		}
	}

	payload, err := s.builder.Build(candidate)
	if err != nil {
		return &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorPayload,
			ErrorMessage: fmt.Sprintf("failed to build OA request body: %v", err),
		}
	}

	token, ok := s.tokens.Get()
	if !ok {
		fresh, tokenResult := s.gateway.ApplyToken(ctx)
		if !tokenResult.Success {
			tokenResult.PayloadSnapshot = payload.Snapshot()
			return tokenResult
		}
		s.tokens.Set(fresh, s.cfg.TokenTTL)
		token = fresh
	}

	result := s.gateway.CreateRequest(ctx, token, payload)
	if result.Success || result.ErrorCode != OAErrorTokenExpired {
		return result
	}

	// The token died server-side between cache and use. Refresh once and
	// retry the push once, instead of burning the whole retry budget.
	s.tokens.Clear()
	fresh, tokenResult := s.gateway.ApplyToken(ctx)
	if !tokenResult.Success {
		tokenResult.PayloadSnapshot = payload.Snapshot()
		return tokenResult
	}
	s.tokens.Set(fresh, s.cfg.TokenTTL)
	return s.gateway.CreateRequest(ctx, fresh, payload)
}

func (s *oaPushService) missingConfigKeys() []string {
	required := map[string]string{
		"OA_PUSH_BASE_URL":    s.cfg.BaseURL,
		"OA_PUSH_APP_ID":      s.cfg.AppID,
		"OA_PUSH_SECRET":      s.cfg.Secret,
		"OA_PUSH_SPK":         s.cfg.PublicKey,
		"OA_PUSH_USER_ID":     s.cfg.UserID,
		"OA_PUSH_WORKFLOW_ID": s.cfg.WorkflowID,
	}
	var missing []string
	for _, key := range []string{
		"OA_PUSH_BASE_URL",
		"OA_PUSH_APP_ID",
		"OA_PUSH_SECRET",
		"OA_PUSH_SPK",
		"OA_PUSH_USER_ID",
		"OA_PUSH_WORKFLOW_ID",
	} {
		if strings.TrimSpace(required[key]) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// markPending records the in-flight state before any network call, so an
// observer sees the attempt even if the process dies mid-push.
func (s *oaPushService) markPending(tx repositories.CandidateTx, c *models.Candidate, isRetry bool) error {
	now := time.Now()
	if isRetry {
		c.OAPushRetryCount++
	} else {
		c.OAPushRetryCount = 0
	}
	c.OAPushStatus = models.OAPushStatusPending
	c.OAPushLastAttemptAt = &now
	c.OAPushErrorCode = ""
	c.OAPushErrorMessage = ""
	c.OAPushOACode = ""
	c.OAPushOAMessage = ""

	if isRetry {
		s.logger.Info("OA push retry",
			zap.String("candidate_id", c.ID.String()),
			zap.Int("retry_count", c.OAPushRetryCount),
		)
	}

	return tx.Save(c,
		"oa_push_retry_count",
		"oa_push_status",
		"oa_push_last_attempt_at",
		"oa_push_error_code",
		"oa_push_error_message",
		"oa_push_oa_code",
		"oa_push_oa_message",
	)
}

func (s *oaPushService) markResult(tx repositories.CandidateTx, c *models.Candidate, result *OAPushResult) error {
	now := time.Now()
	if result.PayloadSnapshot != nil {
		c.OAPushPayloadSnapshot = models.JSONMap(result.PayloadSnapshot)
	} else {
		c.OAPushPayloadSnapshot = models.JSONMap{}
	}
	if result.Success {
		c.OAPushStatus = models.OAPushStatusSuccess
		c.OAPushSuccessAt = &now
		c.OAPushRequestID = result.RequestID
		c.OAPushErrorCode = ""
		c.OAPushErrorMessage = ""
	} else {
		c.OAPushStatus = models.OAPushStatusFailed
		c.OAPushRequestID = ""
		c.OAPushErrorCode = fallback(result.ErrorCode, OAErrorRuntime)
		c.OAPushErrorMessage = fallback(result.ErrorMessage, "OA push failed")
	}
	c.OAPushOACode = result.OACode
	c.OAPushOAMessage = result.OAMessage

	return tx.Save(c,
		"oa_push_status",
		"oa_push_success_at",
		"oa_push_request_id",
		"oa_push_error_code",
		"oa_push_error_message",
		"oa_push_oa_code",
		"oa_push_oa_message",
		"oa_push_payload_snapshot",
	)
}

func (s *oaPushService) writeAudit(candidate *models.Candidate, result *OAPushResult, isRetry bool) {
	action := "OA_PUSH"
	if isRetry {
		action = "RETRY_OA_PUSH"
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
		Summary:     fmt.Sprintf("OA push for %s", candidate.Application.Name),
		Details: models.JSONMap{
			"candidate_id": candidate.ID.String(),
			"success":      result.Success,
			"retryable":    result.Retryable,
			"error_code":   result.ErrorCode,
			"request_id":   result.RequestID,
			"retry_count":  candidate.OAPushRetryCount,
		},
	})
}

// ToPayload shapes the result for API responses.
func (r *OAPushResult) ToPayload() *models.OAPushResultPayload {
	return &models.OAPushResultPayload{
		Success:      r.Success,
		Retryable:    r.Retryable,
		ErrorCode:    r.ErrorCode,
		ErrorMessage: r.ErrorMessage,
		OACode:       r.OACode,
		OAMessage:    r.OAMessage,
		RequestID:    r.RequestID,
	}
}
