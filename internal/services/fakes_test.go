package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"recruitflow/internal/models"
	"recruitflow/internal/repositories"
)

// fakeCandidateRepo backs the dispatch services with a single in-memory
// candidate, mimicking the lock-update-commit contract of the real repository.
type fakeCandidateRepo struct {
	candidate *models.Candidate
	records   map[int]*models.RoundRecord
	saved     [][]string
}

func newFakeCandidateRepo(candidate *models.Candidate) *fakeCandidateRepo {
	return &fakeCandidateRepo{
		candidate: candidate,
		records:   make(map[int]*models.RoundRecord),
	}
}

func (r *fakeCandidateRepo) FindByID(id uuid.UUID) (*models.Candidate, error) {
	if r.candidate == nil || r.candidate.ID != id {
		return nil, repositories.ErrCandidateNotFound
	}
	return r.candidate, nil
}

func (r *fakeCandidateRepo) FindRoundRecords(candidateID uuid.UUID) ([]models.RoundRecord, error) {
	var out []models.RoundRecord
	for _, record := range r.records {
		out = append(out, *record)
	}
	return out, nil
}

func (r *fakeCandidateRepo) UpdateLocked(
	ctx context.Context,
	id uuid.UUID,
	fn func(tx repositories.CandidateTx, candidate *models.Candidate) error,
) (*models.Candidate, error) {
	if r.candidate == nil || r.candidate.ID != id {
		return nil, repositories.ErrCandidateNotFound
	}
	if err := fn(&fakeCandidateTx{repo: r}, r.candidate); err != nil {
		return nil, err
	}
	return r.candidate, nil
}

func (r *fakeCandidateRepo) FindStalePendingPushes(age time.Duration, limit int) ([]models.Candidate, error) {
	cutoff := time.Now().Add(-age)
	if r.candidate != nil &&
		r.candidate.OAPushStatus == models.OAPushStatusPending &&
		r.candidate.OAPushLastAttemptAt != nil &&
		r.candidate.OAPushLastAttemptAt.Before(cutoff) {
		return []models.Candidate{*r.candidate}, nil
	}
	return nil, nil
}

type fakeCandidateTx struct {
	repo *fakeCandidateRepo
}

func (t *fakeCandidateTx) Save(candidate *models.Candidate, fields ...string) error {
	t.repo.saved = append(t.repo.saved, fields)
	return nil
}

func (t *fakeCandidateTx) UpsertRoundRecord(record *models.RoundRecord) error {
	t.repo.records[record.RoundNo] = record
	return nil
}

// fakeOAGateway replays scripted token and create responses and counts calls.
type fakeOAGateway struct {
	tokens        []string
	tokenFailures []*OAPushResult
	createResults []*OAPushResult

	applyCalls  int
	createCalls int
	usedTokens  []string
}

func (g *fakeOAGateway) ApplyToken(ctx context.Context) (string, *OAPushResult) {
	i := g.applyCalls
	g.applyCalls++
	if i < len(g.tokenFailures) && g.tokenFailures[i] != nil {
		return "", g.tokenFailures[i]
	}
	token := "token-1"
	if i < len(g.tokens) {
		token = g.tokens[i]
	}
	return token, &OAPushResult{Success: true}
}

func (g *fakeOAGateway) CreateRequest(ctx context.Context, token string, payload *OAPayload) *OAPushResult {
	i := g.createCalls
	g.createCalls++
	g.usedTokens = append(g.usedTokens, token)
	if i < len(g.createResults) {
		result := *g.createResults[i]
		result.PayloadSnapshot = payload.Snapshot()
		return &result
	}
	return &OAPushResult{
		Success:         true,
		RequestID:       "req-default",
		PayloadSnapshot: payload.Snapshot(),
	}
}

// fakeSmsGateway returns a scripted result and counts sends.
type fakeSmsGateway struct {
	result *SmsResult

	sendCalls  int
	lastPhone  string
	lastParams map[string]string
}

func (g *fakeSmsGateway) Send(ctx context.Context, phone string, templateParams map[string]string, outID string) *SmsResult {
	g.sendCalls++
	g.lastPhone = phone
	g.lastParams = templateParams
	if g.result != nil {
		return g.result
	}
	return &SmsResult{Success: true, ProviderCode: "OK", BizID: "biz-1"}
}

// captureAudit records entries instead of hitting a database.
type captureAudit struct {
	entries []*models.OperationLog
}

func (a *captureAudit) Write(entry *models.OperationLog) {
	a.entries = append(a.entries, entry)
}

func newTestCandidate() *models.Candidate {
	return &models.Candidate{
		ID:            uuid.New(),
		ApplicationID: uuid.New(),
		Status:        models.StatusPending,
		Round:         1,
		OfferStatus:   models.OfferStatusPending,
		Application: models.Application{
			Name:     "Chen Wei",
			Phone:    "13800000001",
			Email:    "chen.wei@example.com",
			JobTitle: "Backend Engineer",
			Region:   "Shanghai",
		},
	}
}
