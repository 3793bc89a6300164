package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recruitflow/internal/models"
)

// ErrCandidateNotFound is returned when a candidate id does not exist.
var ErrCandidateNotFound = errors.New("candidate not found")

// CandidateTx is the slice of a transaction a locked-update callback may use.
// Everything done through it commits or rolls back with the owning transaction.
type CandidateTx interface {
	Save(candidate *models.Candidate, fields ...string) error
	UpsertRoundRecord(record *models.RoundRecord) error
}

type CandidateRepository interface {
	FindByID(id uuid.UUID) (*models.Candidate, error)
	FindRoundRecords(candidateID uuid.UUID) ([]models.RoundRecord, error)
	// UpdateLocked loads the candidate under a row-level write lock, runs fn,
	// and commits. The lock is held for local computation only; callers must
	// not do network I/O inside fn.
	UpdateLocked(ctx context.Context, id uuid.UUID, fn func(tx CandidateTx, candidate *models.Candidate) error) (*models.Candidate, error)
	// FindStalePendingPushes lists candidates whose OA push was marked pending
	// longer than age ago, meaning the process died between mark-pending and
	// mark-result.
	FindStalePendingPushes(age time.Duration, limit int) ([]models.Candidate, error)
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) FindByID(id uuid.UUID) (*models.Candidate, error) {
	var candidate models.Candidate
	err := r.db.Preload("Application").Where("id = ?", id).First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to find candidate: %w", err)
	}
	return &candidate, nil
}

func (r *candidateRepository) FindRoundRecords(candidateID uuid.UUID) ([]models.RoundRecord, error) {
	var records []models.RoundRecord
	err := r.db.
		Where("candidate_id = ?", candidateID).
		Order("round_no ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find round records: %w", err)
	}
	return records, nil
}

func (r *candidateRepository) UpdateLocked(
	ctx context.Context,
	id uuid.UUID,
	fn func(tx CandidateTx, candidate *models.Candidate) error,
) (*models.Candidate, error) {
	var candidate models.Candidate

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&candidate).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCandidateNotFound
			}
			return fmt.Errorf("failed to lock candidate: %w", err)
		}
		if err := tx.First(&candidate.Application, "id = ?", candidate.ApplicationID).Error; err != nil {
			return fmt.Errorf("failed to load application: %w", err)
		}
		return fn(&candidateTx{tx: tx}, &candidate)
	})
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}

func (r *candidateRepository) FindStalePendingPushes(age time.Duration, limit int) ([]models.Candidate, error) {
	cutoff := time.Now().Add(-age)
	var candidates []models.Candidate
	err := r.db.
		Preload("Application").
		Where("oa_push_status = ? AND oa_push_last_attempt_at < ?", models.OAPushStatusPending, cutoff).
		Order("oa_push_last_attempt_at ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find stale pending pushes: %w", err)
	}
	return candidates, nil
}

type candidateTx struct {
	tx *gorm.DB
}

// Save persists the named fields of the candidate, updated_at included.
func (t *candidateTx) Save(candidate *models.Candidate, fields ...string) error {
	candidate.UpdatedAt = time.Now()
	fields = append(fields, "updated_at")

	result := t.tx.Model(candidate).Select(fields).Updates(candidate)
	if result.Error != nil {
		return fmt.Errorf("failed to save candidate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCandidateNotFound
	}
	return nil
}

// UpsertRoundRecord writes the per-round snapshot, overwriting the previous
// snapshot for the same (candidate, round_no) if one exists.
func (t *candidateTx) UpsertRoundRecord(record *models.RoundRecord) error {
	err := t.tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "candidate_id"}, {Name: "round_no"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"interview_at",
			"interviewer",
			"interviewers",
			"score",
			"interviewer_scores",
			"result",
			"result_note",
		}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert round record: %w", err)
	}
	return nil
}
