package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"recruitflow/internal/models"
)

type OperationLogRepository interface {
	Create(entry *models.OperationLog) error
}

type operationLogRepository struct {
	db *gorm.DB
}

func NewOperationLogRepository(db *gorm.DB) OperationLogRepository {
	return &operationLogRepository{db: db}
}

func (r *operationLogRepository) Create(entry *models.OperationLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create operation log: %w", err)
	}
	return nil
}
