package models

import (
	"time"

	"github.com/google/uuid"
)

type OperationResult string

const (
	OperationSuccess OperationResult = "success"
	OperationFailed  OperationResult = "failed"
)

// OperationLog is the admin-side audit trail. Writes are best-effort: a failed
// insert must never fail the operation being audited.
type OperationLog struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Module      string          `gorm:"type:text;not null;index:oplog_mod_act,priority:1" json:"module"`
	Action      string          `gorm:"type:text;not null;index:oplog_mod_act,priority:2" json:"action"`
	TargetType  string          `gorm:"type:text" json:"target_type"`
	TargetID    *uuid.UUID      `gorm:"type:uuid" json:"target_id,omitempty"`
	TargetLabel string          `gorm:"type:text" json:"target_label"`
	Result      OperationResult `gorm:"type:text;default:'success';index" json:"result"`
	Summary     string          `gorm:"type:text" json:"summary"`
	Details     JSONMap         `gorm:"type:jsonb;default:'{}'" json:"details"`
	RequestID   string          `gorm:"type:text" json:"request_id"`
	CreatedAt   time.Time       `gorm:"type:timestamp;default:now();index" json:"created_at"`
}

func (OperationLog) TableName() string {
	return "operation_logs"
}
