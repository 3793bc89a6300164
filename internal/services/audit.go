package services

import (
	"go.uber.org/zap"

	"recruitflow/internal/models"
	"recruitflow/internal/repositories"
)

// AuditWriter records operation logs best-effort: a failed write is logged and
// discarded, never surfaced to the operation being audited. Call it after the
// primary transaction committed, outside the row lock.
type AuditWriter interface {
	Write(entry *models.OperationLog)
}

type auditWriter struct {
	repo   repositories.OperationLogRepository
	logger *zap.Logger
}

func NewAuditWriter(repo repositories.OperationLogRepository, logger *zap.Logger) AuditWriter {
	return &auditWriter{repo: repo, logger: logger}
}

func (w *auditWriter) Write(entry *models.OperationLog) {
	if entry.Result == "" {
		entry.Result = models.OperationSuccess
	}
	if err := w.repo.Create(entry); err != nil {
		w.logger.Warn("audit write failed",
			zap.String("module", entry.Module),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
