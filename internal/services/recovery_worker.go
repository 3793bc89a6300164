package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recruitflow/internal/config"
	"recruitflow/internal/repositories"
)

// RecoveryWorker re-dispatches OA pushes stuck in pending: a push is marked
// pending before the network call, so a crash between mark and result leaves
// the row pending forever. Re-dispatching is safe because a push that did
// reach the OA side short-circuits on its recorded request id.
type RecoveryWorker interface {
	Start(ctx context.Context)
	Stop()
}

type recoveryWorker struct {
	cfg      config.WorkerConfig
	repo     repositories.CandidateRepository
	oaPush   OAPushService
	logger   *zap.Logger
	jobQueue chan uuid.UUID
	wg       sync.WaitGroup
	stopChan chan struct{}
}

func NewRecoveryWorker(
	cfg config.WorkerConfig,
	repo repositories.CandidateRepository,
	oaPush OAPushService,
	logger *zap.Logger,
) RecoveryWorker {
	return &recoveryWorker{
		cfg:      cfg,
		repo:     repo,
		oaPush:   oaPush,
		logger:   logger,
		jobQueue: make(chan uuid.UUID, 100),
		stopChan: make(chan struct{}),
	}
}

func (w *recoveryWorker) Start(ctx context.Context) {
	w.logger.Info("starting OA push recovery worker",
		zap.Int("concurrency", w.cfg.Concurrency),
		zap.Duration("poll_interval", w.cfg.RecoveryPollInterval),
		zap.Duration("pending_age", w.cfg.RecoveryPendingAge),
	)

	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollStalePushes(ctx)
}

func (w *recoveryWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("OA push recovery worker stopped")
}

func (w *recoveryWorker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case candidateID := <-w.jobQueue:
			_, result, err := w.oaPush.Dispatch(ctx, candidateID, true)
			if err != nil {
				w.logger.Error("recovery dispatch failed",
					zap.Int("worker_id", workerID),
					zap.String("candidate_id", candidateID.String()),
					zap.Error(err),
				)
				continue
			}
			w.logger.Info("recovered stale OA push",
				zap.Int("worker_id", workerID),
				zap.String("candidate_id", candidateID.String()),
				zap.Bool("success", result.Success),
				zap.String("error_code", result.ErrorCode),
			)
		}
	}
}

func (w *recoveryWorker) pollStalePushes(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.RecoveryPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			candidates, err := w.repo.FindStalePendingPushes(w.cfg.RecoveryPendingAge, 10)
			if err != nil {
				w.logger.Warn("failed to poll stale OA pushes", zap.Error(err))
				continue
			}
			for _, candidate := range candidates {
				select {
				case w.jobQueue <- candidate.ID:
				case <-w.stopChan:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
