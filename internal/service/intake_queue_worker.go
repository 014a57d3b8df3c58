package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"claimintake/internal/port"
)

// IntakeQueueConfig holds settings for the intake queue worker.
type IntakeQueueConfig struct {
	PollInterval time.Duration
	Concurrency  int
	// RunTimeout bounds a single batch run.
	RunTimeout time.Duration
}

// IntakeQueueWorker polls for queued sessions and runs their batches.
type IntakeQueueWorker struct {
	sessionRepo port.SessionRepository
	intake      IntakeService
	cfg         IntakeQueueConfig
	logger      *zap.Logger
	wg          sync.WaitGroup
}

// NewIntakeQueueWorker creates a new IntakeQueueWorker.
func NewIntakeQueueWorker(sessionRepo port.SessionRepository, intake IntakeService, cfg IntakeQueueConfig, logger *zap.Logger) *IntakeQueueWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	return &IntakeQueueWorker{
		sessionRepo: sessionRepo,
		intake:      intake,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight runs have finished.
func (w *IntakeQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	w.logger.Info("service.IntakeQueueWorker: started",
		zap.Duration("poll", w.cfg.PollInterval), zap.Int("concurrency", w.cfg.Concurrency))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("service.IntakeQueueWorker: shutting down, waiting for in-flight runs")
			w.wg.Wait()
			w.logger.Info("service.IntakeQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			w.poll(ctx, sem)
		}
	}
}

func (w *IntakeQueueWorker) poll(ctx context.Context, sem chan struct{}) {
	available := w.cfg.Concurrency - len(sem)
	if available <= 0 {
		return
	}

	sessions, err := w.sessionRepo.ClaimQueued(ctx, available)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("service.IntakeQueueWorker: ClaimQueued failed", zap.Error(err))
		}
		return
	}

	for i := range sessions {
		sess := sessions[i]

		sem <- struct{}{}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()

			// Fresh context so in-flight runs complete during shutdown.
			runCtx, cancel := context.WithTimeout(context.Background(), w.cfg.RunTimeout)
			defer cancel()

			w.logger.Info("service.IntakeQueueWorker: dispatching session",
				zap.Stringer("session_id", sess.ID), zap.Int("attempt", sess.Attempt+1))
			if err := w.intake.RunSession(runCtx, &sess); err != nil {
				w.logger.Error("service.IntakeQueueWorker: run failed",
					zap.Stringer("session_id", sess.ID), zap.Error(err))
			}
		}()
	}
}
