package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/service"
)

// Sweeper runs one reconciliation pass.
type Sweeper interface {
	Sweep(ctx context.Context) (service.ReconcileReport, error)
}

// ReconcileWorker periodically sweeps partial registrations.
type ReconcileWorker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
	done     chan struct{}
}

// NewReconcileWorker builds a worker; Start must be called to run it.
func NewReconcileWorker(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *ReconcileWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReconcileWorker{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs sweeps until ctx is cancelled. Wait blocks until it returns.
func (w *ReconcileWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("reconcile worker started", zap.Duration("interval", w.interval))
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("reconcile worker stopped")
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()
}

// Wait blocks until the worker loop has exited.
func (w *ReconcileWorker) Wait() {
	<-w.done
}

func (w *ReconcileWorker) runOnce(ctx context.Context) {
	report, err := w.sweeper.Sweep(ctx)
	if err != nil {
		w.logger.Error("reconcile sweep failed", zap.Error(err))
		return
	}
	if report.Checked == 0 {
		return
	}
	w.logger.Info("reconcile sweep finished",
		zap.Int("checked", report.Checked),
		zap.Int("resolved", report.Resolved),
		zap.Int("confirmed", report.Confirmed),
		zap.Int("relinked", report.Relinked),
		zap.Int("orphaned", report.Orphaned),
		zap.Int("waiting", report.Waiting),
		zap.Int("failed", report.Failed))
}
