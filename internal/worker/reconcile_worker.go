package worker

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/service"
)

// Reconciler is the part of the reconcile service the worker drives.
type Reconciler interface {
	Run(ctx context.Context, dryRun bool) (service.ReconcileReport, error)
}

// ReconcileWorker runs projection reconciliation on a cron schedule.
type ReconcileWorker struct {
	cron       *cron.Cron
	reconciler Reconciler
	logger     *zap.Logger
	dryRun     bool

	mu      sync.Mutex
	running bool
}

// StartReconcileWorker schedules reconciliation. It returns nil when the
// schedule is empty.
func StartReconcileWorker(ctx context.Context, cfg config.ReconcileConfig, reconciler Reconciler, logger *zap.Logger) (*ReconcileWorker, error) {
	if cfg.Schedule == "" || reconciler == nil {
		logger.Info("reconcile worker disabled")
		return nil, nil
	}

	w := &ReconcileWorker{
		cron:       cron.New(),
		reconciler: reconciler,
		logger:     logger,
		dryRun:     cfg.DryRun,
	}
	if _, err := w.cron.AddFunc(cfg.Schedule, func() { w.runOnce(ctx) }); err != nil {
		return nil, err
	}
	w.cron.Start()
	logger.Info("reconcile worker started", zap.String("schedule", cfg.Schedule), zap.Bool("dry_run", cfg.DryRun))
	return w, nil
}

// runOnce skips a tick while the previous pass is still running.
func (w *ReconcileWorker) runOnce(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.logger.Warn("previous reconciliation still running; skipping tick")
		return
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	report, err := w.reconciler.Run(ctx, w.dryRun)
	if err != nil {
		w.logger.Error("reconciliation failed", zap.Error(err))
		return
	}
	if len(report.Mismatched) > 0 {
		w.logger.Warn("reconciliation found mismatches",
			zap.Strings("incident_ids", report.Mismatched),
			zap.Int("repaired", len(report.Repaired)))
	}
}

// Stop halts scheduling and waits for a running pass to finish.
func (w *ReconcileWorker) Stop() {
	if w == nil {
		return
	}
	<-w.cron.Stop().Done()
}
