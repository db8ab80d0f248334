package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/service"
)

type fakeReconciler struct {
	calls   atomic.Int32
	dryRuns atomic.Int32
	block   chan struct{}
	once    sync.Once
	started chan struct{}
}

func (f *fakeReconciler) Run(ctx context.Context, dryRun bool) (service.ReconcileReport, error) {
	f.calls.Add(1)
	if dryRun {
		f.dryRuns.Add(1)
	}
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block != nil {
		<-f.block
	}
	return service.ReconcileReport{Mismatched: []string{"inc-1"}, DryRun: dryRun}, nil
}

func TestStartReconcileWorker_DisabledWithoutSchedule(t *testing.T) {
	w, err := StartReconcileWorker(context.Background(), config.ReconcileConfig{}, &fakeReconciler{}, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, w)
	w.Stop()
}

func TestStartReconcileWorker_RejectsBadSchedule(t *testing.T) {
	_, err := StartReconcileWorker(context.Background(), config.ReconcileConfig{Schedule: "not a cron"}, &fakeReconciler{}, zap.NewNop())
	require.Error(t, err)
}

func TestStartReconcileWorker_RunsOnSchedule(t *testing.T) {
	rec := &fakeReconciler{}
	w, err := StartReconcileWorker(context.Background(), config.ReconcileConfig{Schedule: "@every 1s", DryRun: true}, rec, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(w.Stop)

	require.Eventually(t, func() bool { return rec.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
	require.Equal(t, rec.calls.Load(), rec.dryRuns.Load())
}

func TestReconcileWorker_SkipsOverlappingRuns(t *testing.T) {
	rec := &fakeReconciler{block: make(chan struct{}), started: make(chan struct{})}
	w := &ReconcileWorker{reconciler: rec, logger: zap.NewNop()}

	done := make(chan struct{})
	go func() {
		w.runOnce(context.Background())
		close(done)
	}()
	<-rec.started

	w.runOnce(context.Background())
	require.Equal(t, int32(1), rec.calls.Load())

	close(rec.block)
	<-done
	w.runOnce(context.Background())
	require.Equal(t, int32(2), rec.calls.Load())
}
