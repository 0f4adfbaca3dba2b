package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/service"
)

type countingSweeper struct {
	runs atomic.Int32
	err  error
}

func (s *countingSweeper) Sweep(context.Context) (service.ReconcileReport, error) {
	s.runs.Add(1)
	return service.ReconcileReport{Checked: 1, Resolved: 1}, s.err
}

func TestReconcileWorker_SweepsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewReconcileWorker(sweeper, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.Eventually(t, func() bool { return sweeper.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	w.Wait()

	runs := sweeper.runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, runs, sweeper.runs.Load())
}

func TestReconcileWorker_KeepsRunningAfterErrors(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("redis unavailable")}
	w := NewReconcileWorker(sweeper, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	assert.Eventually(t, func() bool { return sweeper.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestNewReconcileWorker_DefaultsInterval(t *testing.T) {
	w := NewReconcileWorker(&countingSweeper{}, 0, zap.NewNop())
	assert.Equal(t, time.Minute, w.interval)
}
