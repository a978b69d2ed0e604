package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/campusvoice/feedback-service/internal/observability"
)

type countingSweeper struct {
	calls  atomic.Int64
	result int
	err    error
}

func (s *countingSweeper) SweepEscalations(context.Context, time.Time) (int, error) {
	s.calls.Add(1)
	return s.result, s.err
}

func TestSweepWorkerRunsOnTick(t *testing.T) {
	sweeper := &countingSweeper{result: 2}
	metrics := observability.NewMetrics()
	w := NewSweepWorker(sweeper, nil, zap.NewNop(), metrics, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sweeper.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper was not invoked in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	runs, escalated := metrics.SweepTotals()
	if runs < 2 {
		t.Errorf("sweep runs = %d, want at least 2", runs)
	}
	if escalated < 4 {
		t.Errorf("escalated total = %d, want at least 4", escalated)
	}
}

func TestSweepWorkerSurvivesSweeperErrors(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	w := NewSweepWorker(sweeper, nil, zap.NewNop(), observability.NewMetrics(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sweeper.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("worker stopped retrying after an error")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestSweepWorkerDefaultsInterval(t *testing.T) {
	w := NewSweepWorker(&countingSweeper{}, nil, zap.NewNop(), nil, 0)
	if w.interval != 15*time.Minute {
		t.Errorf("interval = %v, want 15m", w.interval)
	}
}
