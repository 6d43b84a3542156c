package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/shopdesk/shopdesk-backend/pkg/logger"
)

const defaultInterval = 5 * time.Minute

// Worker runs the poll driver on a fixed cadence until its context is
// canceled. The first run fires immediately.
type Worker struct {
	runner   *Runner
	lock     Lock
	logg     *logger.Logger
	interval time.Duration
}

// WorkerParams configure the sync worker.
type WorkerParams struct {
	Runner   *Runner
	Lock     Lock
	Logger   *logger.Logger
	Interval time.Duration
}

// NewWorker builds a sync worker.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Runner == nil {
		return nil, fmt.Errorf("sync runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	lock := params.Lock
	if lock == nil {
		lock = NoopLock{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Worker{
		runner:   params.Runner,
		lock:     lock,
		logg:     params.Logger,
		interval: interval,
	}, nil
}

// Run starts the polling loop until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w.runCycle(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "sync worker context canceled")
			return ctx.Err()
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

func (w *Worker) runCycle(ctx context.Context) {
	locked, err := w.lock.Acquire(ctx)
	if err != nil {
		w.logg.Error(ctx, "sync lock acquire failed", err)
		return
	}
	if !locked {
		w.logg.Info(ctx, "another sync instance is running; skipping this cycle")
		return
	}
	defer func() {
		if relErr := w.lock.Release(ctx); relErr != nil {
			w.logg.Error(ctx, "failed to release sync lock", relErr)
		}
	}()

	runCtx := w.logg.WithField(ctx, "driver", DriverPoll)
	w.logg.Info(runCtx, "sync run starting")
	start := time.Now()
	summary, err := w.runner.SyncAll(runCtx)
	runCtx = w.logg.WithField(runCtx, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		w.logg.Error(runCtx, "sync run failed", err)
		return
	}
	runCtx = w.logg.WithFields(runCtx, map[string]any{
		"imported": summary.Imported,
		"updated":  summary.Updated,
		"failed":   len(summary.Errors),
		"total":    summary.Total,
	})
	w.logg.Info(runCtx, "sync run complete")
}
