// Package worker schedules execution of pending intents. It is the only
// caller of the execution service in the running system; at-least-once
// invocation is safe because the claim step is transactional.
package worker

import (
	"context"
	"log"
	"sort"
	"time"

	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/observability"
	"solana-agent-arena/internal/store"
)

// Executor drives one intent to a terminal state.
type Executor interface {
	ProcessIntent(ctx context.Context, intentID string) (*domain.TradeIntent, error)
}

// Archiver flushes processed executions to the analytics archive.
type Archiver interface {
	Flush(ctx context.Context, state *domain.AppState) (int, error)
}

// DefaultInterval between scheduling passes.
const DefaultInterval = 2 * time.Second

// Worker polls for pending intents and processes them oldest first.
type Worker struct {
	store    *store.Store
	executor Executor
	archiver Archiver // optional
	metrics  *observability.Metrics
	logger   *log.Logger
	interval time.Duration
}

// Options configures a Worker.
type Options struct {
	Store    *store.Store
	Executor Executor
	// Archiver is optional; nil disables archiving.
	Archiver Archiver
	// Metrics is optional.
	Metrics  *observability.Metrics
	Logger   *log.Logger
	Interval time.Duration
}

// New creates a worker.
func New(opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Worker{
		store:    opts.Store,
		executor: opts.Executor,
		archiver: opts.Archiver,
		metrics:  opts.Metrics,
		logger:   logger,
		interval: interval,
	}
}

// Run processes pending intents on the configured cadence until the
// context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs one scheduling pass: collect pending intents from a
// snapshot, process them oldest first, then flush the archive. Individual
// failures are logged and do not stop the pass.
func (w *Worker) RunOnce(ctx context.Context) {
	start := time.Now()
	snap := w.store.Snapshot()

	pending := make([]*domain.TradeIntent, 0)
	for _, it := range snap.Intents {
		if it.Status == domain.IntentStatusPending {
			pending = append(pending, it)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt != pending[j].CreatedAt {
			return pending[i].CreatedAt < pending[j].CreatedAt
		}
		return pending[i].ID < pending[j].ID
	})

	for _, it := range pending {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.executor.ProcessIntent(ctx, it.ID); err != nil {
			w.logger.Printf("process intent %s: %v", it.ID, err)
		}
	}

	// Re-snapshot so freshly settled intents and executions are included.
	after := w.store.Snapshot()

	if w.archiver != nil {
		flushed, err := w.archiver.Flush(ctx, after)
		if err != nil {
			w.logger.Printf("archive flush: %v", err)
		} else if flushed > 0 && w.metrics != nil {
			w.metrics.ArchivedExecutions.Add(float64(flushed))
		}
	}

	if w.metrics != nil {
		stillPending := 0
		for _, it := range after.Intents {
			if it.Status == domain.IntentStatusPending {
				stillPending++
			}
		}
		w.metrics.WorkerRunsTotal.Inc()
		w.metrics.WorkerRunDuration.Observe(time.Since(start).Seconds())
		w.metrics.PendingIntents.Set(float64(stillPending))
	}
}
