package worker_test

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/observability"
	"solana-agent-arena/internal/store"
	"solana-agent-arena/internal/store/memory"
	"solana-agent-arena/internal/worker"
)

type fakeExecutor struct {
	mu        sync.Mutex
	processed []string
	errFor    map[string]error
	store     *store.Store
}

func (f *fakeExecutor) ProcessIntent(ctx context.Context, intentID string) (*domain.TradeIntent, error) {
	f.mu.Lock()
	f.processed = append(f.processed, intentID)
	err := f.errFor[intentID]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var settled *domain.TradeIntent
	uerr := f.store.Update(ctx, func(state *domain.AppState) error {
		cur := state.Intents[intentID]
		cur.Status = domain.IntentStatusExecuted
		settled = cur.Clone()
		return nil
	})
	return settled, uerr
}

type fakeArchiver struct {
	mu      sync.Mutex
	flushes int
	flushed int
	err     error
}

func (f *fakeArchiver) Flush(_ context.Context, state *domain.AppState) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.flushes++
	n := len(state.Executions)
	f.flushed += n
	return n, nil
}

func newWorkerFixture(t *testing.T, intents ...*domain.TradeIntent) (*store.Store, *fakeExecutor) {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, store.Options{
		Backend: memory.New(),
		Logger:  log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, func(state *domain.AppState) error {
		for _, it := range intents {
			state.Intents[it.ID] = it
		}
		return nil
	}))
	return s, &fakeExecutor{store: s, errFor: map[string]error{}}
}

func pendingIntent(id string, createdAt int64) *domain.TradeIntent {
	return &domain.TradeIntent{
		ID: id, AgentID: "a1", Symbol: "SOL", Side: domain.SideBuy,
		NotionalUsd: 100, Status: domain.IntentStatusPending, CreatedAt: createdAt,
	}
}

func TestRunOnce_ProcessesOldestFirst(t *testing.T) {
	s, exec := newWorkerFixture(t,
		pendingIntent("i-c", 300),
		pendingIntent("i-a", 100),
		pendingIntent("i-b", 200),
	)

	w := worker.New(worker.Options{
		Store:    s,
		Executor: exec,
		Logger:   log.New(io.Discard, "", 0),
	})
	w.RunOnce(context.Background())

	assert.Equal(t, []string{"i-a", "i-b", "i-c"}, exec.processed)
}

func TestRunOnce_TiesBreakOnID(t *testing.T) {
	s, exec := newWorkerFixture(t,
		pendingIntent("i-2", 100),
		pendingIntent("i-1", 100),
	)

	w := worker.New(worker.Options{Store: s, Executor: exec, Logger: log.New(io.Discard, "", 0)})
	w.RunOnce(context.Background())

	assert.Equal(t, []string{"i-1", "i-2"}, exec.processed)
}

func TestRunOnce_PendingGaugeReflectsPostPassCount(t *testing.T) {
	s, exec := newWorkerFixture(t,
		pendingIntent("i-ok", 100),
		pendingIntent("i-stuck", 200),
		pendingIntent("i-ok-2", 300),
	)
	// A failed process leaves the intent pending for the next pass.
	exec.errFor["i-stuck"] = errors.New("venue down")

	metrics := observability.NewMetrics("workertest")
	w := worker.New(worker.Options{
		Store:    s,
		Executor: exec,
		Metrics:  metrics,
		Logger:   log.New(io.Discard, "", 0),
	})
	w.RunOnce(context.Background())

	assert.Equal(t, float64(1), promtestutil.ToFloat64(metrics.PendingIntents),
		"gauge must count intents still pending after the pass, not before it")
}

func TestRunOnce_SkipsTerminalIntents(t *testing.T) {
	done := pendingIntent("i-done", 100)
	done.Status = domain.IntentStatusExecuted
	s, exec := newWorkerFixture(t, done, pendingIntent("i-new", 200))

	w := worker.New(worker.Options{Store: s, Executor: exec, Logger: log.New(io.Discard, "", 0)})
	w.RunOnce(context.Background())

	assert.Equal(t, []string{"i-new"}, exec.processed)
}

func TestRunOnce_FailureDoesNotStopThePass(t *testing.T) {
	s, exec := newWorkerFixture(t,
		pendingIntent("i-a", 100),
		pendingIntent("i-b", 200),
		pendingIntent("i-c", 300),
	)
	exec.errFor["i-b"] = errors.New("transient")

	w := worker.New(worker.Options{Store: s, Executor: exec, Logger: log.New(io.Discard, "", 0)})
	w.RunOnce(context.Background())

	assert.Equal(t, []string{"i-a", "i-b", "i-c"}, exec.processed)
}

func TestRunOnce_FlushesArchiveAfterProcessing(t *testing.T) {
	s, exec := newWorkerFixture(t, pendingIntent("i-a", 100))
	arch := &fakeArchiver{}

	w := worker.New(worker.Options{
		Store:    s,
		Executor: exec,
		Archiver: arch,
		Logger:   log.New(io.Discard, "", 0),
	})
	w.RunOnce(context.Background())

	assert.Equal(t, 1, arch.flushes)
}

func TestRunOnce_ArchiveErrorIsNonFatal(t *testing.T) {
	s, exec := newWorkerFixture(t, pendingIntent("i-a", 100))
	arch := &fakeArchiver{err: errors.New("clickhouse down")}

	w := worker.New(worker.Options{Store: s, Executor: exec, Archiver: arch, Logger: log.New(io.Discard, "", 0)})
	w.RunOnce(context.Background())

	assert.Equal(t, []string{"i-a"}, exec.processed, "archive failure must not block execution")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s, exec := newWorkerFixture(t)
	w := worker.New(worker.Options{
		Store:    s,
		Executor: exec,
		Logger:   log.New(io.Discard, "", 0),
		Interval: time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
