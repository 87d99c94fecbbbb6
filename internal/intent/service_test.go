package intent_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-agent-arena/internal/apperr"
	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/intent"
	"solana-agent-arena/internal/store"
	"solana-agent-arena/internal/store/memory"
)

func newTestService(t *testing.T) (*intent.Service, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), store.Options{
		Backend: memory.New(),
		Logger:  log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	require.NoError(t, s.Update(context.Background(), func(state *domain.AppState) error {
		state.Agents["a1"] = &domain.Agent{ID: "a1", Name: "momentum-1", CashUsd: 10_000, Positions: map[string]*domain.Position{}}
		return nil
	}))

	svc := intent.NewService(intent.Options{
		Store:  s,
		Logger: log.New(io.Discard, "", 0),
		Now:    func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) },
	})
	return svc, s
}

func buyInput() intent.CreateInput {
	return intent.CreateInput{
		AgentID:     "a1",
		Symbol:      "sol",
		Side:        domain.SideBuy,
		NotionalUsd: 2_000,
	}
}

func TestCreate_RecordsPendingIntent(t *testing.T) {
	svc, s := newTestService(t)

	res, err := svc.Create(context.Background(), buyInput(), nil)
	require.NoError(t, err)
	require.NotNil(t, res.Intent)
	assert.False(t, res.Replayed)
	assert.Equal(t, domain.IntentStatusPending, res.Intent.Status)
	assert.Equal(t, "SOL", res.Intent.Symbol, "symbol must be upper-cased")
	assert.NotEmpty(t, res.Intent.RequestHash)

	snap := s.Snapshot()
	require.Contains(t, snap.Intents, res.Intent.ID)
	assert.Equal(t, int64(1), snap.Metrics.IntentsReceived)
}

func TestCreate_CommittedMetaDoesNotAliasCallerMap(t *testing.T) {
	svc, s := newTestService(t)

	input := buyInput()
	input.Meta = map[string]string{"strategy": "momentum"}

	res, err := svc.Create(context.Background(), input, nil)
	require.NoError(t, err)

	input.Meta["strategy"] = "tampered"
	input.Meta["extra"] = "x"

	got := s.Snapshot().Intents[res.Intent.ID]
	require.NotNil(t, got)
	assert.Equal(t, map[string]string{"strategy": "momentum"}, got.Meta,
		"mutating the caller's map after Create must not rewrite store state")
}

func TestCreate_ReplaysIdenticalSubmission(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	opts := &intent.CreateOptions{IdempotencyKey: "retry-1"}

	first, err := svc.Create(ctx, buyInput(), opts)
	require.NoError(t, err)
	second, err := svc.Create(ctx, buyInput(), opts)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Intent.ID, second.Intent.ID)

	snap := s.Snapshot()
	assert.Len(t, snap.Intents, 1)
	assert.Equal(t, int64(1), snap.Metrics.IntentsReceived, "replay must not count as received")
	assert.Equal(t, int64(1), snap.Metrics.IdempotencyReplays)
}

func TestCreate_ReplayIgnoresSymbolCase(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	opts := &intent.CreateOptions{IdempotencyKey: "retry-case"}

	lower := buyInput()
	lower.Symbol = "sol"
	upper := buyInput()
	upper.Symbol = "SOL"

	_, err := svc.Create(ctx, lower, opts)
	require.NoError(t, err)
	res, err := svc.Create(ctx, upper, opts)
	require.NoError(t, err)
	assert.True(t, res.Replayed, "case-only differences are the same request")
}

func TestCreate_ConflictOnReusedKeyWithDifferentPayload(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	opts := &intent.CreateOptions{IdempotencyKey: "retry-2"}

	first, err := svc.Create(ctx, buyInput(), opts)
	require.NoError(t, err)

	changed := buyInput()
	changed.NotionalUsd = 2_500
	_, err = svc.Create(ctx, changed, opts)
	require.Error(t, err)
	assert.Equal(t, apperr.KindIdempotencyKeyConflict, apperr.KindOf(err))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, first.Intent.ID, appErr.Details["intent_id"], "conflict must name the original intent")
}

func TestCreate_KeysAreScopedPerAgent(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(state *domain.AppState) error {
		state.Agents["a2"] = &domain.Agent{ID: "a2", Positions: map[string]*domain.Position{}}
		return nil
	}))

	opts := &intent.CreateOptions{IdempotencyKey: "shared-key"}
	first, err := svc.Create(ctx, buyInput(), opts)
	require.NoError(t, err)

	other := buyInput()
	other.AgentID = "a2"
	second, err := svc.Create(ctx, other, opts)
	require.NoError(t, err)
	assert.False(t, second.Replayed)
	assert.NotEqual(t, first.Intent.ID, second.Intent.ID)
}

func TestCreate_NoKeyAlwaysCreatesFresh(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, buyInput(), nil)
	require.NoError(t, err)
	second, err := svc.Create(ctx, buyInput(), nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.Intent.ID, second.Intent.ID)
	assert.Len(t, s.Snapshot().Intents, 2)
}

func TestCreate_ConcurrentRetriesCreateExactlyOne(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	opts := &intent.CreateOptions{IdempotencyKey: "burst"}

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Create(ctx, buyInput(), opts)
			if err == nil {
				ids <- res.Intent.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1, "all retries must converge on one intent")
	assert.Len(t, s.Snapshot().Intents, 1)
}

func TestCreate_UnknownAgent(t *testing.T) {
	svc, _ := newTestService(t)
	input := buyInput()
	input.AgentID = "ghost"
	_, err := svc.Create(context.Background(), input, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAgentNotFound, apperr.KindOf(err))
}

func TestCreate_DanglingIdempotencyRecordIsInternal(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(state *domain.AppState) error {
		state.Idempotency[domain.IdempotencyLookupKey("a1", "stale")] = &domain.IdempotencyRecord{
			AgentID:  "a1",
			Key:      "stale",
			IntentID: "gone",
		}
		return nil
	}))

	_, err := svc.Create(ctx, buyInput(), &intent.CreateOptions{IdempotencyKey: "stale"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternalError, apperr.KindOf(err))
}

func TestCreate_ValidationErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input intent.CreateInput
	}{
		{"missing agent id", intent.CreateInput{Symbol: "SOL", Side: domain.SideBuy, Quantity: 1}},
		{"missing symbol", intent.CreateInput{AgentID: "a1", Side: domain.SideBuy, Quantity: 1}},
		{"bad side", intent.CreateInput{AgentID: "a1", Symbol: "SOL", Side: "hold", Quantity: 1}},
		{"no size", intent.CreateInput{AgentID: "a1", Symbol: "SOL", Side: domain.SideBuy}},
		{"negative quantity", intent.CreateInput{AgentID: "a1", Symbol: "SOL", Side: domain.SideBuy, Quantity: -1}},
		{"negative notional", intent.CreateInput{AgentID: "a1", Symbol: "SOL", Side: domain.SideBuy, NotionalUsd: -5}},
		{"bad mode", intent.CreateInput{AgentID: "a1", Symbol: "SOL", Side: domain.SideBuy, Quantity: 1, RequestedMode: "dry-run"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input, nil)
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidPayload, apperr.KindOf(err))
		})
	}
}
