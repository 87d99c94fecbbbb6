// Package store is the sole holder of mutable financial truth. Every read
// goes through an independent deep-copy snapshot and every write goes
// through a fully serialized transaction that persists the whole document
// on commit.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/money"
	"solana-agent-arena/internal/observability"
)

// Store errors.
var (
	// ErrCorruptState is returned when the persisted document cannot be decoded.
	ErrCorruptState = errors.New("corrupt persisted state")
)

// Backend persists the whole state document. Load returns (nil, nil) when no
// document has been persisted yet.
type Backend interface {
	Load(ctx context.Context) (*domain.AppState, error)
	Save(ctx context.Context, state *domain.AppState) error
}

// Store serializes all access to the application state.
type Store struct {
	// updates serializes transactions; a channel-held token instead of a
	// mutex so the backend write stays inside the serialization point.
	updates chan struct{}

	state   *domain.AppState
	backend Backend
	metrics *observability.Metrics
	logger  *log.Logger
	now     func() time.Time
}

// Options configures a Store.
type Options struct {
	// Backend is required.
	Backend Backend
	// Metrics is optional; nil disables Prometheus reporting.
	Metrics *observability.Metrics
	// Logger defaults to the standard logger.
	Logger *log.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Open loads the last persisted document, or starts from an empty one when
// the backend has never been written. A document that exists but cannot be
// decoded fails loudly; it is never silently replaced.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Backend == nil {
		return nil, errors.New("store: backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	state, err := opts.Backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted state: %w", err)
	}
	if state == nil {
		state = domain.NewAppState()
		logger.Printf("no persisted state found, starting empty")
	} else {
		state.Normalize()
		logger.Printf("rehydrated state: %d agents, %d intents, %d executions",
			len(state.Agents), len(state.Intents), len(state.Executions))
	}

	s := &Store{
		updates: make(chan struct{}, 1),
		state:   state,
		backend: opts.Backend,
		metrics: opts.Metrics,
		logger:  logger,
		now:     now,
	}
	s.updates <- struct{}{}
	return s, nil
}

// Snapshot returns an independent deep copy of the current state. Mutating
// the copy never affects live state, and the copy never observes a partial
// write.
func (s *Store) Snapshot() *domain.AppState {
	<-s.updates
	snap := s.state.Clone()
	s.updates <- struct{}{}
	return snap
}

// Update runs fn with exclusive mutable access to the state and persists the
// whole document on success. fn runs against a working copy: if it returns
// an error the mutation is discarded and the error propagated. Transactions
// are fully serialized and must not be nested.
//
// The commit order is: apply in memory, then persist. A backend failure
// after the in-memory commit still surfaces to the caller; the in-memory
// effect is kept so a later commit re-persists it.
func (s *Store) Update(ctx context.Context, fn func(state *domain.AppState) error) error {
	select {
	case <-s.updates:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { s.updates <- struct{}{} }()

	work := s.state.Clone()
	if err := fn(work); err != nil {
		return err
	}
	work.SavedAt = s.now().UnixMilli()
	s.state = work

	if err := s.backend.Save(ctx, work); err != nil {
		if s.metrics != nil {
			s.metrics.PersistErrors.Inc()
		}
		s.logger.Printf("persist failed after in-memory commit: %v", err)
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// SetMarketPrice persists priceUsd as the current mark for symbol.
func (s *Store) SetMarketPrice(ctx context.Context, symbol string, priceUsd float64) error {
	if symbol == "" || priceUsd <= 0 {
		return fmt.Errorf("invalid market price %q=%v", symbol, priceUsd)
	}
	return s.Update(ctx, func(state *domain.AppState) error {
		state.MarketPricesUsd[symbol] = money.Round(priceUsd)
		return nil
	})
}
