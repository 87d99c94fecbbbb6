// Package memory is an in-memory store.Backend for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/store"
)

// Backend keeps the last saved document in memory. The zero value is ready
// to use. FailSave, when set, makes every Save return that error, which
// tests use to exercise the persist-failure path.
type Backend struct {
	mu       sync.Mutex
	saved    *domain.AppState
	saves    int
	FailSave error
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{}
}

// Compile-time interface check.
var _ store.Backend = (*Backend)(nil)

// Load returns a copy of the last saved document, or (nil, nil) if none.
func (b *Backend) Load(_ context.Context) (*domain.AppState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saved == nil {
		return nil, nil
	}
	return b.saved.Clone(), nil
}

// Save stores a copy of the document.
func (b *Backend) Save(_ context.Context, state *domain.AppState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailSave != nil {
		return b.FailSave
	}
	b.saved = state.Clone()
	b.saves++
	return nil
}

// Saves returns the number of successful saves.
func (b *Backend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

// Seed replaces the saved document, for pre-populated test fixtures.
func (b *Backend) Seed(state *domain.AppState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = state.Clone()
}
