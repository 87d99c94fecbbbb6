// Package file persists the state document as a single JSON file, written
// atomically via a temp file and rename.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/store"
)

// Backend is a file-based store.Backend.
type Backend struct {
	path string
}

// New creates a file backend writing to path. Parent directories are
// created on the first save.
func New(path string) *Backend {
	return &Backend{path: path}
}

// Compile-time interface check.
var _ store.Backend = (*Backend)(nil)

// Load reads the persisted document. Returns (nil, nil) when the file does
// not exist; a file that exists but does not decode is a corrupt-state error.
func (b *Backend) Load(_ context.Context) (*domain.AppState, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state domain.AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", store.ErrCorruptState, b.path, err)
	}
	return &state, nil
}

// Save writes the whole document atomically: marshal, write to a temp file
// in the same directory, fsync, rename over the target.
func (b *Backend) Save(_ context.Context, state *domain.AppState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}
