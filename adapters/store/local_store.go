package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"researchdesk/ports"
)

// LocalStore persists artifacts under a base directory, one
// subdirectory per session.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a disk-backed artifact store.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Persist writes the artifact to <base>/<sessionID>/<filename>.
func (s *LocalStore) Persist(_ context.Context, sessionID string, data []byte, filename string) (ports.PersistResult, error) {
	dir := filepath.Join(s.baseDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ports.PersistResult{}, fmt.Errorf("creating session directory: %w", err)
	}
	full := filepath.Join(dir, filename)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return ports.PersistResult{}, fmt.Errorf("writing artifact: %w", err)
	}
	return ports.PersistResult{Status: ports.PersistUploaded, Path: full}, nil
}

// DisabledStore is the storage-off deployment mode: persistence is
// skipped, which is a valid outcome rather than a failure.
type DisabledStore struct{}

// NewDisabledStore creates a store that persists nothing.
func NewDisabledStore() *DisabledStore { return &DisabledStore{} }

// Persist reports skipped without touching any storage.
func (s *DisabledStore) Persist(context.Context, string, []byte, string) (ports.PersistResult, error) {
	return ports.PersistResult{Status: ports.PersistSkipped}, nil
}
