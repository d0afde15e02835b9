package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manager owns the shared base directory under which every worker's
// Sandbox is rooted, and sweeps stale sandboxes left behind by workers
// that were removed from the pool without a clean Destroy.
type Manager struct {
	baseDir string
}

// NewManager returns a Manager rooted at baseDir, creating it if
// necessary.
func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("sandbox: failed to create base dir %s: %w", baseDir, err)
	}
	return &Manager{baseDir: baseDir}, nil
}

// BaseDir returns the manager's base directory.
func (m *Manager) BaseDir() string { return m.baseDir }

// For returns the Sandbox for the given worker id, uninitialized.
func (m *Manager) For(workerID string) *Sandbox {
	return New(m.baseDir, workerID)
}

// Cleanup destroys every sandbox under the base directory whose
// lastAccessed is older than maxAge, skipping the ids in keep. It
// returns the worker ids it destroyed.
func (m *Manager) Cleanup(maxAge time.Duration, keep map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to list base dir %s: %w", m.baseDir, err)
	}

	var removed []string
	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() || keep[entry.Name()] {
			continue
		}

		sb := New(m.baseDir, entry.Name())
		meta, ok := sb.Metadata()
		if !ok {
			// No readable metadata: treat as orphaned and sweep it too.
			if err := sb.Destroy(); err == nil {
				removed = append(removed, entry.Name())
			}
			continue
		}
		if meta.LastAccessed.After(cutoff) {
			continue
		}
		if err := sb.Destroy(); err != nil {
			return removed, fmt.Errorf("sandbox: failed to destroy stale sandbox %s: %w", entry.Name(), err)
		}
		removed = append(removed, entry.Name())
	}

	return removed, nil
}

// Root returns the path a worker's sandbox would be rooted at, without
// touching the filesystem.
func (m *Manager) Root(workerID string) string {
	return filepath.Join(m.baseDir, workerID)
}
