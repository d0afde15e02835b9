package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadState parses state/<safeName>.json into out, returning false with
// a nil error if the file is missing or cannot be parsed; no exception
// is surfaced for a missing or unreadable state file.
func (s *Sandbox) ReadState(name string, out any) (bool, error) {
	data, err := os.ReadFile(s.StatePath(name))
	if err != nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, nil
	}
	return true, nil
}

// WriteState serializes value as pretty JSON to state/<safeName>.json.
func (s *Sandbox) WriteState(name string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("sandbox: failed to marshal state %q: %w", name, err)
	}
	if err := os.WriteFile(s.StatePath(name), data, 0600); err != nil {
		return fmt.Errorf("sandbox: failed to write state %q: %w", name, err)
	}
	return nil
}

// ClearTemp deletes and recreates the temp/ subdirectory.
func (s *Sandbox) ClearTemp() error {
	return s.resetSubdir("temp")
}

// ClearCache deletes and recreates the cache/ subdirectory.
func (s *Sandbox) ClearCache() error {
	return s.resetSubdir("cache")
}

func (s *Sandbox) resetSubdir(name string) error {
	path := filepath.Join(s.root, name)
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("sandbox: failed to clear %s: %w", name, err)
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("sandbox: failed to recreate %s: %w", name, err)
	}
	return nil
}
