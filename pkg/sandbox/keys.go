package sandbox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const instanceKeySize = 32 // bytes

// ensureInstanceKey reads the existing 32-byte instance key from
// keys/instance.key, generating and persisting one on first use. The key
// is the worker's persistent cryptographic identity: it survives
// sandbox re-initialization as long as the sandbox root is not removed.
func (s *Sandbox) ensureInstanceKey() ([]byte, error) {
	path := filepath.Join(s.root, "keys", "instance.key")

	if data, err := os.ReadFile(path); err == nil {
		key, decodeErr := hex.DecodeString(string(data))
		if decodeErr == nil && len(key) == instanceKeySize {
			return key, nil
		}
		// Fall through and regenerate if the on-disk key is corrupt.
	}

	key := make([]byte, instanceKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate instance key: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write instance key: %w", err)
	}
	return key, nil
}

// ensureInstanceID reads the existing instance id from keys/instance.id,
// generating one of the form "<workerId>-<unixMs>-<8 hex chars>" on
// first use.
func (s *Sandbox) ensureInstanceID() (string, error) {
	path := filepath.Join(s.root, "keys", "instance.id")

	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return string(data), nil
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to generate instance id suffix: %w", err)
	}
	id := fmt.Sprintf("%s-%d-%s", s.workerID, time.Now().UnixMilli(), hex.EncodeToString(suffix))

	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		return "", fmt.Errorf("failed to write instance id: %w", err)
	}
	return id, nil
}

// InstanceID returns the sandbox's persistent instance id, reading it
// from disk. It must be called after Init.
func (s *Sandbox) InstanceID() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, "keys", "instance.id"))
	if err != nil {
		return "", fmt.Errorf("sandbox: instance id not found, call Init first: %w", err)
	}
	return string(data), nil
}

// fingerprint renders the first 8 bytes of the instance key as hex, the
// value stored as Metadata.KeyFingerprint and handed to the worker
// config.
func fingerprint(key []byte) string {
	n := 8
	if len(key) < n {
		n = len(key)
	}
	return hex.EncodeToString(key[:n])
}
