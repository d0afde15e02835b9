package config

import (
	"os"
	"path/filepath"
)

// defaultSandboxBaseDir returns "<system temp dir>/moltbot-workers", the
// §6 default for SandboxBaseDir.
func defaultSandboxBaseDir() string {
	return filepath.Join(os.TempDir(), "moltbot-workers")
}
