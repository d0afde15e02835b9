// Package config loads the supervisor's tunables from defaults, an
// optional YAML file, and environment variables (MOLTPOOL_* prefixed),
// in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the supervisor, router, and worker runtime
// need. Field names intentionally mirror the documented default
// configuration table.
type Config struct {
	WorkerCount    int           `mapstructure:"worker_count"`
	SandboxBaseDir string        `mapstructure:"sandbox_base_dir"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MaxMemoryBytes int64         `mapstructure:"max_memory_bytes"`
	MaxRequests    int64         `mapstructure:"max_requests"`
	RestartDelay   time.Duration `mapstructure:"restart_delay"`
	MaxRestartAttempts int       `mapstructure:"max_restart_attempts"`
	RestartWindow  time.Duration `mapstructure:"restart_window"`
	VirtualNodes   int           `mapstructure:"virtual_nodes"`
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// Default returns the documented defaults without touching the
// filesystem or environment. Library callers and tests that don't need
// layered config loading should use this directly.
func Default() Config {
	return Config{
		WorkerCount:         4,
		SandboxBaseDir:      defaultSandboxBaseDir(),
		MaxConcurrent:       10,
		RequestTimeout:      120 * time.Second,
		HeartbeatInterval:   5 * time.Second,
		MaxMemoryBytes:      512 * 1024 * 1024,
		MaxRequests:         10_000,
		RestartDelay:        1 * time.Second,
		MaxRestartAttempts:  5,
		RestartWindow:       60 * time.Second,
		VirtualNodes:        150,
		StartupTimeout:      30 * time.Second,
		ShutdownGracePeriod: 10 * time.Second,
	}
}

// Load builds a Config from compiled-in defaults, an optional file at
// configPath (ignored if empty or not found), and MOLTPOOL_*
// environment variables, with environment taking highest precedence.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("moltpool")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("worker_count", def.WorkerCount)
	v.SetDefault("sandbox_base_dir", def.SandboxBaseDir)
	v.SetDefault("max_concurrent", def.MaxConcurrent)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("heartbeat_interval", def.HeartbeatInterval)
	v.SetDefault("max_memory_bytes", def.MaxMemoryBytes)
	v.SetDefault("max_requests", def.MaxRequests)
	v.SetDefault("restart_delay", def.RestartDelay)
	v.SetDefault("max_restart_attempts", def.MaxRestartAttempts)
	v.SetDefault("restart_window", def.RestartWindow)
	v.SetDefault("virtual_nodes", def.VirtualNodes)
	v.SetDefault("startup_timeout", def.StartupTimeout)
	v.SetDefault("shutdown_grace_period", def.ShutdownGracePeriod)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
