// Package config loads skillforge configuration via viper: config file,
// SKILLFORGE_ environment variables, and flag overrides, in that order
// of increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full skillforge configuration.
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// PathsConfig locates the persisted state files and directories.
type PathsConfig struct {
	Queue    string `mapstructure:"queue"`
	Registry string `mapstructure:"registry"`
	Staging  string `mapstructure:"staging"`
	Prod     string `mapstructure:"prod"`
	EvalDir  string `mapstructure:"eval_dir"`
	AuditLog string `mapstructure:"audit_log"`
}

// SandboxConfig tunes the isolation substrate.
type SandboxConfig struct {
	Image       string        `mapstructure:"image"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MemoryLimit string        `mapstructure:"memory_limit"`
	CPULimit    string        `mapstructure:"cpu_limit"`
	PidsLimit   int           `mapstructure:"pids_limit"`
	TmpfsSize   string        `mapstructure:"tmpfs_size"`
}

// PipelineConfig tunes candidate processing.
type PipelineConfig struct {
	Provider      string `mapstructure:"provider"`
	MaxConcurrent int    `mapstructure:"max_concurrent"`
	SkipSandbox   bool   `mapstructure:"skip_sandbox"`
}

// SetDefaults installs default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paths.queue", "data/queue.json")
	v.SetDefault("paths.registry", "data/registry.json")
	v.SetDefault("paths.staging", "skills_staging")
	v.SetDefault("paths.prod", "skills_prod")
	v.SetDefault("paths.eval_dir", "eval")
	v.SetDefault("paths.audit_log", "data/audit.log")

	v.SetDefault("sandbox.image", "skillforge-sandbox:latest")
	v.SetDefault("sandbox.timeout", 30*time.Second)
	v.SetDefault("sandbox.memory_limit", "512m")
	v.SetDefault("sandbox.cpu_limit", "1")
	v.SetDefault("sandbox.pids_limit", 128)
	v.SetDefault("sandbox.tmpfs_size", "64m")

	v.SetDefault("pipeline.provider", "mock")
	v.SetDefault("pipeline.max_concurrent", 2)
	v.SetDefault("pipeline.skip_sandbox", false)
}

// Load reads configuration from the given viper instance into a Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.Pipeline.MaxConcurrent < 1 {
		return fmt.Errorf("pipeline.max_concurrent must be >= 1, got %d", c.Pipeline.MaxConcurrent)
	}
	if c.Sandbox.Timeout <= 0 {
		return fmt.Errorf("sandbox.timeout must be positive, got %s", c.Sandbox.Timeout)
	}
	if c.Sandbox.Image == "" {
		return fmt.Errorf("sandbox.image must not be empty")
	}
	if strings.TrimSpace(c.Paths.Registry) == "" {
		return fmt.Errorf("paths.registry must not be empty")
	}
	return nil
}
