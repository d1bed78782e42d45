package models

import "runtime"

// ProjectConfig is the top-level configuration for genograb
type ProjectConfig struct {
	Imputation ImputationConfig `yaml:"imputation" json:"imputation"`
	OpenSNP    OpenSNPConfig    `yaml:"opensnp" json:"opensnp"`
	HTTP       HTTPConfig       `yaml:"http" json:"http"`
	Retry      RetryConfig      `yaml:"retry" json:"retry"`
}

// ImputationConfig contains Haplotype Imputer service settings
type ImputationConfig struct {
	BaseURL             string `yaml:"base_url" json:"base_url"`
	SettleDelayMs       int64  `yaml:"settle_delay_ms" json:"settle_delay_ms"`             // Pause between page steps to tolerate load latency
	PollIntervalSeconds int    `yaml:"poll_interval_seconds" json:"poll_interval_seconds"` // Sleep between polling passes
}

// OpenSNPConfig contains openSNP scrape source settings
type OpenSNPConfig struct {
	BaseURL  string `yaml:"base_url" json:"base_url"`
	Workers  int    `yaml:"workers" json:"workers"`     // 0 means one worker per logical core
	StateDir string `yaml:"state_dir" json:"state_dir"` // Where scrape checkpoints are written
}

// HTTPConfig contains settings shared by all outbound HTTP traffic
type HTTPConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"` // 0 disables the client timeout
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
}

// RetryConfig defines retry behavior for transient HTTP errors.
// MaxAttempts of 1 disables retrying.
type RetryConfig struct {
	MaxAttempts      int   `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoffMs int64 `yaml:"initial_backoff_ms" json:"initial_backoff_ms"`
	MaxBackoffMs     int64 `yaml:"max_backoff_ms" json:"max_backoff_ms"`
}

const (
	DefaultImputationURL       = "http://hapimpute.opencravat.org/"
	DefaultOpenSNPURL          = "https://opensnp.org"
	DefaultSettleDelayMs       = 250
	DefaultPollIntervalSeconds = 300
	MinPollIntervalSeconds     = 10 // Floor between status passes against the imputer
	DefaultUserAgent           = "genograb/0.1"
)

// DefaultConfig returns a ProjectConfig with sensible defaults
func DefaultConfig() ProjectConfig {
	return ProjectConfig{
		Imputation: ImputationConfig{
			BaseURL:             DefaultImputationURL,
			SettleDelayMs:       DefaultSettleDelayMs,
			PollIntervalSeconds: DefaultPollIntervalSeconds,
		},
		OpenSNP: OpenSNPConfig{
			BaseURL:  DefaultOpenSNPURL,
			Workers:  0,
			StateDir: ".",
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 0,
			UserAgent:      DefaultUserAgent,
		},
		Retry: RetryConfig{
			MaxAttempts:      1,
			InitialBackoffMs: 1000,
			MaxBackoffMs:     30000,
		},
	}
}

// ResolveWorkers returns the configured worker count, falling back to fallback
// (normally the logical core count) when unset
func (c *OpenSNPConfig) ResolveWorkers(fallback int) int {
	if c.Workers > 0 {
		return c.Workers
	}
	if fallback > 0 {
		return fallback
	}
	return runtime.NumCPU()
}
