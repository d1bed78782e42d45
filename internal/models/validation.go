package models

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate checks if a Job has valid fields
func (j *Job) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return errors.New("job id is required")
	}
	if j.SourceFilename == "" {
		return fmt.Errorf("job %s: source_filename is required", j.ID)
	}
	if !IsSafeFileName(j.SourceFilename) {
		return fmt.Errorf("job %s: unsafe source_filename %q", j.ID, j.SourceFilename)
	}
	return nil
}

// ValidateJobBatch checks every job and enforces id uniqueness within the batch
func ValidateJobBatch(jobs []Job) error {
	seen := make(map[string]struct{}, len(jobs))
	for i := range jobs {
		if err := jobs[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[jobs[i].ID]; dup {
			return fmt.Errorf("duplicate job id in batch: %s", jobs[i].ID)
		}
		seen[jobs[i].ID] = struct{}{}
	}
	return nil
}

// Validate checks that the manifest only holds usable URLs
func (m ScrapeManifest) Validate() error {
	for variant, urls := range m {
		for _, u := range urls {
			if u == "" {
				return fmt.Errorf("variant %q: empty file url", variant)
			}
			if _, err := url.Parse(u); err != nil {
				return fmt.Errorf("variant %q: invalid file url: %w", variant, err)
			}
			if !IsSafeFileName(FileNameFromURL(u)) {
				return fmt.Errorf("variant %q: url %q has no usable file name", variant, u)
			}
		}
	}
	return nil
}

// IsSafeFileName reports whether name can be used as a single path element
// without escaping its parent directory
func IsSafeFileName(name string) bool {
	if name == "" || name == "." || name == ".." || name == "/" {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name
}

// ConfigError names the configuration key that failed validation
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

func invalidField(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks if a ProjectConfig has valid fields.
// Failures are returned as *ConfigError.
func (c *ProjectConfig) Validate() error {
	if err := validateBaseURL("imputation.base_url", c.Imputation.BaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("opensnp.base_url", c.OpenSNP.BaseURL); err != nil {
		return err
	}

	if c.Imputation.SettleDelayMs < 0 {
		return invalidField("imputation.settle_delay_ms", "imputation.settle_delay_ms cannot be negative")
	}
	if c.Imputation.PollIntervalSeconds < MinPollIntervalSeconds {
		return invalidField("imputation.poll_interval_seconds",
			"imputation.poll_interval_seconds must be at least %d", MinPollIntervalSeconds)
	}
	if c.OpenSNP.Workers < 0 {
		return invalidField("opensnp.workers", "opensnp.workers cannot be negative")
	}
	if c.HTTP.TimeoutSeconds < 0 {
		return invalidField("http.timeout_seconds", "http.timeout_seconds cannot be negative")
	}

	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		return invalidField("retry.max_attempts", "retry.max_attempts must be between 1 and 10")
	}
	if c.Retry.InitialBackoffMs <= 0 {
		return invalidField("retry.initial_backoff_ms", "retry.initial_backoff_ms must be positive")
	}
	if c.Retry.MaxBackoffMs < c.Retry.InitialBackoffMs {
		return invalidField("retry.max_backoff_ms", "retry.max_backoff_ms must be >= initial_backoff_ms")
	}

	return nil
}

func validateBaseURL(field, raw string) error {
	if raw == "" {
		return invalidField(field, "%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return invalidField(field, "invalid %s: %v", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalidField(field, "%s must use http or https, got %q", field, raw)
	}
	if u.Host == "" {
		return invalidField(field, "%s must include a host, got %q", field, raw)
	}
	return nil
}
