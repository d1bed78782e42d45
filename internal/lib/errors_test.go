package lib_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/genograb/internal/lib"
)

func TestGenoError_Error(t *testing.T) {
	err := &lib.GenoError{
		Category:    lib.CategoryNetwork,
		Message:     "Connection failed",
		Cause:       errors.New("dial tcp: connection refused"),
		IsRetryable: true,
	}

	result := err.Error()
	assert.Contains(t, result, "[NETWORK]")
	assert.Contains(t, result, "Connection failed")
	assert.Contains(t, result, "connection refused")
}

func TestGenoError_ErrorWithHTTPStatus(t *testing.T) {
	err := lib.ErrPageUnavailable("https://opensnp.org/phenotypes/24", 503)

	result := err.Error()
	assert.Contains(t, result, "[SERVICE]")
	assert.Contains(t, result, "(HTTP 503)")
	assert.True(t, err.IsRetryable, "5xx should be retryable")

	assert.False(t, lib.ErrPageUnavailable("u", 404).IsRetryable)
}

func TestGenoError_UserMessage(t *testing.T) {
	err := &lib.GenoError{
		Category: lib.CategoryFileSystem,
		Message:  "Cannot access file",
		Cause:    errors.New("permission denied"),
		Guidance: []string{
			"Check file permissions",
			"Run with appropriate access rights",
		},
	}

	msg := err.UserMessage()
	assert.Contains(t, msg, "Error: Cannot access file")
	assert.Contains(t, msg, "How to fix:")
	assert.Contains(t, msg, "1. Check file permissions")
	assert.Contains(t, msg, "2. Run with appropriate access rights")
	assert.Contains(t, msg, "Technical details: permission denied")
	assert.NotContains(t, msg, "transient")
}

func TestCheckpointErrors_MatchNotExist(t *testing.T) {
	err := fmt.Errorf("resume failed: %w", lib.ErrCheckpointNotFound("/tmp/imputation_jobs.json"))

	assert.ErrorIs(t, err, fs.ErrNotExist)

	var genoErr *lib.GenoError
	require.ErrorAs(t, err, &genoErr)
	assert.Equal(t, lib.CategoryState, genoErr.Category)

	assert.ErrorIs(t, lib.ErrFileNotFound("/missing"), fs.ErrNotExist)
	assert.NotErrorIs(t, lib.ErrCorruptedCheckpoint("/x", errors.New("bad json")), fs.ErrNotExist)
}

func TestErrPageElementMissing(t *testing.T) {
	err := lib.ErrPageElementMissing("http://hapimpute.example", "#jobid")
	assert.Contains(t, err.Error(), `"#jobid"`)
	assert.False(t, err.IsRetryable)
}

func TestErrCheckpointLocked_Guidance(t *testing.T) {
	err := lib.ErrCheckpointLocked("/data/imputation_jobs.json")
	assert.Contains(t, err.UserMessage(), "/data/imputation_jobs.json.lock")
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category lib.ErrorCategory
		retry    bool
	}{
		{"network", errors.New("dial tcp 1.2.3.4:80: connection refused"), lib.CategoryNetwork, true},
		{"disk full", errors.New("write /data/x: no space left on device"), lib.CategoryFileSystem, false},
		{"permission", errors.New("open /root/x: permission denied"), lib.CategoryFileSystem, false},
		{"other", errors.New("something odd"), lib.CategoryValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lib.ClassifyError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.retry, got.IsRetryable)
			assert.Equal(t, tt.err, got.Cause)
		})
	}

	assert.Nil(t, lib.ClassifyError(nil))
}

func TestClassifyError_KeepsExistingGenoError(t *testing.T) {
	orig := lib.ErrInvalidConfig("retry.max_attempts", "out of range")
	wrapped := fmt.Errorf("load: %w", orig)

	assert.Same(t, orig, lib.ClassifyError(wrapped))
}

func TestWrapError(t *testing.T) {
	err := lib.WrapError(lib.CategoryConfiguration, "failed to read config file", errors.New("yaml: line 3"), "Fix the YAML")

	assert.Equal(t, lib.CategoryConfiguration, err.Category)
	assert.Equal(t, []string{"Fix the YAML"}, err.Guidance)
	assert.False(t, err.IsRetryable)
}
