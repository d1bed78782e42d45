package lib

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// GenoError represents a user-friendly error with context and guidance
type GenoError struct {
	Category    ErrorCategory
	Message     string   // Short description of what went wrong
	Cause       error    // Underlying error
	Guidance    []string // What the user can do to fix it
	HTTPStatus  int      // HTTP status code if applicable
	IsRetryable bool     // Will resuming the run later plausibly succeed?
}

// ErrorCategory classifies errors for better UX
type ErrorCategory string

const (
	CategoryNetwork       ErrorCategory = "network"
	CategoryFileSystem    ErrorCategory = "filesystem"
	CategoryValidation    ErrorCategory = "validation"
	CategoryService       ErrorCategory = "service"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryState         ErrorCategory = "state"
)

// Error implements the error interface
func (e *GenoError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] ", strings.ToUpper(string(e.Category))))
	sb.WriteString(e.Message)

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if e.HTTPStatus > 0 {
		sb.WriteString(fmt.Sprintf(" (HTTP %d)", e.HTTPStatus))
	}

	return sb.String()
}

// UserMessage returns a formatted message suitable for displaying to end users
func (e *GenoError) UserMessage() string {
	var sb strings.Builder

	sb.WriteString("Error: ")
	sb.WriteString(e.Message)
	sb.WriteString("\n")

	if len(e.Guidance) > 0 {
		sb.WriteString("\nHow to fix:\n")
		for i, guide := range e.Guidance {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, guide))
		}
	}

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("\nTechnical details: %v\n", e.Cause))
	}

	if e.IsRetryable {
		sb.WriteString("\nThis error is transient; re-running the command later may succeed.\n")
	}

	return sb.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility
func (e *GenoError) Unwrap() error {
	return e.Cause
}

// Network Errors

// ErrNetworkUnreachable creates an error for network connectivity issues
func ErrNetworkUnreachable(url string, cause error) *GenoError {
	return &GenoError{
		Category: CategoryNetwork,
		Message:  fmt.Sprintf("Cannot reach service at %s", url),
		Cause:    cause,
		Guidance: []string{
			"Check your network connection",
			fmt.Sprintf("Verify the URL is correct: %s", url),
			"The remote site may be down; try again later",
		},
		IsRetryable: true,
	}
}

// Service Errors

// ErrPageUnavailable creates an error for a mandatory page that returned a non-200 status
func ErrPageUnavailable(url string, statusCode int) *GenoError {
	return &GenoError{
		Category:   CategoryService,
		Message:    fmt.Sprintf("Failed to fetch %s", url),
		HTTPStatus: statusCode,
		Guidance: []string{
			"Check that the requested phenotype or job id exists on the site",
			"The site may be temporarily unavailable; try again later",
		},
		IsRetryable: statusCode >= 500,
	}
}

// ErrPageElementMissing creates an error for a page that lacks an element the workflow depends on
func ErrPageElementMissing(page string, selector string) *GenoError {
	return &GenoError{
		Category: CategoryService,
		Message:  fmt.Sprintf("Expected element %q not found on %s", selector, page),
		Guidance: []string{
			"The remote service may have changed its page layout",
			"The previous request may have been rejected; check the service in a browser",
		},
		IsRetryable: false,
	}
}

// Filesystem Errors

// ErrFileNotFound creates an error for missing files or directories
func ErrFileNotFound(path string) *GenoError {
	return &GenoError{
		Category: CategoryFileSystem,
		Message:  fmt.Sprintf("File or directory not found: %s", path),
		Cause:    fs.ErrNotExist,
		Guidance: []string{
			"Check that the path is correct",
			"Ensure the file/directory exists",
		},
		IsRetryable: false,
	}
}

// ErrFilePermissionDenied creates an error for permission issues
func ErrFilePermissionDenied(path string, cause error) *GenoError {
	return &GenoError{
		Category: CategoryFileSystem,
		Message:  fmt.Sprintf("Permission denied accessing: %s", path),
		Cause:    cause,
		Guidance: []string{
			"Check file/directory permissions",
			"Ensure your user has read/write access",
		},
		IsRetryable: false,
	}
}

// Configuration Errors

// ErrInvalidConfig creates an error for configuration validation failures
func ErrInvalidConfig(field string, reason string) *GenoError {
	return &GenoError{
		Category: CategoryConfiguration,
		Message:  fmt.Sprintf("Invalid configuration: %s", reason),
		Guidance: []string{
			fmt.Sprintf("Check the '%s' field in your config file", field),
			fmt.Sprintf("Or override it with %s", "GENOGRAB_"+strings.ToUpper(strings.ReplaceAll(field, ".", "_"))),
		},
		IsRetryable: false,
	}
}

// State Errors

// ErrCheckpointNotFound creates an error for a missing checkpoint file
func ErrCheckpointNotFound(path string) *GenoError {
	return &GenoError{
		Category: CategoryState,
		Message:  fmt.Sprintf("Checkpoint file does not exist: %s", path),
		Cause:    fs.ErrNotExist,
		Guidance: []string{
			"Run the earlier stage first so the checkpoint is written",
			"Check that the input directory or phenotype id matches the previous run",
		},
		IsRetryable: false,
	}
}

// ErrCorruptedCheckpoint creates an error for a checkpoint that cannot be decoded
func ErrCorruptedCheckpoint(path string, cause error) *GenoError {
	return &GenoError{
		Category: CategoryState,
		Message:  fmt.Sprintf("Checkpoint file is corrupted: %s", path),
		Cause:    cause,
		Guidance: []string{
			"The file may have been edited by hand; check it for syntax errors",
			"Delete it and re-run the earlier stage to regenerate it",
		},
		IsRetryable: false,
	}
}

// ErrCheckpointLocked creates an error when another process holds the checkpoint lock
func ErrCheckpointLocked(path string) *GenoError {
	return &GenoError{
		Category: CategoryState,
		Message:  fmt.Sprintf("Checkpoint '%s' is in use by another process", path),
		Guidance: []string{
			"Wait for the other run to finish",
			fmt.Sprintf("If no other run is active, remove %s.lock", path),
		},
		IsRetryable: true,
	}
}

// Helper Functions

// WrapError wraps a standard error with GenoError context
func WrapError(category ErrorCategory, message string, cause error, guidance ...string) *GenoError {
	return &GenoError{
		Category:    category,
		Message:     message,
		Cause:       cause,
		Guidance:    guidance,
		IsRetryable: IsNetworkError(cause),
	}
}

// ClassifyError examines an error and returns appropriate user guidance
func ClassifyError(err error) *GenoError {
	if err == nil {
		return nil
	}

	var genoErr *GenoError
	if errors.As(err, &genoErr) {
		return genoErr
	}

	errMsg := strings.ToLower(err.Error())

	if IsNetworkError(err) {
		return &GenoError{
			Category:    CategoryNetwork,
			Message:     "Network connectivity issue",
			Cause:       err,
			Guidance:    []string{"Check network connection", "Re-run the command to resume"},
			IsRetryable: true,
		}
	}

	if strings.Contains(errMsg, "no space left") || strings.Contains(errMsg, "disk full") {
		return &GenoError{
			Category:    CategoryFileSystem,
			Message:     "Insufficient disk space",
			Cause:       err,
			Guidance:    []string{"Free up disk space", "Use -o to choose a location with more space"},
			IsRetryable: false,
		}
	}

	if strings.Contains(errMsg, "permission denied") || strings.Contains(errMsg, "access denied") {
		return &GenoError{
			Category:    CategoryFileSystem,
			Message:     "Permission denied",
			Cause:       err,
			Guidance:    []string{"Check file/directory permissions", "Ensure proper access rights"},
			IsRetryable: false,
		}
	}

	return &GenoError{
		Category:    CategoryValidation,
		Message:     "An error occurred",
		Cause:       err,
		Guidance:    []string{"Check the technical details below", "Re-run with --verbose for more information"},
		IsRetryable: false,
	}
}
