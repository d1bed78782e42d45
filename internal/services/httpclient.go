package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
)

// HTTPClient wraps the standard http.Client with optional retry and a fixed user agent.
// It is used for artifact downloads; page sessions use resty (see pagesession.go).
type HTTPClient struct {
	client      *http.Client
	retryConfig lib.RetryConfig
	userAgent   string
	logger      *lib.Logger
}

// NewHTTPClient creates an HTTP client from the HTTP and retry configuration.
// A zero timeout leaves requests unbounded.
func NewHTTPClient(httpConfig models.HTTPConfig, retryConfig models.RetryConfig, logger *lib.Logger) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: time.Duration(httpConfig.TimeoutSeconds) * time.Second,
		},
		retryConfig: lib.NewRetryConfigFromModel(retryConfig),
		userAgent:   httpConfig.UserAgent,
		logger:      logger,
	}
}

// Get performs an HTTP GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.Do(req)
}

// Do executes a body-less HTTP request, retrying transient failures when configured to
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var lastErr error
	for attempt := 0; attempt < c.retryConfig.MaxAttempts; attempt++ {
		lib.LogServiceCall(c.logger, req.URL.Host, req.URL.Path, req.Method)

		startTime := time.Now()
		resp, err := c.client.Do(req)
		duration := time.Since(startTime)

		if err == nil {
			lib.LogServiceResponse(c.logger, req.URL.Host, resp.StatusCode, duration)

			if resp.StatusCode < 400 {
				return resp, nil
			}

			errorType := lib.ClassifyHTTPError(resp.StatusCode)
			if !lib.ShouldRetry(errorType, attempt, c.retryConfig.MaxAttempts) {
				// Return response so caller can read error details
				return resp, nil
			}

			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			_ = resp.Body.Close()
		} else {
			lastErr = err
			if !lib.IsNetworkError(err) || !lib.ShouldRetry(models.ErrorTypeTransient, attempt, c.retryConfig.MaxAttempts) {
				return nil, err
			}
		}

		lib.LogRetry(c.logger, req.URL.String(), attempt, c.retryConfig.MaxAttempts, lastErr)
		backoff := lib.CalculateBackoff(attempt, c.retryConfig.InitialBackoffMs, c.retryConfig.MaxBackoffMs)
		if err := lib.Sleep(req.Context(), backoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.retryConfig.MaxAttempts, lastErr)
}

// Download downloads a URL and writes the body to writer
// Returns the number of bytes downloaded
func (c *HTTPClient) Download(ctx context.Context, url string, writer io.Writer) (int64, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	bytesWritten, err := io.Copy(writer, resp.Body)
	if err != nil {
		return bytesWritten, fmt.Errorf("failed to download: %w", err)
	}

	return bytesWritten, nil
}
