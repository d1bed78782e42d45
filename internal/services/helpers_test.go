package services

import (
	"io"

	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
)

func testLogger() *lib.Logger {
	return lib.NewLoggerWithWriter(lib.LogLevelDebug, io.Discard)
}

func testHTTPConfig() models.HTTPConfig {
	return models.HTTPConfig{TimeoutSeconds: 5, UserAgent: "genograb-test"}
}

func noRetry() models.RetryConfig {
	return models.RetryConfig{MaxAttempts: 1, InitialBackoffMs: 1, MaxBackoffMs: 1}
}
