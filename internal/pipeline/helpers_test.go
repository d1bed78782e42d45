package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
	"github.com/trobanga/genograb/internal/services"
)

func testLogger() *lib.Logger {
	return lib.NewLoggerWithWriter(lib.LogLevelDebug, io.Discard)
}

func testClient() *services.HTTPClient {
	return services.NewHTTPClient(
		models.HTTPConfig{TimeoutSeconds: 5, UserAgent: "genograb-test"},
		models.RetryConfig{MaxAttempts: 1},
		testLogger())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// stubImputer scripts the imputation service: each Check pops the next report
// queued for the job, and the last one repeats
type stubImputer struct {
	mu        sync.Mutex
	next      int
	fixedIDs  []string
	failAfter int // Submit fails once this many jobs went through; 0 disables
	submitted []string
	reports   map[string][]models.JobStatusReport
	checks    map[string]int
	checkErr  error
}

func newStubImputer() *stubImputer {
	return &stubImputer{
		reports: map[string][]models.JobStatusReport{},
		checks:  map[string]int{},
	}
}

func (s *stubImputer) Submit(_ context.Context, filePath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAfter > 0 && len(s.submitted) >= s.failAfter {
		return "", fmt.Errorf("upload rejected")
	}
	s.submitted = append(s.submitted, filepath.Base(filePath))

	if len(s.fixedIDs) > 0 {
		id := s.fixedIDs[0]
		s.fixedIDs = s.fixedIDs[1:]
		return id, nil
	}
	s.next++
	return fmt.Sprintf("job-%d", s.next), nil
}

func (s *stubImputer) Check(_ context.Context, jobID string) (models.JobStatusReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checks[jobID]++
	if s.checkErr != nil {
		return models.JobStatusReport{}, s.checkErr
	}
	queue := s.reports[jobID]
	if len(queue) == 0 {
		return models.JobStatusReport{State: models.JobStatePending, StatusText: "RUNNING"}, nil
	}
	report := queue[0]
	if len(queue) > 1 {
		s.reports[jobID] = queue[1:]
	}
	return report, nil
}

func (s *stubImputer) script(jobID string, reports ...models.JobStatusReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[jobID] = reports
}

func (s *stubImputer) checkCount(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks[jobID]
}

func pending() models.JobStatusReport {
	return models.JobStatusReport{State: models.JobStatePending, StatusText: "RUNNING"}
}

func complete(url string) models.JobStatusReport {
	return models.JobStatusReport{State: models.JobStateComplete, DownloadURL: url, StatusText: "DONE"}
}

func failed() models.JobStatusReport {
	return models.JobStatusReport{State: models.JobStateError, StatusText: "ERROR"}
}
