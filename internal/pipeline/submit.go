package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
)

// ImputationService is the part of the imputation web UI the pipeline drives.
// *services.ImputationSession satisfies it.
type ImputationService interface {
	Submit(ctx context.Context, filePath string) (string, error)
	Check(ctx context.Context, jobID string) (models.JobStatusReport, error)
}

// ListInputFiles returns the regular files directly inside inputDir, sorted by name
func ListInputFiles(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lib.ErrFileNotFound(inputDir)
		}
		if os.IsPermission(err) {
			return nil, lib.ErrFilePermissionDenied(inputDir, err)
		}
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(inputDir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// SelectImputationInputs keeps the paths whose base name marks a 23andMe export
func SelectImputationInputs(paths []string) []string {
	var selected []string
	for _, p := range paths {
		if models.IsImputationInput(filepath.Base(p)) {
			selected = append(selected, p)
		}
	}
	return selected
}

// SubmitJobs uploads every matching file and returns the resulting batch in submission order.
// Submission stops at the first failure. The jobs captured before it are returned
// alongside the error so the caller can still checkpoint them.
func SubmitJobs(ctx context.Context, svc ImputationService, paths []string, logger *lib.Logger, onSubmitted func(models.Job)) ([]models.Job, error) {
	inputs := SelectImputationInputs(paths)
	if skipped := len(paths) - len(inputs); skipped > 0 {
		logger.Debug("Skipping files without 23andme in their name", "count", skipped)
	}

	jobs := make([]models.Job, 0, len(inputs))
	seen := make(map[string]string, len(inputs))

	for _, path := range inputs {
		name := filepath.Base(path)

		jobID, err := svc.Submit(ctx, path)
		if err != nil {
			return jobs, fmt.Errorf("submission of %s failed after %d of %d files: %w", name, len(jobs), len(inputs), err)
		}
		if prev, dup := seen[jobID]; dup {
			return jobs, fmt.Errorf("service returned job id %s for both %s and %s", jobID, prev, name)
		}
		seen[jobID] = name

		job := models.Job{ID: jobID, SourceFilename: name}
		jobs = append(jobs, job)
		lib.LogJobSubmitted(logger, jobID, name)
		if onSubmitted != nil {
			onSubmitted(job)
		}
	}

	return jobs, nil
}
