package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
	"github.com/trobanga/genograb/internal/services"
	"github.com/trobanga/genograb/internal/workpool"
)

// FetchFailure is a download that did not produce a file
type FetchFailure struct {
	URL string
	Err error
}

// FetchReport summarizes a download run
type FetchReport struct {
	Total      int
	Downloaded int
	Skipped    int
	Bytes      int64
	Failures   []FetchFailure
}

// Fetcher downloads a scrape manifest into <Root>/<phenotype>/<variant>/
type Fetcher struct {
	Client  *services.HTTPClient
	Root    string
	Workers int
	Logger  *lib.Logger

	// OnProgress is called after each task with the number finished so far.
	// Calls are serialized.
	OnProgress func(done, total int)
}

// PhenotypeDir returns the directory holding every variant of a phenotype
func PhenotypeDir(root, phenotype string) string {
	return filepath.Join(root, phenotype)
}

// PlanDownloads creates the phenotype and variant directories and flattens the
// manifest into download tasks, ordered by variant
func PlanDownloads(root, phenotype string, manifest models.ScrapeManifest) ([]models.DownloadTask, error) {
	phenoDir := PhenotypeDir(root, phenotype)
	if err := os.MkdirAll(phenoDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create phenotype directory: %w", err)
	}

	tasks := make([]models.DownloadTask, 0, manifest.FileCount())
	for _, variant := range manifest.Variants() {
		if err := os.MkdirAll(models.VariantDir(phenoDir, variant), 0755); err != nil {
			return nil, fmt.Errorf("failed to create variant directory: %w", err)
		}
		for _, u := range manifest[variant] {
			tasks = append(tasks, models.DownloadTask{
				URL:         u,
				Destination: models.DownloadDestination(phenoDir, variant, u),
			})
		}
	}
	return tasks, nil
}

// Fetch downloads every file of the manifest that is not already on disk
func (f *Fetcher) Fetch(ctx context.Context, phenotype string, manifest models.ScrapeManifest) (FetchReport, error) {
	tasks, err := PlanDownloads(f.Root, phenotype, manifest)
	if err != nil {
		return FetchReport{}, err
	}
	report := FetchReport{Total: len(tasks)}

	var mu sync.Mutex
	done := 0
	results := workpool.Run(ctx, f.Workers, tasks, func(ctx context.Context, task models.DownloadTask) (services.DownloadResult, error) {
		res, err := services.DownloadToFile(ctx, f.Client, task.URL, task.Destination, f.Logger)

		mu.Lock()
		done++
		if f.OnProgress != nil {
			f.OnProgress(done, len(tasks))
		}
		mu.Unlock()
		return res, err
	})

	if err := ctx.Err(); err != nil {
		return report, err
	}

	for _, r := range results {
		switch {
		case r.Err != nil:
			lib.LogItemFailed(f.Logger, "download", r.Key.URL, r.Err)
			report.Failures = append(report.Failures, FetchFailure{URL: r.Key.URL, Err: r.Err})
		case r.Value.Skipped:
			report.Skipped++
		default:
			report.Downloaded++
			report.Bytes += r.Value.Bytes
		}
	}

	f.Logger.Info("Download finished",
		"phenotype", phenotype,
		"total", report.Total,
		"downloaded", report.Downloaded,
		"skipped", report.Skipped,
		"failed", len(report.Failures))
	return report, nil
}
