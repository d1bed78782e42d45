package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
	"github.com/trobanga/genograb/internal/workpool"
)

// PhenotypeSource lists users for a phenotype and finds their raw data files.
// *services.OpenSNPClient satisfies it.
type PhenotypeSource interface {
	FetchPhenotypeUsers(ctx context.Context, phenotypeID int) (models.PhenotypeIndex, error)
	ResolveGenotypeFile(ctx context.Context, userID string) (string, error)
}

// ScrapeResult is everything learned about one phenotype
type ScrapeResult struct {
	Phenotype   string
	Index       models.PhenotypeIndex
	Records     []models.FileRecord
	Manifest    models.ScrapeManifest
	FailedUsers []string // One entry per record without a URL
}

// PhenotypeKey is the string form of a phenotype id used in paths and checkpoint names
func PhenotypeKey(phenotypeID int) string {
	return strconv.Itoa(phenotypeID)
}

// Scrape enumerates the users of a phenotype and resolves each user's 23andMe file.
// Failing to list users is fatal; failing to resolve a single user is not.
func Scrape(ctx context.Context, source PhenotypeSource, phenotypeID int, workers int, logger *lib.Logger) (ScrapeResult, error) {
	result := ScrapeResult{Phenotype: PhenotypeKey(phenotypeID)}

	index, err := source.FetchPhenotypeUsers(ctx, phenotypeID)
	if err != nil {
		return result, fmt.Errorf("failed to list users for phenotype %d: %w", phenotypeID, err)
	}
	result.Index = index
	logger.Info("Users enumerated", "phenotype", phenotypeID, "users", index.UserCount(), "variants", len(index))

	records, err := ResolveFiles(ctx, source, index, workers, logger)
	if err != nil {
		return result, err
	}
	result.Records = records
	result.Manifest, result.FailedUsers = models.BuildManifest(records)

	logger.Info("Raw data files resolved",
		"phenotype", phenotypeID,
		"files", result.Manifest.FileCount(),
		"unresolved", len(result.FailedUsers))
	return result, nil
}

// ResolveFiles looks up every (user, variant) pair of index on a bounded worker pool.
// A lookup error yields a record with no URL. Only context cancellation is returned.
func ResolveFiles(ctx context.Context, source PhenotypeSource, index models.PhenotypeIndex, workers int, logger *lib.Logger) ([]models.FileRecord, error) {
	results := workpool.Run(ctx, workers, index.Pairs(), func(ctx context.Context, key models.UserVariant) (string, error) {
		return source.ResolveGenotypeFile(ctx, key.UserID)
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]models.FileRecord, 0, len(results))
	for _, r := range results {
		rec := models.FileRecord{UserID: r.Key.UserID, Variant: r.Key.Variant}
		switch {
		case r.Err != nil:
			lib.LogItemFailed(logger, "resolve", r.Key.UserID, r.Err)
		case r.Value == "":
			logger.Warn("No 23andMe file found", "user", r.Key.UserID, "variant", r.Key.Variant)
		default:
			rec.URL = r.Value
		}
		records = append(records, rec)
	}
	return records, nil
}
