package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
	"github.com/trobanga/genograb/internal/pipeline"
	"github.com/trobanga/genograb/internal/services"
	"github.com/trobanga/genograb/internal/ui"
	"github.com/trobanga/genograb/internal/workpool"
)

var (
	phenotypeID  int
	snpRoot      string
	snpWorkers   int
	scrapeOnly   bool
	downloadOnly bool
	validateOnly bool
)

// opensnpCmd represents the opensnp command
var opensnpCmd = &cobra.Command{
	Use:   "opensnp",
	Short: "Collect 23andMe files shared on openSNP for a phenotype",
	Long: `Collect the 23andMe raw data files of every openSNP user who reported a
variant for a phenotype, grouped by the variant they reported.

Stages:
  scrape    List the users of the phenotype, resolve each user's 23andMe
            file and save the result to scrape_<phenotype>.json. Users
            without a file are saved to err_<phenotype>.json.
  download  Download every file of the saved scrape into
            <root>/<phenotype>/<variant>/. Existing files are skipped.
  validate  Move files whose first line lacks the 23andMe signature to
            <root>/<phenotype>-bad/<variant>/bad_<name>.

Without a stage flag, scrape and download run back to back.

Examples:
  # Scrape and download phenotype 24 into ./data
  genograb opensnp -p 24 -o ./data

  # Only resolve file URLs, with 16 workers
  genograb opensnp -p 24 -s -n 16

  # Validate what was downloaded
  genograb opensnp -p 24 -o ./data -c`,
	Args: cobra.NoArgs,
	RunE: runOpenSNP,
}

func init() {
	rootCmd.AddCommand(opensnpCmd)

	opensnpCmd.Flags().IntVarP(&phenotypeID, "phenotype", "p", 0, "openSNP phenotype id (required)")
	opensnpCmd.Flags().StringVarP(&snpRoot, "output", "o", ".", "root directory for downloaded files")
	opensnpCmd.Flags().IntVarP(&snpWorkers, "workers", "n", 0, "worker pool size (default: opensnp.workers or the number of logical cores)")
	opensnpCmd.Flags().BoolVarP(&scrapeOnly, "scrape", "s", false, "only resolve file URLs and save the scrape checkpoint")
	opensnpCmd.Flags().BoolVarP(&downloadOnly, "download", "d", false, "only download files listed in the scrape checkpoint")
	opensnpCmd.Flags().BoolVarP(&validateOnly, "check", "c", false, "only validate downloaded files")
	opensnpCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress indicators")
	_ = opensnpCmd.MarkFlagRequired("phenotype")
	_ = opensnpCmd.MarkFlagDirname("output")
	opensnpCmd.MarkFlagsMutuallyExclusive("scrape", "download", "check")
}

func runOpenSNP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	config, logger, err := loadConfig()
	if err != nil {
		return err
	}

	if snpWorkers > 0 {
		config.OpenSNP.Workers = snpWorkers
	}
	workers := config.OpenSNP.ResolveWorkers(workpool.DefaultWorkers())
	phenotype := pipeline.PhenotypeKey(phenotypeID)
	store := services.NewManifestStore(config.OpenSNP.StateDir)

	switch {
	case scrapeOnly:
		_, err := scrapeStage(ctx, config, store, workers, logger)
		return err
	case downloadOnly:
		manifest, err := store.LoadManifest(phenotype)
		if err != nil {
			return err
		}
		return downloadStage(ctx, config, phenotype, manifest, workers, logger)
	case validateOnly:
		return validateStage(phenotype, logger)
	default:
		manifest, err := scrapeStage(ctx, config, store, workers, logger)
		if err != nil {
			return err
		}
		return downloadStage(ctx, config, phenotype, manifest, workers, logger)
	}
}

func scrapeStage(ctx context.Context, config *models.ProjectConfig, store *services.ManifestStore, workers int, logger *lib.Logger) (models.ScrapeManifest, error) {
	client, err := services.NewOpenSNPClient(config.OpenSNP, config.HTTP, config.Retry, logger)
	if err != nil {
		return nil, err
	}

	spinner := ui.NewSpinner(fmt.Sprintf("Scraping phenotype %d with %d workers", phenotypeID, workers))
	spinner.Start()
	result, err := pipeline.Scrape(ctx, client, phenotypeID, workers, logger)
	spinner.Stop(err == nil)
	if err != nil {
		return nil, err
	}

	if err := store.SaveManifest(result.Phenotype, result.Manifest); err != nil {
		return nil, fmt.Errorf("failed to save scrape checkpoint: %w", err)
	}
	if err := store.SaveFailures(result.Phenotype, result.FailedUsers); err != nil {
		return nil, fmt.Errorf("failed to save failed-user list: %w", err)
	}

	fmt.Printf("✓ %d users across %d variants, %d files resolved\n",
		result.Index.UserCount(), len(result.Index), result.Manifest.FileCount())
	fmt.Printf("✓ Scrape saved to %s\n", store.ManifestPath(result.Phenotype))
	if n := len(result.FailedUsers); n > 0 {
		fmt.Printf("✗ %d users without a 23andMe file, listed in %s\n", n, store.FailuresPath(result.Phenotype))
	}
	return result.Manifest, nil
}

func downloadStage(ctx context.Context, config *models.ProjectConfig, phenotype string, manifest models.ScrapeManifest, workers int, logger *lib.Logger) error {
	var progress *ui.DownloadProgress
	if !noProgress {
		progress = ui.NewDownloadProgress(manifest.FileCount(), os.Stderr)
	}

	fetcher := &pipeline.Fetcher{
		Client:  services.NewHTTPClient(config.HTTP, config.Retry, logger),
		Root:    snpRoot,
		Workers: workers,
		Logger:  logger,
		OnProgress: func(done, total int) {
			if progress != nil {
				progress.Increment()
				return
			}
			logger.Info(fmt.Sprintf("Downloaded %d of %d", done, total))
		},
	}

	report, err := fetcher.Fetch(ctx, phenotype, manifest)
	progress.Finish()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("✓ Downloaded %d of %d files (%s), %d already present\n",
		report.Downloaded, report.Total, ui.FormatBytes(report.Bytes), report.Skipped)
	if len(report.Failures) > 0 {
		fmt.Printf("✗ %d downloads failed:\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Printf("  %s: %v\n", f.URL, f.Err)
		}
	}
	return nil
}

func validateStage(phenotype string, logger *lib.Logger) error {
	validator := &pipeline.Validator{Root: snpRoot, Logger: logger}
	var report pipeline.ValidationReport
	err := lib.LogOperation(logger, "validate phenotype "+phenotype, func() error {
		var err error
		report, err = validator.Validate(phenotype)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("✓ Checked %d files\n", report.Checked)
	if n := len(report.Quarantined); n > 0 {
		fmt.Printf("✗ %d files quarantined in %s\n", n, pipeline.QuarantineDir(snpRoot, phenotype))
	} else {
		fmt.Println("✓ No files quarantined")
	}
	return nil
}
