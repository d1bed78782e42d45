package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
	"github.com/trobanga/genograb/internal/pipeline"
	"github.com/trobanga/genograb/internal/services"
	"github.com/trobanga/genograb/internal/ui"
)

var (
	imputeInputDir  string
	imputeOutputDir string
	imputeResume    bool
	noProgress      bool
)

// imputeCmd represents the impute command
var imputeCmd = &cobra.Command{
	Use:   "impute",
	Short: "Submit 23andMe files to the Haplotype Imputer and download the results",
	Long: `Submit every 23andMe raw data file in the input directory to the
Haplotype Imputer, then poll the service until each job is complete or has
failed, downloading each imputed result into the output directory.

Only files whose name contains "23andme" are submitted. The assigned job
ids are checkpointed to imputation_jobs.json next to the input directory,
so tracking can be resumed with -f after an interruption without
submitting the files again.

Jobs are checked once per pass in submission order; while any job is still
pending the command waits for the poll interval (default 5 minutes)
before the next pass. A job counts as complete only once the service shows
its download link; results already present in the output directory are
not downloaded again.

No browser is driven: the service's forms are posted directly over HTTP,
so there is no flag for a browser driver path.

Examples:
  # Submit and track
  genograb impute -i ./raw -o ./imputed

  # Resume tracking a previously submitted batch
  genograb impute -i ./raw -o ./imputed -f`,
	Args: cobra.NoArgs,
	RunE: runImpute,
}

// imputeJobsCmd represents the impute jobs command
var imputeJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the checkpointed imputation jobs",
	Long: `List the jobs recorded in the checkpoint of an input directory.

Shows:
  - Job ID
  - Source file
  - Whether the imputed result exists in the output directory (with -o)

Example:
  genograb impute jobs -i ./raw -o ./imputed`,
	Args: cobra.NoArgs,
	RunE: runImputeJobs,
}

func init() {
	rootCmd.AddCommand(imputeCmd)
	imputeCmd.AddCommand(imputeJobsCmd)

	imputeCmd.Flags().StringVarP(&imputeInputDir, "input", "i", "", "input directory of 23andme files (required)")
	imputeCmd.Flags().StringVarP(&imputeOutputDir, "output", "o", "", "output directory for imputed files (required)")
	imputeCmd.Flags().BoolVarP(&imputeResume, "from-checkpoint", "f", false, "resume tracking from the saved job checkpoint instead of submitting")
	imputeCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress indicators")
	_ = imputeCmd.MarkFlagRequired("input")
	_ = imputeCmd.MarkFlagRequired("output")
	_ = imputeCmd.MarkFlagDirname("input")
	_ = imputeCmd.MarkFlagDirname("output")

	imputeJobsCmd.Flags().StringVarP(&imputeInputDir, "input", "i", "", "input directory the jobs were submitted from (required)")
	imputeJobsCmd.Flags().StringVarP(&imputeOutputDir, "output", "o", "", "output directory to check for results")
	_ = imputeJobsCmd.MarkFlagRequired("input")
}

func runImpute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	config, logger, err := loadConfig()
	if err != nil {
		return err
	}

	store := services.NewJobStore(imputeInputDir)
	lock, err := services.AcquireCheckpointLock(store.Path(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	// A missing checkpoint is reported before any request is made
	var jobs []models.Job
	if imputeResume {
		jobs, err = store.Load()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Loaded %d jobs from %s\n", len(jobs), store.Path())
	}

	session, err := services.OpenImputationSession(ctx, config.Imputation, config.HTTP, logger)
	if err != nil {
		return fmt.Errorf("failed to reach imputation service: %w", err)
	}
	defer session.Close()

	if !imputeResume {
		jobs, err = submitAll(cmd, session, store, logger)
		if err != nil {
			return err
		}
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs to track")
		return nil
	}

	report, err := trackJobs(cmd, session, config, jobs, logger)
	printPollReport(report, len(jobs))
	return err
}

// submitAll uploads the input directory and checkpoints the batch after every
// accepted file, so a failure part way through loses only the remainder
func submitAll(cmd *cobra.Command, session pipeline.ImputationService, store *services.JobStore, logger *lib.Logger) ([]models.Job, error) {
	paths, err := pipeline.ListInputFiles(imputeInputDir)
	if err != nil {
		return nil, err
	}
	inputs := pipeline.SelectImputationInputs(paths)
	if len(inputs) == 0 {
		fmt.Printf("No 23andme files found in %s\n", imputeInputDir)
		return nil, nil
	}

	var progress *ui.ProgressBar
	if !noProgress {
		progress = ui.NewProgressBar(int64(len(inputs)), "Submitting")
	}

	var submitted []models.Job
	var saveErr error
	jobs, err := pipeline.SubmitJobs(cmd.Context(), session, inputs, logger, func(job models.Job) {
		submitted = append(submitted, job)
		if e := store.Save(submitted); e != nil && saveErr == nil {
			saveErr = e
		}
		if progress != nil {
			_ = progress.Add(1)
		}
	})
	if progress != nil {
		_ = progress.Finish()
		fmt.Println()
	}

	if err != nil {
		if len(jobs) > 0 {
			fmt.Printf("✗ Submission stopped after %d of %d files; submitted jobs saved to %s\n", len(jobs), len(inputs), store.Path())
		}
		return nil, err
	}
	if saveErr != nil {
		return nil, fmt.Errorf("failed to save job checkpoint: %w", saveErr)
	}

	fmt.Printf("✓ Submitted %d jobs, checkpoint saved to %s\n", len(jobs), store.Path())
	return jobs, nil
}

func trackJobs(cmd *cobra.Command, session pipeline.ImputationService, config *models.ProjectConfig, jobs []models.Job, logger *lib.Logger) (pipeline.PollReport, error) {
	poller := &pipeline.Poller{
		Service:   session,
		Client:    services.NewHTTPClient(config.HTTP, config.Retry, logger),
		OutputDir: imputeOutputDir,
		Interval:  time.Duration(config.Imputation.PollIntervalSeconds) * time.Second,
		Logger:    logger,
	}

	var spinner *ui.Spinner
	if !noProgress {
		spinner = watchPoller(poller, len(jobs), os.Stderr)
	}
	report, err := poller.Run(cmd.Context(), jobs)
	if spinner != nil && spinner.IsActive() {
		spinner.Stop(err == nil)
	}
	return report, err
}

// watchPoller reports finished jobs and each wait between passes on a spinner
func watchPoller(poller *pipeline.Poller, total int, w io.Writer) *ui.Spinner {
	spinner := ui.NewSpinnerWithWriter(fmt.Sprintf("Tracking %d jobs", total), w)
	spinner.Start()

	finished := 0
	poller.OnJobDone = func(models.TrackedJob) {
		finished++
		spinner.UpdateMessage(fmt.Sprintf("Finished %d of %d jobs", finished, total))
	}
	poller.OnWait = func(pending int, interval time.Duration) {
		spinner.UpdateMessage(fmt.Sprintf("Waiting %s for %d pending jobs", ui.FormatDuration(interval), pending))
	}
	return spinner
}

func printPollReport(report pipeline.PollReport, total int) {
	fmt.Println()
	fmt.Printf("✓ Downloaded %d of %d imputed files to %s\n", len(report.Completed), total, imputeOutputDir)
	if len(report.Failed) > 0 {
		fmt.Printf("✗ %d jobs failed:\n", len(report.Failed))
		for _, f := range report.Failed {
			fmt.Printf("  %s  %s  (%s)\n", f.JobID, f.SourceFilename, f.Reason)
		}
	}
}

func runImputeJobs(cmd *cobra.Command, args []string) error {
	store := services.NewJobStore(imputeInputDir)
	jobs, err := store.Load()
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)

	header := table.Row{"#", "JOB ID", "SOURCE FILE"}
	if imputeOutputDir != "" {
		header = append(header, "OUTPUT")
	}
	t.AppendHeader(header)

	present := 0
	for i, job := range jobs {
		row := table.Row{i + 1, job.ID, job.SourceFilename}
		if imputeOutputDir != "" {
			state := "pending"
			if services.FileExists(filepath.Join(imputeOutputDir, job.SourceFilename)) {
				state = "present"
				present++
			}
			row = append(row, fmt.Sprintf("%s %s", ui.StatusSymbol(state), state))
		}
		t.AppendRow(row)
	}

	footer := fmt.Sprintf("%d jobs", len(jobs))
	if imputeOutputDir != "" {
		footer = fmt.Sprintf("%d jobs, %d results present", len(jobs), present)
	}
	t.AppendFooter(table.Row{"", footer})
	t.Render()

	if services.IsCheckpointLocked(store.Path()) {
		fmt.Println("\nA tracking run currently holds this checkpoint")
	}
	return nil
}
