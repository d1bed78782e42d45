package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
	"github.com/trobanga/genograb/internal/services"
)

// FailedJob records why a job did not produce an output file
type FailedJob struct {
	JobID          string
	SourceFilename string
	Reason         string
}

// PollReport summarizes a completed tracking run
type PollReport struct {
	Completed []models.Job
	Failed    []FailedJob
	Passes    int
}

// Poller tracks a batch of submitted jobs until each one is complete or errored
type Poller struct {
	Service   ImputationService
	Client    *services.HTTPClient
	OutputDir string
	Interval  time.Duration
	Logger    *lib.Logger

	// OnWait is called before sleeping with the number of jobs still pending
	OnWait func(pending int, interval time.Duration)
	// OnJobDone is called whenever a job reaches a terminal state
	OnJobDone func(job models.TrackedJob)
}

// Run polls every pending job once per pass, in submission order, sleeping the full
// interval between passes until no job is pending.
// A job is reported complete only after its download link was observed and its
// artifact is present at <OutputDir>/<source filename>. An artifact left by an
// earlier run is not fetched again, but the job is still checked first.
func (p *Poller) Run(ctx context.Context, jobs []models.Job) (PollReport, error) {
	var report PollReport

	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return report, fmt.Errorf("failed to create output directory: %w", err)
	}

	tracked := models.NewTrackedJobs(jobs)
	for {
		report.Passes++
		for i := range tracked {
			if tracked[i].State.IsTerminal() {
				continue
			}
			next, reason, err := p.evaluate(ctx, tracked[i].Job)
			if err != nil {
				return report, err
			}
			if next == models.JobStatePending {
				continue
			}

			t, err := models.Transition(tracked[i], next)
			if err != nil {
				return report, err
			}
			tracked[i] = t
			p.record(&report, t, reason, len(tracked))
		}

		pending := models.CountPending(tracked)
		if pending == 0 {
			return report, nil
		}

		p.Logger.Info("Jobs still pending", "pending", pending, "next_check_in", p.Interval)
		if p.OnWait != nil {
			p.OnWait(pending, p.Interval)
		}
		if err := lib.Sleep(ctx, p.Interval); err != nil {
			return report, err
		}
	}
}

// evaluate decides the next state of one job. Only errors that make further
// polling pointless, such as a changed page or a cancelled context, are returned.
func (p *Poller) evaluate(ctx context.Context, job models.Job) (models.JobState, string, error) {
	status, err := p.Service.Check(ctx, job.ID)
	if err != nil {
		return models.JobStatePending, "", fmt.Errorf("status check for job %s failed: %w", job.ID, err)
	}

	switch status.State {
	case models.JobStateComplete:
		// DownloadToFile keeps an output already on disk from an earlier run
		if _, err := services.DownloadToFile(ctx, p.Client, status.DownloadURL, p.destination(job), p.Logger); err != nil {
			if ctx.Err() != nil {
				return models.JobStatePending, "", ctx.Err()
			}
			lib.LogItemFailed(p.Logger, "imputation download", job.ID, err)
			return models.JobStateError, err.Error(), nil
		}
		return models.JobStateComplete, "", nil

	case models.JobStateError:
		lib.LogJobErrored(p.Logger, job.ID, job.SourceFilename)
		return models.JobStateError, "service reported ERROR", nil

	default:
		p.Logger.Debug("Job pending", "job_id", job.ID, "status", status.StatusText)
		return models.JobStatePending, "", nil
	}
}

func (p *Poller) record(report *PollReport, t models.TrackedJob, reason string, total int) {
	switch t.State {
	case models.JobStateComplete:
		report.Completed = append(report.Completed, t.Job)
		lib.LogJobCompleted(p.Logger, t.Job.ID, p.destination(t.Job), len(report.Completed), total)
	case models.JobStateError:
		report.Failed = append(report.Failed, FailedJob{
			JobID:          t.Job.ID,
			SourceFilename: t.Job.SourceFilename,
			Reason:         reason,
		})
	}
	if p.OnJobDone != nil {
		p.OnJobDone(t)
	}
}

func (p *Poller) destination(job models.Job) string {
	return filepath.Join(p.OutputDir, job.SourceFilename)
}
