package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressBar wraps the progressbar library to show how many of a known number
// of items have been handled
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a progress bar on stderr for an operation with a known item count.
// Redraws are throttled to every 500ms.
func NewProgressBar(total int64, description string) *ProgressBar {
	return newProgressBar(total, description, os.Stderr)
}

func newProgressBar(total int64, description string, writer io.Writer) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(500*time.Millisecond),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWriter(writer),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(false), // Disable colors for better compatibility
	)

	return &ProgressBar{bar: bar}
}

// Add increments the progress bar by the given amount
func (p *ProgressBar) Add(amount int64) error {
	return p.bar.Add64(amount)
}

// Describe replaces the text shown left of the bar
func (p *ProgressBar) Describe(description string) {
	p.bar.Describe(description)
}

// Finish completes the progress bar
func (p *ProgressBar) Finish() error {
	return p.bar.Finish()
}

// DownloadProgress reports "Downloaded N of total" as files land on disk.
// A nil *DownloadProgress is a valid no-op, so callers can disable output.
type DownloadProgress struct {
	bar   *ProgressBar
	total int
	done  int
}

// NewDownloadProgress creates download progress for total files written to w
func NewDownloadProgress(total int, w io.Writer) *DownloadProgress {
	d := &DownloadProgress{total: total}
	d.bar = newProgressBar(int64(total), d.label(), w)
	return d
}

// Increment counts one more handled file
func (d *DownloadProgress) Increment() {
	if d == nil {
		return
	}
	d.done++
	d.bar.Describe(d.label())
	_ = d.bar.Add(1)
}

// Done returns how many files have been counted
func (d *DownloadProgress) Done() int {
	if d == nil {
		return 0
	}
	return d.done
}

// Finish completes the bar
func (d *DownloadProgress) Finish() {
	if d == nil {
		return
	}
	_ = d.bar.Finish()
}

func (d *DownloadProgress) label() string {
	return fmt.Sprintf("Downloaded %d of %d", d.done, d.total)
}

// Spinner provides visual feedback for operations with unknown duration
type Spinner struct {
	description string
	startTime   time.Time
	active      bool
	writer      io.Writer
}

// NewSpinner creates a spinner for unknown-duration operations, printing to stdout
func NewSpinner(description string) *Spinner {
	return NewSpinnerWithWriter(description, os.Stdout)
}

// NewSpinnerWithWriter creates a spinner printing to writer
func NewSpinnerWithWriter(description string, writer io.Writer) *Spinner {
	return &Spinner{
		description: description,
		startTime:   time.Now(),
		writer:      writer,
	}
}

// Start announces the operation
func (s *Spinner) Start() {
	s.active = true
	s.startTime = time.Now()
	fmt.Fprintf(s.writer, "%s...\n", s.description)
}

// Stop ends the operation with a success or failure line
func (s *Spinner) Stop(success bool) {
	s.active = false
	elapsed := time.Since(s.startTime)

	if success {
		fmt.Fprintf(s.writer, "✓ %s (completed in %s)\n", s.description, FormatDuration(elapsed))
	} else {
		fmt.Fprintf(s.writer, "✗ %s (failed after %s)\n", s.description, FormatDuration(elapsed))
	}
}

// UpdateMessage updates the spinner's description while it's running
func (s *Spinner) UpdateMessage(message string) {
	s.description = message
	if s.active {
		fmt.Fprintf(s.writer, "%s... (%s elapsed)\n", message, FormatDuration(time.Since(s.startTime)))
	}
}

// IsActive returns whether the spinner is currently running
func (s *Spinner) IsActive() bool {
	return s.active
}
