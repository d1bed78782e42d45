package models

import "strings"

// ImputationFileMarker is the filename substring that identifies a 23andMe raw genotype export
const ImputationFileMarker = "23andme"

// Job is a single imputation submission tracked by its service-assigned id
type Job struct {
	ID             string `json:"id"`              // Opaque id issued by the imputation service
	SourceFilename string `json:"source_filename"` // Base name of the uploaded input file
}

// JobState defines the tracking state of a submitted job
type JobState string

const (
	JobStatePending  JobState = "pending"
	JobStateComplete JobState = "complete"
	JobStateError    JobState = "error"
)

// IsValidJobState checks if the job state is recognized
func IsValidJobState(s JobState) bool {
	switch s {
	case JobStatePending, JobStateComplete, JobStateError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible
func (s JobState) IsTerminal() bool {
	return s == JobStateComplete || s == JobStateError
}

// CanTransitionTo checks if state transition is valid
// Valid transitions:
//
//	pending -> complete | error
func (s JobState) CanTransitionTo(next JobState) bool {
	switch s {
	case JobStatePending:
		return next == JobStateComplete || next == JobStateError
	default:
		return false
	}
}

// IsImputationInput reports whether a file name follows the 23andMe export naming convention
func IsImputationInput(name string) bool {
	return strings.Contains(name, ImputationFileMarker)
}

// JobStatusReport is what the imputation service shows for a job id
type JobStatusReport struct {
	State       JobState
	DownloadURL string // Set when State is complete
	StatusText  string // Raw status indicator, for logging
}
