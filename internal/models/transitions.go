package models

import "fmt"

// TrackedJob pairs a Job with its current tracking state
type TrackedJob struct {
	Job   Job
	State JobState
}

// NewTrackedJobs starts tracking every job in the batch as pending, preserving order
func NewTrackedJobs(jobs []Job) []TrackedJob {
	tracked := make([]TrackedJob, 0, len(jobs))
	for _, j := range jobs {
		tracked = append(tracked, TrackedJob{Job: j, State: JobStatePending})
	}
	return tracked
}

// Transition returns a copy of the tracked job moved to next
// Pure function - the original is not mutated
func Transition(t TrackedJob, next JobState) (TrackedJob, error) {
	if !IsValidJobState(next) {
		return t, fmt.Errorf("job %s: unknown state %q", t.Job.ID, next)
	}
	if !t.State.CanTransitionTo(next) {
		return t, fmt.Errorf("job %s: invalid transition %s -> %s", t.Job.ID, t.State, next)
	}
	t.State = next
	return t, nil
}

// CountPending returns how many tracked jobs have not reached a terminal state
func CountPending(tracked []TrackedJob) int {
	n := 0
	for _, t := range tracked {
		if !t.State.IsTerminal() {
			n++
		}
	}
	return n
}
