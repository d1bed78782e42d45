package services

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/trobanga/genograb/internal/models"
)

const (
	JobCheckpointFileName = "imputation_jobs.json"
)

// jobCheckpoint is the on-disk form of a submitted batch
type jobCheckpoint struct {
	Version   int          `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	Jobs      []models.Job `json:"jobs"`
}

// JobStore persists the submitted job batch so tracking can resume without resubmitting
type JobStore struct {
	path string
}

// NewJobStore creates a store whose checkpoint lives next to the input directory
func NewJobStore(inputDir string) *JobStore {
	return &JobStore{path: GetJobCheckpointPath(inputDir)}
}

// GetJobCheckpointPath returns the checkpoint path for an input directory:
// <parent of inputDir>/imputation_jobs.json
func GetJobCheckpointPath(inputDir string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(inputDir)), JobCheckpointFileName)
}

// Path returns the checkpoint file path
func (s *JobStore) Path() string {
	return s.path
}

// Save writes jobs to the checkpoint, preserving submission order
func (s *JobStore) Save(jobs []models.Job) error {
	if err := models.ValidateJobBatch(jobs); err != nil {
		return fmt.Errorf("cannot save invalid job batch: %w", err)
	}

	if jobs == nil {
		jobs = []models.Job{}
	}

	return writeJSONAtomic(s.path, jobCheckpoint{
		Version:   CheckpointVersion,
		CreatedAt: time.Now().UTC(),
		Jobs:      jobs,
	})
}

// Load reads the job batch back from the checkpoint
// Returns an error satisfying IsNotExist when no checkpoint was written
func (s *JobStore) Load() ([]models.Job, error) {
	var cp jobCheckpoint
	if err := readJSONCheckpoint(s.path, &cp); err != nil {
		return nil, err
	}

	if err := models.ValidateJobBatch(cp.Jobs); err != nil {
		return nil, fmt.Errorf("invalid job checkpoint %s: %w", s.path, err)
	}

	if cp.Jobs == nil {
		cp.Jobs = []models.Job{}
	}
	return cp.Jobs, nil
}
