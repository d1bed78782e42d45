package services

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/trobanga/genograb/internal/models"
)

// scrapeCheckpoint is the on-disk form of a ScrapeManifest
type scrapeCheckpoint struct {
	Version   int                   `json:"version"`
	Phenotype string                `json:"phenotype"`
	CreatedAt time.Time             `json:"created_at"`
	Files     models.ScrapeManifest `json:"files"`
}

// failedUsersCheckpoint lists users whose raw data file could not be resolved
type failedUsersCheckpoint struct {
	Version   int       `json:"version"`
	Phenotype string    `json:"phenotype"`
	CreatedAt time.Time `json:"created_at"`
	Users     []string  `json:"users"`
}

// ManifestStore persists scrape results so the download stage can run later
type ManifestStore struct {
	dir string
}

// NewManifestStore creates a store that writes checkpoints into dir
func NewManifestStore(dir string) *ManifestStore {
	return &ManifestStore{dir: dir}
}

// ManifestPath returns the manifest checkpoint path for a phenotype
func (s *ManifestStore) ManifestPath(phenotype string) string {
	return filepath.Join(s.dir, fmt.Sprintf("scrape_%s.json", phenotype))
}

// FailuresPath returns the failed-user list path for a phenotype
func (s *ManifestStore) FailuresPath(phenotype string) string {
	return filepath.Join(s.dir, fmt.Sprintf("err_%s.json", phenotype))
}

// SaveManifest writes the manifest checkpoint for a phenotype
func (s *ManifestStore) SaveManifest(phenotype string, manifest models.ScrapeManifest) error {
	if err := manifest.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid manifest: %w", err)
	}
	if manifest == nil {
		manifest = models.ScrapeManifest{}
	}
	return writeJSONAtomic(s.ManifestPath(phenotype), scrapeCheckpoint{
		Version:   CheckpointVersion,
		Phenotype: phenotype,
		CreatedAt: time.Now().UTC(),
		Files:     manifest,
	})
}

// LoadManifest reads the manifest checkpoint for a phenotype
func (s *ManifestStore) LoadManifest(phenotype string) (models.ScrapeManifest, error) {
	path := s.ManifestPath(phenotype)
	var cp scrapeCheckpoint
	if err := readJSONCheckpoint(path, &cp); err != nil {
		return nil, err
	}
	if cp.Files == nil {
		cp.Files = models.ScrapeManifest{}
	}
	if err := cp.Files.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest checkpoint %s: %w", path, err)
	}
	return cp.Files, nil
}

// SaveFailures writes the ids of users whose file could not be resolved
func (s *ManifestStore) SaveFailures(phenotype string, users []string) error {
	if users == nil {
		users = []string{}
	}
	return writeJSONAtomic(s.FailuresPath(phenotype), failedUsersCheckpoint{
		Version:   CheckpointVersion,
		Phenotype: phenotype,
		CreatedAt: time.Now().UTC(),
		Users:     users,
	})
}

// LoadFailures reads the failed-user list for a phenotype
func (s *ManifestStore) LoadFailures(phenotype string) ([]string, error) {
	var cp failedUsersCheckpoint
	if err := readJSONCheckpoint(s.FailuresPath(phenotype), &cp); err != nil {
		return nil, err
	}
	if cp.Users == nil {
		cp.Users = []string{}
	}
	return cp.Users, nil
}
