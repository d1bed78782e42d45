package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/trobanga/genograb/internal/lib"
)

// CheckpointVersion is the on-disk format version written by this build
const CheckpointVersion = 1

// checkpointHeader is decoded first to reject unknown versions before the payload
type checkpointHeader struct {
	Version int `json:"version"`
}

// writeJSONAtomic writes v to path with atomic write
// Uses temp file + rename so a crash mid-write never corrupts an existing checkpoint
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	// Indented for human inspection
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tempFile := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%s", filepath.Base(path), uuid.New().String()))
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp checkpoint file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// readJSONCheckpoint reads a versioned checkpoint from path into v
// Returns ErrCheckpointNotFound when the file does not exist
func readJSONCheckpoint(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lib.ErrCheckpointNotFound(path)
		}
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var header checkpointHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return lib.ErrCorruptedCheckpoint(path, err)
	}
	if header.Version != CheckpointVersion {
		return lib.ErrCorruptedCheckpoint(path,
			fmt.Errorf("unsupported checkpoint version %d (expected %d)", header.Version, CheckpointVersion))
	}

	if err := json.Unmarshal(data, v); err != nil {
		return lib.ErrCorruptedCheckpoint(path, err)
	}
	return nil
}
