//go:build unix

package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/trobanga/genograb/internal/lib"
)

// AcquireCheckpointLock attempts to acquire an exclusive lock for a checkpoint (Unix implementation)
// Returns ErrCheckpointLocked if another process already holds it
func AcquireCheckpointLock(checkpointPath string, logger *lib.Logger) (*CheckpointLock, error) {
	lockPath := lockPathFor(checkpointPath)

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	// flock() is advisory - cooperating processes must check the lock
	err = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		_ = lockFile.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, lib.ErrCheckpointLocked(checkpointPath)
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	lock := &CheckpointLock{
		checkpointPath: checkpointPath,
		lockFile:       lockFile,
		lockPath:       lockPath,
		logger:         logger,
	}

	if err := lock.writeLockInfo(); err != nil {
		logger.Warn("Failed to write lock info", "checkpoint", checkpointPath, "error", err)
	}

	logger.Debug("Acquired checkpoint lock", "checkpoint", checkpointPath, "pid", os.Getpid())

	return lock, nil
}

// Release releases the checkpoint lock (Unix implementation)
// Safe to call more than once
func (cl *CheckpointLock) Release() error {
	if cl.lockFile == nil {
		return nil
	}

	if err := syscall.Flock(int(cl.lockFile.Fd()), syscall.LOCK_UN); err != nil {
		cl.logger.Warn("Failed to release flock", "checkpoint", cl.checkpointPath, "error", err)
	}

	if err := cl.lockFile.Close(); err != nil {
		cl.logger.Warn("Failed to close lock file", "checkpoint", cl.checkpointPath, "error", err)
		return err
	}

	cl.logger.Debug("Released checkpoint lock", "checkpoint", cl.checkpointPath, "pid", os.Getpid())
	cl.lockFile = nil

	return nil
}

// IsCheckpointLocked checks if a checkpoint is currently locked by any process (Unix implementation)
// This is a non-destructive check that doesn't keep the lock
func IsCheckpointLocked(checkpointPath string) bool {
	lockPath := lockPathFor(checkpointPath)

	lockFile, err := os.Open(lockPath)
	if err != nil {
		return false
	}
	defer func() {
		_ = lockFile.Close()
	}()

	err = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		return errors.Is(err, syscall.EWOULDBLOCK)
	}

	_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
	return false
}
