//go:build windows

package services

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"unsafe"

	"github.com/trobanga/genograb/internal/lib"
)

var (
	kernel32         = syscall.NewLazyDLL("kernel32.dll")
	procLockFileEx   = kernel32.NewProc("LockFileEx")
	procUnlockFileEx = kernel32.NewProc("UnlockFileEx")
)

const (
	LOCKFILE_FAIL_IMMEDIATELY = 0x00000001
	LOCKFILE_EXCLUSIVE_LOCK   = 0x00000002
	ERROR_LOCK_VIOLATION      = syscall.Errno(33) // File is locked by another process
)

func lockFileEx(f *os.File) error {
	overlapped := syscall.Overlapped{}
	r1, _, err := procLockFileEx.Call(
		uintptr(syscall.Handle(f.Fd())),
		uintptr(LOCKFILE_EXCLUSIVE_LOCK|LOCKFILE_FAIL_IMMEDIATELY),
		0,
		uintptr(1),
		0,
		uintptr(unsafe.Pointer(&overlapped)),
	)
	if r1 == 0 {
		return err
	}
	return nil
}

func unlockFileEx(f *os.File) error {
	overlapped := syscall.Overlapped{}
	_, _, err := procUnlockFileEx.Call(
		uintptr(syscall.Handle(f.Fd())),
		0,
		uintptr(1),
		0,
		uintptr(unsafe.Pointer(&overlapped)),
	)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// AcquireCheckpointLock attempts to acquire an exclusive lock for a checkpoint (Windows implementation)
func AcquireCheckpointLock(checkpointPath string, logger *lib.Logger) (*CheckpointLock, error) {
	lockPath := lockPathFor(checkpointPath)

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := lockFileEx(lockFile); err != nil {
		_ = lockFile.Close()
		if err == ERROR_LOCK_VIOLATION {
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

// Release releases the checkpoint lock (Windows implementation)
func (cl *CheckpointLock) Release() error {
	if cl.lockFile == nil {
		return nil
	}

	if err := unlockFileEx(cl.lockFile); err != nil {
		cl.logger.Warn("Failed to release lock", "checkpoint", cl.checkpointPath, "error", err)
	}

	if err := cl.lockFile.Close(); err != nil {
		cl.logger.Warn("Failed to close lock file", "checkpoint", cl.checkpointPath, "error", err)
		return err
	}

	cl.logger.Debug("Released checkpoint lock", "checkpoint", cl.checkpointPath, "pid", os.Getpid())
	cl.lockFile = nil

	return nil
}

// IsCheckpointLocked checks if a checkpoint is currently locked by any process (Windows implementation)
func IsCheckpointLocked(checkpointPath string) bool {
	lockFile, err := os.Open(lockPathFor(checkpointPath))
	if err != nil {
		return false
	}
	defer func() {
		_ = lockFile.Close()
	}()

	if err := lockFileEx(lockFile); err != nil {
		return err == ERROR_LOCK_VIOLATION
	}

	_ = unlockFileEx(lockFile)
	return false
}
