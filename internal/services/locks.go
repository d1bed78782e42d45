package services

import (
	"fmt"
	"os"
	"time"

	"github.com/trobanga/genograb/internal/lib"
)

// CheckpointLock is an advisory file lock held next to a checkpoint
// Prevents two runs from tracking or rewriting the same checkpoint
type CheckpointLock struct {
	checkpointPath string
	lockFile       *os.File
	lockPath       string
	logger         *lib.Logger
}

// lockPathFor returns the lock file path guarding checkpointPath
func lockPathFor(checkpointPath string) string {
	return checkpointPath + ".lock"
}

// writeLockInfo writes debug information to the lock file
func (cl *CheckpointLock) writeLockInfo() error {
	lockInfo := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	_ = cl.lockFile.Truncate(0)
	_, _ = cl.lockFile.Seek(0, 0)
	_, _ = cl.lockFile.WriteString(lockInfo)
	return cl.lockFile.Sync()
}
