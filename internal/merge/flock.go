// Package merge combines per-subtask implement artifacts into the
// single merged artifact the review gate consumes, under a file lock
// so concurrent merges for the same work id cannot interleave.
package merge

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrLockHeld indicates another process holds the merge lock for the
// same output path.
var ErrLockHeld = errors.New("merge lock held by another process")

// FileLock provides cross-process mutual exclusion using flock(2).
// The lock file sits next to the merged artifact as "<out>.lock".
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a FileLock guarding the given output path.
func NewFileLock(outPath string) *FileLock {
	return &FileLock{path: outPath + ".lock"}
}

// Acquire takes the lock without blocking. A contended lock returns
// ErrLockHeld immediately: a concurrent merge for the same work id is
// an operator error, not a queue to wait in.
func (fl *FileLock) Acquire() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return fmt.Errorf("%w: %s", ErrLockHeld, fl.path)
		}
		return fmt.Errorf("flock: %w", err)
	}

	fl.file = f
	return nil
}

// Release drops the lock and closes the lock file. Safe to call when
// the lock was never acquired.
func (fl *FileLock) Release() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = fl.file.Close()
		fl.file = nil
		return fmt.Errorf("funlock: %w", err)
	}

	err := fl.file.Close()
	fl.file = nil
	return err
}
