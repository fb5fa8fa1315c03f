package lock

import (
	"fmt"
	"log/slog"

	"github.com/apiproxy/nodeserver/internal/sentinel"
	"github.com/gofrs/flock"
)

// ErrLocked is returned by Acquire when another process holds the lock.
const ErrLocked = sentinel.Error("server is supervised by another process")

// FileLock is a held exclusive lock on a file.
type FileLock struct {
	fl  *flock.Flock
	log *slog.Logger
}

// Acquire takes an exclusive lock on path without blocking. It returns
// ErrLocked when the lock is held elsewhere, or a wrapped error when the
// lock file cannot be opened (for example, a missing parent directory).
// A nil logger falls back to slog.Default().
func Acquire(path string, logger *slog.Logger) (*FileLock, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring file lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("acquiring file lock %s: %w", path, ErrLocked)
	}
	return &FileLock{fl: fl, log: logger}, nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.fl.Path()
}

// Release unlocks and closes the lock file. The file itself stays on disk:
// removing it could invalidate a lock another process just acquired on the
// same path. Safe to call on a nil FileLock.
func (l *FileLock) Release() {
	if l == nil || l.fl == nil {
		return
	}
	if err := l.fl.Close(); err != nil {
		l.log.Debug("failed to release file lock", "path", l.fl.Path(), "error", err)
	}
}
