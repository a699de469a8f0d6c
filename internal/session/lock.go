package session

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"keepsake/internal/services"
)

// Lock is an advisory per-session file lock. It prevents two processes from
// running pipeline stages against the same session directory at once; a
// stale lock from a crashed process is released by the OS automatically.
type Lock struct {
	flock *flock.Flock
}

// AcquireLock takes the session lock, failing immediately when another
// process holds it.
func AcquireLock(paths Paths) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(paths.LockFile()), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "lock", "create session directory", err)
	}
	lock := flock.New(paths.LockFile())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "lock", "acquire session lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrValidation, "session", "lock", "session is locked by another process", nil)
	}
	return &Lock{flock: lock}, nil
}

// Release drops the lock. Safe to call on a nil lock.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	return l.flock.Unlock()
}
