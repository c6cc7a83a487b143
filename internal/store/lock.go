package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// DirLock guards a data directory against concurrent index writers.
type DirLock struct {
	lock *flock.Flock
}

// AcquireDirLock takes an exclusive lock on dataDir. It fails
// immediately when another process holds it rather than blocking an
// interactive command.
func AcquireDirLock(dataDir string) (*DirLock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dataDir, ".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire index lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("data directory %s is locked by another process", dataDir)
	}
	return &DirLock{lock: lock}, nil
}

// Release drops the lock.
func (l *DirLock) Release() error {
	return l.lock.Unlock()
}
