package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// fileLock serializes access to one session across processes.
// The lock file lives beside the session directory so the directory can be
// removed while the lock is held.
//
// A lock file is only unlinked while it is held exclusively. A caller that
// was blocked on the unlinked inode sees that the path no longer names the
// file it locked and retries on the current one.
type fileLock struct {
	path  string
	flock *flock.Flock
}

func newFileLock(root, id string) *fileLock {
	path := filepath.Join(root, id+".lock")
	return &fileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// lock acquires an exclusive lock, blocking until available.
func (l *fileLock) lock() error {
	if err := l.acquire(l.flock.Lock); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	return nil
}

// rlock acquires a shared lock for readers.
func (l *fileLock) rlock() error {
	if err := l.acquire(l.flock.RLock); err != nil {
		return fmt.Errorf("failed to acquire read lock: %w", err)
	}
	return nil
}

func (l *fileLock) acquire(lockFn func() error) error {
	for {
		if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
			return fmt.Errorf("failed to create lock directory: %w", err)
		}
		if err := lockFn(); err != nil {
			return err
		}
		current, err := l.current()
		if err != nil {
			_ = l.flock.Unlock()
			return err
		}
		if current {
			return nil
		}
		_ = l.flock.Unlock()
	}
}

// current reports whether the held handle is still the file at path.
func (l *fileLock) current() (bool, error) {
	held, err := l.flock.Stat()
	if err != nil {
		return false, err
	}
	onDisk, err := os.Stat(l.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return os.SameFile(held, onDisk), nil
}

func (l *fileLock) unlock() {
	_ = l.flock.Unlock()
}

// unlockAndRemove deletes the lock file, then releases it. Only called
// with the exclusive lock held, once the session is gone.
func (l *fileLock) unlockAndRemove() {
	_ = os.Remove(l.path)
	_ = l.flock.Unlock()
}
