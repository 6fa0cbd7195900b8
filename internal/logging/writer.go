package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// RotatingWriter appends to a log file and shifts it to path.1, path.2, ...
// once it grows past maxSize. Several cmsindex processes may share one log
// (one per reindex page call), so rotation happens under a file lock and the
// size is re-read from disk before each decision.
type RotatingWriter struct {
	path    string
	maxSize int64
	backups int

	mu   sync.Mutex
	file *os.File
	lock *flock.Flock
}

// NewRotatingWriter opens path for appending. maxSizeMB bounds the live file
// and backups is how many rotated files are kept.
func NewRotatingWriter(path string, maxSizeMB, backups int) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	w := &RotatingWriter{
		path:    path,
		maxSize: int64(maxSizeMB) << 20,
		backups: max(backups, 1),
		lock:    flock.New(path + ".lock"),
	}
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	w.file = f
	return w, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Write appends p, rotating first when p would overflow the live file.
// A failed rotation is reported on stderr and the write goes to the
// current file.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if err := w.lock.Lock(); err == nil {
		defer func() { _ = w.lock.Unlock() }()
	}

	if w.size()+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}
	return w.file.Write(p)
}

// size is the on-disk size of the live log, which another process may have
// rotated since our last write.
func (w *RotatingWriter) size() int64 {
	info, err := os.Stat(w.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// rotate shifts path.(n-1) to path.n down to path -> path.1 and reopens.
// The oldest backup is overwritten by the rename.
func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	w.file = nil

	for n := w.backups - 1; n >= 1; n-- {
		from := fmt.Sprintf("%s.%d", w.path, n)
		if _, err := os.Stat(from); err == nil {
			_ = os.Rename(from, fmt.Sprintf("%s.%d", w.path, n+1))
		}
	}
	renameErr := os.Rename(w.path, w.path+".1")
	if renameErr != nil && os.IsNotExist(renameErr) {
		renameErr = nil
	}

	f, err := openAppend(w.path)
	if err != nil {
		return err
	}
	w.file = f
	if renameErr != nil {
		return fmt.Errorf("failed to rotate log file: %w", renameErr)
	}
	return nil
}

// Sync flushes the live file to disk.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the live file. Later writes fail with os.ErrClosed.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
