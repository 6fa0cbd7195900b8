package session

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
)

// Store is the durable id-list store rooted at a directory.
type Store struct {
	root string
}

// NewStore creates a store, creating root if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session storage: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the storage directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the file path for (sessionID, name).
func (s *Store) Path(sessionID, name string) string {
	return filepath.Join(s.root, sessionID, name)
}

// Exists reports whether the id list (sessionID, name) is stored.
func (s *Store) Exists(sessionID, name string) bool {
	if ValidateSessionID(sessionID) != nil || validateFileName(name) != nil {
		return false
	}
	info, err := os.Stat(s.Path(sessionID, name))
	return err == nil && !info.IsDir()
}

// WriteIDs stores ids as a JSON integer array.
// Uses atomic write (temp file + rename).
func (s *Store) WriteIDs(sessionID, name string, ids []int) error {
	if err := s.validate(sessionID, name); err != nil {
		return err
	}
	if ids == nil {
		ids = []int{}
	}

	l := newFileLock(s.root, sessionID)
	if err := l.lock(); err != nil {
		return cmserrors.New(cmserrors.ErrCodeSessionIO, "failed to lock session", err)
	}
	defer l.unlock()

	dir := filepath.Join(s.root, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return cmserrors.New(cmserrors.ErrCodeSessionIO, "failed to create session directory", err)
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal ids: %w", err)
	}

	path := s.Path(sessionID, name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return cmserrors.New(cmserrors.ErrCodeSessionIO, "failed to write session file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return cmserrors.New(cmserrors.ErrCodeSessionIO, "failed to save session file", err)
	}
	return nil
}

// ReadIDs loads a stored id list. A missing file returns an error wrapping
// fs.ErrNotExist; unreadable content returns a session state error.
func (s *Store) ReadIDs(sessionID, name string) ([]int, error) {
	if err := s.validate(sessionID, name); err != nil {
		return nil, err
	}

	l := newFileLock(s.root, sessionID)
	if err := l.rlock(); err != nil {
		return nil, cmserrors.New(cmserrors.ErrCodeSessionIO, "failed to lock session", err)
	}
	defer l.unlock()

	path := s.Path(sessionID, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session %s has no %s: %w", sessionID, name, fs.ErrNotExist)
		}
		return nil, cmserrors.SessionStateError("failed to read "+name, err).
			WithDetail("session_id", sessionID)
	}

	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, cmserrors.SessionStateError("corrupt id list "+name, err).
			WithDetail("session_id", sessionID)
	}
	if ids == nil {
		ids = []int{}
	}
	return ids, nil
}

// Delete removes an id list. Deleting a missing list is not an error.
// The session directory is removed with its last file.
func (s *Store) Delete(sessionID, name string) error {
	if err := s.validate(sessionID, name); err != nil {
		return err
	}

	dir := filepath.Join(s.root, sessionID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	l := newFileLock(s.root, sessionID)
	if err := l.lock(); err != nil {
		return cmserrors.New(cmserrors.ErrCodeSessionIO, "failed to lock session", err)
	}

	err := os.Remove(s.Path(sessionID, name))
	if err != nil && !os.IsNotExist(err) {
		l.unlock()
		return cmserrors.New(cmserrors.ErrCodeSessionIO, "failed to delete session file", err)
	}

	if isEmptyDir(dir) {
		_ = os.Remove(dir)
		l.unlockAndRemove()
		return nil
	}
	l.unlock()
	return nil
}

// List returns every stored session, newest first.
func (s *Store) List() ([]*Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Info{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	sessions := []*Info{}
	for _, entry := range entries {
		if !entry.IsDir() || ValidateSessionID(entry.Name()) != nil {
			continue
		}
		info, err := s.info(entry.Name())
		if err != nil {
			// Skip unreadable sessions
			continue
		}
		sessions = append(sessions, info)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Prune removes sessions not written within olderThan.
// Returns the count of deleted sessions.
func (s *Store) Prune(olderThan time.Duration) (int, error) {
	sessions, err := s.List()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, info := range sessions {
		if !info.IsStale(olderThan) {
			continue
		}
		l := newFileLock(s.root, info.ID)
		if err := l.lock(); err != nil {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, info.ID)); err != nil {
			l.unlock()
			continue
		}
		l.unlockAndRemove()
		deleted++
	}
	return deleted, nil
}

func (s *Store) info(sessionID string) (*Info, error) {
	dir := filepath.Join(s.root, sessionID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	info := &Info{ID: sessionID, Files: []string{}}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		info.Files = append(info.Files, entry.Name())
		info.Size += fi.Size()
		if fi.ModTime().After(info.UpdatedAt) {
			info.UpdatedAt = fi.ModTime()
		}
	}
	if info.UpdatedAt.IsZero() {
		if fi, err := os.Stat(dir); err == nil {
			info.UpdatedAt = fi.ModTime()
		}
	}
	sort.Strings(info.Files)
	return info, nil
}

func (s *Store) validate(sessionID, name string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return cmserrors.ValidationError("invalid session id", err)
	}
	if err := validateFileName(name); err != nil {
		return cmserrors.ValidationError("invalid session file name", err)
	}
	return nil
}

func validateFileName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}

func isEmptyDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) == 0
}
