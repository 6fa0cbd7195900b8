package session

import (
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_DetectsUnlinkedFile(t *testing.T) {
	// Given: a held lock whose file was unlinked and recreated
	root := t.TempDir()
	l := newFileLock(root, "run1")
	require.NoError(t, l.lock())
	defer l.unlock()
	require.NoError(t, os.Remove(l.path))
	require.NoError(t, os.WriteFile(l.path, nil, 0644))

	// When: checking the held handle
	current, err := l.current()

	// Then: it no longer names the file on disk
	require.NoError(t, err)
	assert.False(t, current)
}

func TestFileLock_UnlockAndRemove(t *testing.T) {
	root := t.TempDir()
	l := newFileLock(root, "run1")
	require.NoError(t, l.lock())

	l.unlockAndRemove()

	_, err := os.Stat(l.path)
	assert.True(t, os.IsNotExist(err))

	// A fresh lock recreates the file
	l2 := newFileLock(root, "run1")
	require.NoError(t, l2.lock())
	l2.unlock()
}

func TestFileLock_ExclusiveAcrossUnlink(t *testing.T) {
	// Given: many lockers, half of which unlink the lock file on release
	root := t.TempDir()
	var holders atomic.Int32
	var wg sync.WaitGroup

	// When: they contend for the same session
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				l := newFileLock(root, "run1")
				if !assert.NoError(t, l.lock()) {
					return
				}
				// Then: never more than one holder at a time
				assert.Equal(t, int32(1), holders.Add(1))
				holders.Add(-1)
				if (i+j)%2 == 0 {
					l.unlockAndRemove()
				} else {
					l.unlock()
				}
			}
		}()
	}
	wg.Wait()
}
