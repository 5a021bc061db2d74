package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectingHandler records transitions with timestamps.
type collectingHandler struct {
	mu       sync.Mutex
	missing  []string
	restored []string
}

func (h *collectingHandler) DocumentMissing(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.missing = append(h.missing, path)
}

func (h *collectingHandler) DocumentRestored(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.restored = append(h.restored, path)
}

func (h *collectingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.missing), len(h.restored)
}

func newTestWatcher(t *testing.T) (*Watcher, *collectingHandler) {
	t.Helper()

	handler := &collectingHandler{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	w, err := New(handler, 50*time.Millisecond, logger)
	require.NoError(t, err)
	w.Start()
	t.Cleanup(func() { w.Close() })

	return w, handler
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_DetectsDeletion(t *testing.T) {
	w, handler := newTestWatcher(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o600))
	require.NoError(t, w.Add(path))

	require.NoError(t, os.Remove(path))

	ok := waitFor(t, func() bool {
		m, _ := handler.counts()
		return m == 1
	})
	require.True(t, ok, "expected a missing notification")

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, path, handler.missing[0])
}

func TestWatcher_DetectsRestore(t *testing.T) {
	w, handler := newTestWatcher(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o600))
	require.NoError(t, w.Add(path))

	require.NoError(t, os.Remove(path))
	require.True(t, waitFor(t, func() bool {
		m, _ := handler.counts()
		return m == 1
	}))

	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o600))
	require.True(t, waitFor(t, func() bool {
		_, r := handler.counts()
		return r == 1
	}), "expected a restored notification")
}

func TestWatcher_AtomicReplaceIsNotADeletion(t *testing.T) {
	w, handler := newTestWatcher(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))
	require.NoError(t, w.Add(path))

	// Rename-and-replace within the debounce window, the way editors
	// save files.
	tmp := filepath.Join(dir, "paper.pdf.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	time.Sleep(300 * time.Millisecond)
	m, r := handler.counts()
	assert.Zero(t, m, "replace must not report missing")
	assert.Zero(t, r, "replace must not report restored")
}

func TestWatcher_AddIsIdempotent(t *testing.T) {
	w, _ := newTestWatcher(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o600))

	require.NoError(t, w.Add(path))
	require.NoError(t, w.Add(path))

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Equal(t, 1, w.dirs[dir])
}

func TestWatcher_RemoveStopsNotifications(t *testing.T) {
	w, handler := newTestWatcher(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o600))
	require.NoError(t, w.Add(path))

	w.Remove(path)
	require.NoError(t, os.Remove(path))

	time.Sleep(300 * time.Millisecond)
	m, _ := handler.counts()
	assert.Zero(t, m)
}

func TestWatcher_UnwatchedSiblingIsIgnored(t *testing.T) {
	w, handler := newTestWatcher(t)

	dir := t.TempDir()
	watched := filepath.Join(dir, "watched.pdf")
	sibling := filepath.Join(dir, "sibling.pdf")
	require.NoError(t, os.WriteFile(watched, []byte("pdf"), 0o600))
	require.NoError(t, os.WriteFile(sibling, []byte("pdf"), 0o600))
	require.NoError(t, w.Add(watched))

	require.NoError(t, os.Remove(sibling))

	time.Sleep(300 * time.Millisecond)
	m, _ := handler.counts()
	assert.Zero(t, m)
}
