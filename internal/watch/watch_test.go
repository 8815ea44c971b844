package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) has(ev Event) bool {
	for _, e := range r.snapshot() {
		if e == ev {
			return true
		}
	}
	return false
}

func start(t *testing.T, root string) *recorder {
	t.Helper()
	rec := &recorder{}
	w, err := New(root, []string{".log"}, filepath.Join(root, "processed_logs"), rec.handle, WithDelay(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, w.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return rec
}

func TestWatchWritesAndRemoves(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "processed_logs"), 0o755))
	rec := start(t, root)

	path := filepath.Join(root, "alice-1.log")
	require.NoError(t, os.WriteFile(path, []byte("sh-4.2$ ls\n"), 0o644))
	require.Eventually(t, func() bool { return rec.has(Event{Path: path}) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return rec.has(Event{Path: path, Removed: true}) }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchIgnoresUnwanted(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "processed_logs"), 0o755))
	rec := start(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "processed_logs", "a.log"), []byte("x"), 0o644))
	marker := filepath.Join(root, "marker.log")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	require.Eventually(t, func() bool { return rec.has(Event{Path: marker}) }, 2*time.Second, 10*time.Millisecond)
	for _, ev := range rec.snapshot() {
		assert.Equal(t, marker, ev.Path)
	}
}

func TestWatchNewDirectory(t *testing.T) {
	root := t.TempDir()
	rec := start(t, root)

	dir := filepath.Join(root, "111")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "bob-2.log")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.Eventually(t, func() bool { return rec.has(Event{Path: path}) }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchDebounces(t *testing.T) {
	root := t.TempDir()
	rec := start(t, root)

	path := filepath.Join(root, "alice-1.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := f.WriteString("line\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return rec.has(Event{Path: path}) }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestNewMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), nil, "", func(context.Context, Event) {})
	assert.Error(t, err)
}
