package rotate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundog-ai/chronicle/internal/event"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	trimmed := strings.TrimSuffix(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestPath(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 8, 23, 15, 4, 5, 0, time.UTC)
	got := Path("/var/logs", event.CategoryTool, day)
	assert.Equal(t, filepath.Join("/var/logs", "tools", "tools_2026-08-23.log"), got)
}

// ---------------------------------------------------------------------------
// Writing and rotation
// ---------------------------------------------------------------------------

func TestWriterAppendsToDatedFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	day := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	w := New(root, event.CategoryAgent, 7, WithClock(fixedClock(day)))
	defer w.Close()

	w.Write([]byte(`{"a":1}`))
	w.Write([]byte(`{"a":2}`))
	w.Write([]byte(`{"a":3}`))
	require.NoError(t, w.Close())

	lines := readLines(t, Path(root, event.CategoryAgent, day))
	require.Len(t, lines, 3)
	assert.Equal(t, `{"a":1}`, lines[0])
	assert.Equal(t, `{"a":3}`, lines[2])
	assert.False(t, w.Degraded())
}

func TestWriterNoFileUntilFirstWrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := New(root, event.CategorySecurity, 7)
	defer w.Close()

	_, err := os.Stat(filepath.Join(root, "security"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriterRotatesAtDateBoundary(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	day1 := time.Date(2026, 8, 23, 23, 59, 0, 0, time.UTC)
	day2 := day1.Add(2 * time.Minute)

	var mu sync.Mutex
	now := day1
	w := New(root, event.CategoryWorkflow, 7, WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}))
	defer w.Close()

	w.Write([]byte("before"))
	mu.Lock()
	now = day2
	mu.Unlock()
	w.Write([]byte("after"))
	require.NoError(t, w.Close())

	assert.Equal(t, []string{"before"}, readLines(t, Path(root, event.CategoryWorkflow, day1)))
	assert.Equal(t, []string{"after"}, readLines(t, Path(root, event.CategoryWorkflow, day2)))
}

func TestWriterRetention(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	var mu sync.Mutex
	now := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	w := New(root, event.CategoryTool, 2, WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}))
	defer w.Close()

	// Four consecutive days; with a two-day window only the last two survive.
	for i := 0; i < 4; i++ {
		w.Write([]byte(fmt.Sprintf("day-%d", i)))
		mu.Lock()
		now = now.AddDate(0, 0, 1)
		mu.Unlock()
	}
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(filepath.Join(root, "tools"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"tools_2026-08-03.log", "tools_2026-08-04.log"}, names)
}

func TestWriterIgnoresForeignFilesDuringRetention(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "system")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "system_not-a-date.log"), []byte("keep"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "system_2020-01-01.log"), []byte("old"), 0o644))

	day := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	w := New(root, event.CategorySystem, 3, WithClock(fixedClock(day)))
	defer w.Close()
	w.Write([]byte("x"))
	require.NoError(t, w.Close())

	_, err := os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "system_not-a-date.log"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "system_2020-01-01.log"))
	assert.True(t, os.IsNotExist(err))
}

// ---------------------------------------------------------------------------
// Degraded mode
// ---------------------------------------------------------------------------

func TestWriterDegradesWhenDirectoryBlocked(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	// A regular file where the category directory should be makes MkdirAll fail.
	require.NoError(t, os.WriteFile(filepath.Join(root, "tools"), nil, 0o644))

	var fallback bytes.Buffer
	day := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	w := New(root, event.CategoryTool, 7,
		WithClock(fixedClock(day)),
		WithFallback(&fallback),
	)
	defer w.Close()

	w.Write([]byte("one"))
	w.Write([]byte("two"))

	assert.True(t, w.Degraded())
	assert.Equal(t, "one\ntwo\n", fallback.String())
}

func TestWriterRecoversAtNextDateBoundary(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	blocker := filepath.Join(root, "performance")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	var mu sync.Mutex
	now := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	var fallback bytes.Buffer
	w := New(root, event.CategoryPerformance, 7,
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}),
		WithFallback(&fallback),
	)
	defer w.Close()

	w.Write([]byte("lost-to-fallback"))
	require.True(t, w.Degraded())

	// Same day: the filesystem is not retried even after the fault clears.
	require.NoError(t, os.Remove(blocker))
	w.Write([]byte("still-fallback"))
	assert.True(t, w.Degraded())

	mu.Lock()
	now = now.AddDate(0, 0, 1)
	mu.Unlock()
	w.Write([]byte("recovered"))
	assert.False(t, w.Degraded())
	require.NoError(t, w.Close())

	assert.Equal(t, "lost-to-fallback\nstill-fallback\n", fallback.String())
	lines := readLines(t, Path(root, event.CategoryPerformance, now))
	assert.Equal(t, []string{"recovered"}, lines)
}

// ---------------------------------------------------------------------------
// Concurrency and lifecycle
// ---------------------------------------------------------------------------

func TestWriterConcurrentWrites(t *testing.T) {
	t.Parallel()

	const (
		goroutines = 8
		perG       = 50
	)

	root := t.TempDir()
	day := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	w := New(root, event.CategoryInteraction, 7, WithClock(fixedClock(day)))
	defer w.Close()

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				w.Write([]byte(fmt.Sprintf("g%02d-%03d", g, i)))
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	lines := readLines(t, Path(root, event.CategoryInteraction, day))
	require.Len(t, lines, goroutines*perG)

	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		// No interleaved or torn lines.
		require.Len(t, line, 7)
		seen[line] = struct{}{}
	}
	assert.Len(t, seen, goroutines*perG)
}

func TestWriterCloseAndReopen(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	day := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	w := New(root, event.CategoryAgent, 7, WithClock(fixedClock(day)))

	w.Write([]byte("first"))
	require.NoError(t, w.Close())
	w.Write([]byte("second"))
	require.NoError(t, w.Close())

	lines := readLines(t, Path(root, event.CategoryAgent, day))
	assert.Equal(t, []string{"first", "second"}, lines)
}
