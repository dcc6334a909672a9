// Package rotate implements the per-category date-rotating file writer. Each
// writer owns one category directory, rotates lazily on the first write of a
// new day, enforces the retention window on rotation, and degrades to a
// console fallback when the filesystem is unavailable.
package rotate

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sundog-ai/chronicle/internal/event"
)

const (
	dateLayout = "2006-01-02"
	fileSuffix = ".log"
)

// Path returns the dated file for a category under the log root.
func Path(root string, cat event.Category, day time.Time) string {
	stem := cat.Dir()
	return filepath.Join(root, stem, stem+"_"+day.Format(dateLayout)+fileSuffix)
}

// Writer appends encoded event lines to the current day's file for one
// category. All state is guarded by mu; at most one file handle is open at any
// time, and its date always matches the clock at the last rotation check.
type Writer struct {
	dir           string
	stem          string
	retentionDays int
	now           func() time.Time
	fallback      io.Writer
	warnLimit     *rate.Limiter

	mu       sync.Mutex
	file     *os.File
	openDate string // empty while Closed
	degraded bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock overrides the wall clock, for rotation tests.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithFallback overrides the degraded-mode sink (default stderr).
func WithFallback(out io.Writer) Option {
	return func(w *Writer) { w.fallback = out }
}

// New creates a writer for one category under root. No file is opened until
// the first write, so a category that never logs never creates a file.
func New(root string, cat event.Category, retentionDays int, opts ...Option) *Writer {
	if retentionDays < 1 {
		retentionDays = 1
	}
	stem := cat.Dir()
	w := &Writer{
		dir:           filepath.Join(root, stem),
		stem:          stem,
		retentionDays: retentionDays,
		now:           time.Now,
		fallback:      os.Stderr,
		// One warning burst per fault, then at most one every 30s.
		warnLimit: rate.NewLimiter(rate.Every(30*time.Second), 3),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write appends one encoded line durably to the current day's file, rotating
// first if the date has changed. Filesystem faults are absorbed: the line goes
// to the fallback sink and the writer retries the filesystem at the next date
// boundary. The line must not contain a newline.
func (w *Writer) Write(line []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	today := w.now().Format(dateLayout)
	if w.openDate != today {
		w.rotateLocked(today)
	}

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')

	if w.degraded || w.file == nil {
		w.writeFallbackLocked(buf)
		return
	}

	if _, err := w.file.Write(buf); err != nil {
		w.warn("append failed, degrading to fallback sink", err)
		_ = w.file.Close()
		w.file = nil
		w.degraded = true
		w.writeFallbackLocked(buf)
	}
}

// Degraded reports whether the writer is currently routing to the fallback sink.
func (w *Writer) Degraded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.degraded
}

// Close flushes and closes the open file, returning the writer to its initial
// state. A later write reopens the current day's file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.openDate = ""
	w.degraded = false
	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// rotateLocked closes the previous day's file and opens today's. openDate is
// advanced even when the open fails so a persistent fault is retried once per
// day instead of on every write. Callers hold mu.
func (w *Writer) rotateLocked(today string) {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			w.warn("closing rotated file", err)
		}
		w.file = nil
	}
	w.openDate = today

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.warn("creating category directory", err)
		w.degraded = true
		return
	}

	path := filepath.Join(w.dir, w.stem+"_"+today+fileSuffix)
	// O_APPEND with unbuffered writes: a line is in the kernel before the
	// write call returns, so it survives an ungraceful process exit.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		w.warn("opening dated file", err)
		w.degraded = true
		return
	}

	if w.degraded {
		log.Info().Str("category", w.stem).Str("path", path).Msg("writer recovered from degraded mode")
	}
	w.file = f
	w.degraded = false

	w.cleanupLocked(today)
}

// cleanupLocked deletes dated files older than the retention window. Failures
// are reported and skipped; they never abort the rotation or the triggering
// write. Callers hold mu.
func (w *Writer) cleanupLocked(today string) {
	cutoffDay, err := time.Parse(dateLayout, today)
	if err != nil {
		return
	}
	cutoff := cutoffDay.AddDate(0, 0, -(w.retentionDays - 1))

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.warn("listing category directory for retention", err)
		return
	}

	prefix := w.stem + "_"
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		day, parseErr := time.Parse(dateLayout, strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileSuffix))
		if parseErr != nil {
			continue
		}
		if day.Before(cutoff) {
			if rmErr := os.Remove(filepath.Join(w.dir, name)); rmErr != nil {
				w.warn("removing expired file", rmErr)
			}
		}
	}
}

// writeFallbackLocked emits the line on the fallback sink. Callers hold mu.
func (w *Writer) writeFallbackLocked(buf []byte) {
	if w.fallback == nil {
		return
	}
	_, _ = w.fallback.Write(buf)
}

// warn reports a recovered filesystem fault, rate-limited so a persistent
// fault cannot flood the diagnostic log.
func (w *Writer) warn(msg string, err error) {
	if !w.warnLimit.Allow() {
		return
	}
	log.Warn().Str("category", w.stem).Err(err).Msg("rotate: " + msg)
}
