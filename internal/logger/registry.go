package logger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sundog-ai/chronicle/internal/event"
	"github.com/sundog-ai/chronicle/internal/rotate"
)

// Registry owns the category-to-writer map. It is constructed once and
// injected into loggers; there is no process-wide global, so tests can run
// isolated instances side by side.
type Registry struct {
	root          string
	retentionDays int
	opts          []rotate.Option

	mu      sync.Mutex
	writers map[event.Category]*rotate.Writer
}

// NewRegistry creates a registry rooted at the given log directory. Writer
// options (clock, fallback sink) apply to every writer it creates.
func NewRegistry(root string, retentionDays int, opts ...rotate.Option) *Registry {
	return &Registry{
		root:          root,
		retentionDays: retentionDays,
		opts:          opts,
		writers:       make(map[event.Category]*rotate.Writer),
	}
}

// Writer returns the writer responsible for a category, creating it on first
// use. A category's writer lives for the registry's lifetime.
func (r *Registry) Writer(cat event.Category) (*rotate.Writer, error) {
	if !cat.Valid() {
		return nil, fmt.Errorf("logger: %w: %q", event.ErrInvalidCategory, cat)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.writers[cat]
	if !ok {
		w = rotate.New(r.root, cat, r.retentionDays, r.opts...)
		r.writers[cat] = w
	}
	return w, nil
}

// Close flushes and closes every open writer.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for cat, w := range r.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s writer: %w", cat, err))
		}
	}
	return errors.Join(errs...)
}

// Reset closes and discards all writers so the next write recreates them.
// Intended for tests.
func (r *Registry) Reset() error {
	err := r.Close()

	r.mu.Lock()
	r.writers = make(map[event.Category]*rotate.Writer)
	r.mu.Unlock()

	return err
}
