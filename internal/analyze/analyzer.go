// Package analyze provides the read-side views over persisted category files:
// per-session timelines, numeric aggregates, and per-category counts. It never
// takes write locks; files are opened read-only and every call re-scans from
// the start, so results always reflect the files as committed.
package analyze

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sundog-ai/chronicle/internal/event"
)

const (
	dateLayout = "2006-01-02"
	// Lines carry full tool inputs and agent responses; allow up to 4 MiB.
	maxLineBytes = 4 << 20
)

// TimeRange bounds a scan. Zero endpoints are unbounded.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range (inclusive bounds).
func (tr TimeRange) Contains(t time.Time) bool {
	if !tr.From.IsZero() && t.Before(tr.From) {
		return false
	}
	if !tr.To.IsZero() && t.After(tr.To) {
		return false
	}
	return true
}

// Analyzer reads the dated category files under one log root.
type Analyzer struct {
	root string
}

// New creates an analyzer over a log root directory.
func New(root string) *Analyzer {
	return &Analyzer{root: root}
}

// SessionResult is a merged, time-ordered view of one session.
type SessionResult struct {
	Events    []event.Event
	Malformed int // lines skipped because they could not be decoded
}

// SessionEvents returns all events stamped with the session id across every
// category, ordered by timestamp ascending. Categories are scanned
// concurrently; malformed lines are skipped and counted, never fatal.
func (a *Analyzer) SessionEvents(ctx context.Context, sessionID string, tr TimeRange) (*SessionResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("analyze.SessionEvents: empty session id")
	}

	var (
		mu     sync.Mutex
		result SessionResult
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, cat := range event.Categories() {
		g.Go(func() error {
			malformed, err := a.scanCategory(ctx, cat, tr, func(e event.Event) {
				if e.SessionID != sessionID {
					return
				}
				mu.Lock()
				result.Events = append(result.Events, e)
				mu.Unlock()
			})
			if err != nil {
				return err
			}
			mu.Lock()
			result.Malformed += malformed
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze.SessionEvents: %w", err)
	}

	sort.SliceStable(result.Events, func(i, j int) bool {
		return result.Events[i].Timestamp.Before(result.Events[j].Timestamp)
	})
	return &result, nil
}

// Summary aggregates one numeric field.
type Summary struct {
	Count     int
	Sum       float64
	Mean      float64
	Min       float64
	Max       float64
	Malformed int
}

// Aggregate computes count/sum/mean (and min/max) of a numeric field over one
// category within the time range. Events without the field, or with a
// non-numeric value for it, are ignored.
func (a *Analyzer) Aggregate(ctx context.Context, cat event.Category, field string, tr TimeRange) (Summary, error) {
	if !cat.Valid() {
		return Summary{}, fmt.Errorf("analyze.Aggregate: %w: %q", event.ErrInvalidCategory, cat)
	}
	if field == "" {
		return Summary{}, fmt.Errorf("analyze.Aggregate: empty field name")
	}

	var s Summary
	malformed, err := a.scanCategory(ctx, cat, tr, func(e event.Event) {
		v, ok := e.Fields[field]
		if !ok {
			return
		}
		n, ok := v.Number()
		if !ok {
			return
		}
		if s.Count == 0 || n < s.Min {
			s.Min = n
		}
		if s.Count == 0 || n > s.Max {
			s.Max = n
		}
		s.Count++
		s.Sum += n
	})
	if err != nil {
		return Summary{}, fmt.Errorf("analyze.Aggregate: %w", err)
	}
	s.Malformed = malformed
	if s.Count > 0 {
		s.Mean = s.Sum / float64(s.Count)
	}
	return s, nil
}

// CategoryStats counts events per category.
type CategoryStats struct {
	Events    int
	Errors    int // records at ERROR or above
	Sessions  int // distinct session ids seen
	Malformed int
}

// Stats scans every category concurrently and returns per-category counts
// within the time range.
func (a *Analyzer) Stats(ctx context.Context, tr TimeRange) (map[event.Category]CategoryStats, error) {
	var mu sync.Mutex
	out := make(map[event.Category]CategoryStats, len(event.Categories()))

	g, ctx := errgroup.WithContext(ctx)
	for _, cat := range event.Categories() {
		g.Go(func() error {
			var cs CategoryStats
			sessions := make(map[string]struct{})
			malformed, err := a.scanCategory(ctx, cat, tr, func(e event.Event) {
				cs.Events++
				if e.Level >= event.LevelError {
					cs.Errors++
				}
				if e.SessionID != "" {
					sessions[e.SessionID] = struct{}{}
				}
			})
			if err != nil {
				return err
			}
			cs.Sessions = len(sessions)
			cs.Malformed = malformed

			mu.Lock()
			out[cat] = cs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze.Stats: %w", err)
	}
	return out, nil
}

// scanCategory streams every decodable event in the category's dated files, in
// file-date then encounter order. A missing category directory is an empty
// result, not an error. Returns the count of skipped malformed lines.
func (a *Analyzer) scanCategory(ctx context.Context, cat event.Category, tr TimeRange, fn func(event.Event)) (int, error) {
	dir := filepath.Join(a.root, cat.Dir())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("listing %s: %w", dir, err)
	}

	prefix := cat.Dir() + "_"
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		if !fileInRange(name, prefix, tr) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names) // ISO dates sort chronologically

	malformed := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return malformed, err
		}
		m, err := scanFile(filepath.Join(dir, name), tr, fn)
		malformed += m
		if err != nil {
			return malformed, err
		}
	}
	return malformed, nil
}

// fileInRange prunes dated files that cannot intersect the range, judging by
// the date embedded in the name. A day of slack on each side covers the skew
// between local file dates and UTC record timestamps; unparseable names are
// kept and judged per line.
func fileInRange(name, prefix string, tr TimeRange) bool {
	day, err := time.Parse(dateLayout, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".log"))
	if err != nil {
		return true
	}
	if !tr.From.IsZero() && day.AddDate(0, 0, 2).Before(tr.From) {
		return false
	}
	if !tr.To.IsZero() && day.AddDate(0, 0, -1).After(tr.To) {
		return false
	}
	return true
}

func scanFile(path string, tr TimeRange, fn func(event.Event)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	malformed := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		e, decErr := event.Decode(line)
		if decErr != nil {
			// Partially written or corrupted trailing line; skip it.
			malformed++
			continue
		}
		if !tr.Contains(e.Timestamp) {
			continue
		}
		fn(e)
	}
	if err := scanner.Err(); err != nil {
		return malformed, fmt.Errorf("reading %s: %w", path, err)
	}
	return malformed, nil
}
