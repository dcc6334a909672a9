package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/sundog-ai/chronicle/internal/event"
	"github.com/sundog-ai/chronicle/internal/rotate"
)

var followCategory string

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Live-tail the current day's file for one category",
	Long: `Follow watches a category directory and prints event lines as writers
append them, switching files automatically at the date boundary.

Example:
  chronicle follow --category tool`,
	RunE: runFollow,
}

func init() {
	followCmd.Flags().StringVarP(&followCategory, "category", "c", "", "Event category (required)")
	_ = followCmd.MarkFlagRequired("category")
}

// tailer tracks the read offset into the file currently being followed.
type tailer struct {
	path   string
	offset int64
	out    io.Writer
}

// drain prints any bytes appended since the last call. A missing file is not
// an error; the writer may not have logged anything today yet.
func (t *tailer) drain() error {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		// Advance past the line and its newline regardless of content.
		t.offset += int64(len(line)) + 1
		if len(line) == 0 {
			continue
		}
		fmt.Fprintln(t.out, string(line))
	}
	return scanner.Err()
}

func runFollow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := event.ParseCategory(followCategory)
	if err != nil {
		return err
	}

	dir := filepath.Join(cfg.LogDir, cat.Dir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("follow: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: today's file may not exist
	// yet, and tomorrow's is a different path.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("follow: watching %s: %w", dir, err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	t := &tailer{path: rotate.Path(cfg.LogDir, cat, time.Now()), out: cmd.OutOrStdout()}

	// Start from the current end of file; follow shows new events only.
	if info, statErr := os.Stat(t.path); statErr == nil {
		t.offset = info.Size()
	}
	fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("following "+t.path))

	// Ticker covers missed fsnotify events and the midnight rollover on an
	// otherwise idle directory.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		// Rotation check: a new day means a new file, read from its start.
		if current := rotate.Path(cfg.LogDir, cat, time.Now()); current != t.path {
			t.path = current
			t.offset = 0
			fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("following "+t.path))
		}

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != t.path {
				continue
			}
			if err := t.drain(); err != nil && ctx.Err() == nil {
				return fmt.Errorf("follow: %w", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), errStyle.Render("watch error: "+err.Error()))
		case <-ticker.C:
			if err := t.drain(); err != nil && ctx.Err() == nil {
				return fmt.Errorf("follow: %w", err)
			}
		}
	}
}
