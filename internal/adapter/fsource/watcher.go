package fsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/pz-stationxml/internal/domain"
	"github.com/fsnotify/fsnotify"
)

var errWatcherClosed = errors.New("watcher closed")

// Watcher emits PZ files created or rewritten in a directory.
// It implements pipeline.BatchExtractor and never returns io.EOF.
type Watcher struct {
	dir           string
	pattern       string
	flushInterval time.Duration
	logger        *slog.Logger
	fs            *fsnotify.Watcher

	// backlog holds files present when the watcher started.
	backlog []string
}

// NewWatcher starts watching dir for file names matching pattern (a
// filepath.Match pattern). Matching files already in dir are emitted first.
func NewWatcher(dir, pattern string, flushInterval time.Duration, logger *slog.Logger) (*Watcher, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad watch pattern %q: %w", pattern, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close() //nolint:errcheck,gosec // already failing
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:           dir,
		pattern:       pattern,
		flushInterval: flushInterval,
		logger:        logger,
		fs:            fw,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fw.Close() //nolint:errcheck,gosec // already failing
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.Type().IsRegular() && w.matches(path) {
			w.backlog = append(w.backlog, path)
		}
	}
	logger.Info("watching directory", "dir", dir, "pattern", pattern, "backlog", len(w.backlog))
	return w, nil
}

// ExtractBatch blocks until at least one matching file appears, then collects
// further changes until the batch is full or the flush interval passes. A file
// changed several times within one batch is read once.
func (w *Watcher) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawPZ, error) {
	var names []string
	add := func(path string) {
		if !slices.Contains(names, path) {
			names = append(names, path)
		}
	}

	for len(w.backlog) > 0 && len(names) < batchSize {
		add(w.backlog[0])
		w.backlog = w.backlog[1:]
	}

	if len(names) == 0 {
		path, err := w.next(ctx)
		if err != nil {
			return nil, err
		}
		add(path)
	}

	flushCtx, cancel := context.WithTimeout(ctx, w.flushInterval)
	defer cancel()
	for len(names) < batchSize {
		path, err := w.next(flushCtx)
		if err != nil {
			break
		}
		add(path)
	}

	batch := make([]domain.RawPZ, 0, len(names))
	for _, p := range names {
		batch = append(batch, readRaw(p))
	}
	return batch, nil
}

func (w *Watcher) Close() error {
	return w.fs.Close()
}

// next waits for the next relevant event.
func (w *Watcher) next(ctx context.Context) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return "", errWatcherClosed
			}
			if path, ok := w.handleEvent(ev); ok {
				return path, nil
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return "", errWatcherClosed
			}
			w.logger.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

// handleEvent reports whether ev is a create or write of a matching regular file.
func (w *Watcher) handleEvent(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if !w.matches(ev.Name) || !isRegular(ev.Name) {
		return "", false
	}
	return ev.Name, true
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ok, _ := filepath.Match(w.pattern, base)
	return ok
}
