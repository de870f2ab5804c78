// Package fsource reads PZ files from the local filesystem, either as a fixed
// list of paths or by watching a directory.
package fsource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/couchcryptid/pz-stationxml/internal/domain"
)

// Files is a finite source over a list of paths.
// It implements pipeline.BatchExtractor and returns io.EOF when exhausted.
type Files struct {
	mu    sync.Mutex
	paths []string
}

// NewFiles expands args into a sorted, de-duplicated list of files. Each arg
// may be a file, a directory (its non-hidden regular files are used) or a
// glob. A glob that matches nothing is an error; a plain path that does not
// exist is kept so the failure is reported for that file.
func NewFiles(args []string) (*Files, error) {
	paths, err := Expand(args)
	if err != nil {
		return nil, err
	}
	return &Files{paths: paths}, nil
}

// Expand resolves args the way NewFiles does.
func Expand(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		switch {
		case isGlob(arg):
			matches, err := filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match %q", arg)
			}
			for _, m := range matches {
				if isRegular(m) {
					out = append(out, m)
				}
			}
		case isDir(arg):
			entries, err := os.ReadDir(arg)
			if err != nil {
				return nil, fmt.Errorf("read dir %s: %w", arg, err)
			}
			for _, e := range entries {
				if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
					out = append(out, filepath.Join(arg, e.Name()))
				}
			}
		default:
			out = append(out, arg)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// Len returns the number of files not yet extracted.
func (f *Files) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

// ExtractBatch reads the next batchSize files. Files that cannot be read are
// returned with RawPZ.Err set.
func (f *Files) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawPZ, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	n := min(batchSize, len(f.paths))
	next := f.paths[:n]
	f.paths = f.paths[n:]
	done := len(f.paths) == 0
	f.mu.Unlock()

	batch := make([]domain.RawPZ, 0, len(next))
	for _, p := range next {
		batch = append(batch, readRaw(p))
	}
	if done {
		return batch, io.EOF
	}
	return batch, nil
}

func readRaw(path string) domain.RawPZ {
	raw, err := domain.ReadFile(path)
	if err != nil {
		return domain.RawPZ{Name: filepath.Base(path), Err: err}
	}
	return raw
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
