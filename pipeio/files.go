package pipeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// ErrBadPattern is returned by FindFiles for a malformed glob.
var ErrBadPattern = doublestar.ErrBadPattern

var errNotDir = errors.New("not a directory")

func logger() *zap.Logger {
	return zap.L().Named("pipeio")
}

// EnsureDir creates path and any missing parents. An existing directory is
// left alone.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			err = pe.Err
		}
		return &IOError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// FindFiles returns the files below directory whose slash-separated path
// relative to directory matches pattern. Patterns support *, **, ?,
// [classes] and {alternatives}. Regular files and symlinks to regular files
// match; directories never do. Subdirectories that cannot be read are
// skipped. The result is sorted and joined onto directory; it is empty, not
// nil, when nothing matches.
func FindFiles(pattern, directory string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}
	info, err := os.Stat(directory)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, &NotFoundError{Path: directory}
	case err != nil:
		return nil, &IOError{Op: "stat", Path: directory, Err: err}
	case !info.IsDir():
		return nil, &IOError{Op: "find", Path: directory, Err: errNotDir}
	}

	// Without ** a pattern with n slashes only matches n directories deep.
	maxDepth := -1
	if !strings.Contains(pattern, "**") {
		maxDepth = strings.Count(pattern, "/")
	}

	var (
		mu      sync.Mutex
		matches = []string{}
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, directory, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if filepath.Clean(p) == filepath.Clean(directory) {
				return err
			}
			return nil
		}
		rel, err := filepath.Rel(directory, p)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if maxDepth >= 0 && strings.Count(rel, "/") >= maxDepth {
				return fastwalk.SkipDir
			}
			return nil
		}
		if !isFile(p, d) {
			return nil
		}
		if ok, _ := doublestar.Match(pattern, rel); !ok {
			return nil
		}
		mu.Lock()
		matches = append(matches, filepath.Join(directory, filepath.FromSlash(rel)))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, &IOError{Op: "walk", Path: directory, Err: err}
	}
	slices.Sort(matches)

	logger().Debug("found files to import", zap.Int("count", len(matches)), zap.String("dir", directory))
	return matches, nil
}

// isFile reports whether d is a regular file or a symlink to one.
func isFile(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
