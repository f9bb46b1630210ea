// Package walk provides cancellable filesystem traversal for the search engine.
//
// Traversal is built on godirwalk. Entries are visited in sorted order, so a walk
// over an unchanged tree is deterministic. Errors opening or listing a directory
// never abort a walk: the subtree is skipped, counted and logged.
package walk

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
)

// --------------------------------------------------------------------------
// Core types
// --------------------------------------------------------------------------

// Entry describes a filesystem entry found below a walk root.
type Entry struct {
	Path    string // Full path of the entry
	Name    string // Base name of the entry
	Dir     bool   // Whether the entry is (or, for a reported symlink, points to) a directory
	Symlink bool   // Whether the entry is a symbolic link
}

// VisitFunc is called once per entry. Returning an error halts the walk when the
// walk context is done; any other error skips the entry (and its subtree).
type VisitFunc func(e Entry) error

// Stats holds traversal statistics that are updated atomically during the walk.
type Stats struct {
	Files   int64         // Number of non-directory entries visited
	Dirs    int64         // Number of directories visited
	Errors  int64         // Number of entries or subtrees skipped because of an error
	Elapsed time.Duration // Total time elapsed
}

// Snapshot returns a copy of s that is safe to read while the walk is running.
func (s *Stats) Snapshot() Stats {
	return Stats{
		Files:   atomic.LoadInt64(&s.Files),
		Dirs:    atomic.LoadInt64(&s.Dirs),
		Errors:  atomic.LoadInt64(&s.Errors),
		Elapsed: time.Duration(atomic.LoadInt64((*int64)(&s.Elapsed))),
	}
}

// --------------------------------------------------------------------------
// Configuration types
// --------------------------------------------------------------------------

// SymlinkHandling defines how symbolic links are processed.
type SymlinkHandling int

const (
	SymlinkReport SymlinkHandling = iota // Report links by their target type but don't follow
	SymlinkIgnore                        // Ignore symbolic links
	SymlinkFollow                        // Follow symbolic links, skipping cycles
)

// String returns the configuration name of the mode.
func (h SymlinkHandling) String() string {
	switch h {
	case SymlinkIgnore:
		return "ignore"
	case SymlinkFollow:
		return "follow"
	default:
		return "report"
	}
}

// ParseSymlinkHandling maps a configuration value to a SymlinkHandling.
func ParseSymlinkHandling(s string) (SymlinkHandling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "report":
		return SymlinkReport, nil
	case "ignore":
		return SymlinkIgnore, nil
	case "follow":
		return SymlinkFollow, nil
	}
	return SymlinkReport, errors.New("walk: unknown symlink mode " + s)
}

// Options configures a walk.
type Options struct {
	Symlinks    SymlinkHandling
	SkipHidden  bool     // Skip entries whose name starts with a dot
	ExcludeDirs []string // Glob patterns matched against directory base names
	Logger      *zap.Logger
	Stats       *Stats // Optional; updated in place when set
}

// --------------------------------------------------------------------------
// Primary API functions
// --------------------------------------------------------------------------

// Roots walks each root in order. A root that cannot be resolved or walked is
// skipped. The only error returned is the context error when ctx is done.
func Roots(ctx context.Context, roots []string, fn VisitFunc, opts Options) error {
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := Tree(ctx, root, fn, opts); err != nil {
			return err
		}
	}
	return nil
}

// Tree walks the directory tree below root, calling fn for every entry except
// root itself. A relative root is made absolute first, so entry paths are
// always absolute. Cancellation is checked before every entry, which includes
// every directory before its contents are read.
func Tree(ctx context.Context, root string, fn VisitFunc, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	stats := opts.Stats
	if stats == nil {
		stats = &Stats{}
	}
	start := time.Now()
	defer func() {
		atomic.AddInt64((*int64)(&stats.Elapsed), int64(time.Since(start)))
	}()

	abs, err := filepath.Abs(root)
	if err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		logger.Debug("skipping root", zap.String("root", root), zap.Error(err))
		return nil
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		logger.Debug("skipping root", zap.String("root", root), zap.Error(err))
		return nil
	}
	resolved = filepath.Clean(resolved)

	w := &walker{
		ctx:     ctx,
		root:    resolved,
		display: abs,
		fn:      fn,
		opts:    opts,
		logger:  logger,
		stats:   stats,
		visited: make(map[string]struct{}),
	}

	logger.Debug("starting walk", zap.String("root", root), zap.Stringer("symlinks", opts.Symlinks))

	err = godirwalk.Walk(resolved, &godirwalk.Options{
		Callback:            w.callback,
		ErrorCallback:       w.errorCallback,
		FollowSymbolicLinks: opts.Symlinks == SymlinkFollow,
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Debug("walk canceled", zap.String("root", root))
		return ctxErr
	}
	if err != nil && !errors.Is(err, filepath.SkipDir) && !errors.Is(err, godirwalk.SkipThis) {
		atomic.AddInt64(&stats.Errors, 1)
		logger.Debug("walk ended with error", zap.String("root", root), zap.Error(err))
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal helper types and functions
// --------------------------------------------------------------------------

// walker holds the per-walk state shared by the godirwalk callbacks. godirwalk
// invokes callbacks from a single goroutine, so no locking is needed.
type walker struct {
	ctx     context.Context
	root    string
	display string
	fn      VisitFunc
	opts    Options
	logger  *zap.Logger
	stats   *Stats
	visited map[string]struct{}
}

func (w *walker) callback(path string, de *godirwalk.Dirent) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	if path == w.root {
		if w.opts.Symlinks == SymlinkFollow {
			w.visited[w.root] = struct{}{}
		}
		return nil
	}

	name := de.Name()
	if w.opts.SkipHidden && strings.HasPrefix(name, ".") {
		if de.IsDir() {
			return godirwalk.SkipThis
		}
		return nil
	}

	entry := Entry{
		Path:    w.displayPath(path),
		Name:    name,
		Dir:     de.IsDir(),
		Symlink: de.IsSymlink(),
	}

	if entry.Symlink {
		switch w.opts.Symlinks {
		case SymlinkIgnore:
			return nil
		case SymlinkFollow:
			isDir, cyclic := w.followSymlink(path)
			if cyclic {
				return godirwalk.SkipThis
			}
			entry.Dir = isDir
		default:
			entry.Dir = pointsToDir(path)
		}
	} else if entry.Dir && w.opts.Symlinks == SymlinkFollow {
		if w.seen(path) {
			return godirwalk.SkipThis
		}
	}

	if entry.Dir {
		if excluded(name, w.opts.ExcludeDirs) {
			return godirwalk.SkipThis
		}
		atomic.AddInt64(&w.stats.Dirs, 1)
	} else {
		atomic.AddInt64(&w.stats.Files, 1)
	}

	return w.fn(entry)
}

func (w *walker) errorCallback(path string, err error) godirwalk.ErrorAction {
	if w.ctx.Err() != nil {
		return godirwalk.Halt
	}
	atomic.AddInt64(&w.stats.Errors, 1)
	w.logger.Debug("skipping entry", zap.String("path", w.displayPath(path)), zap.Error(err))
	return godirwalk.SkipNode
}

// displayPath maps a path below the resolved root back under the root as the
// caller spelled it.
func (w *walker) displayPath(path string) string {
	if w.root == w.display {
		return path
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.Join(w.display, rel)
}

// excluded reports whether a directory name matches one of the exclude patterns.
func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
