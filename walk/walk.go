// Package walk provides cancellable, deterministic filesystem traversal.
//
// Entries are visited in sorted order and unreadable subtrees are skipped,
// so a walk never fails part way through a tree. The only error a walk
// returns is the context error when it was cancelled.
package walk

import (
	"context"

	internal "github.com/TFMV/pathfinder/internal/walk"
	"go.uber.org/zap"
)

// Re-export the types from the internal package
type (
	// Entry describes a filesystem entry found below a walk root.
	Entry = internal.Entry

	// VisitFunc is called once per entry.
	VisitFunc = internal.VisitFunc

	// Stats holds traversal statistics that are updated atomically during the walk.
	Stats = internal.Stats

	// Options configures a walk.
	Options = internal.Options

	// SymlinkHandling defines how symbolic links are processed.
	SymlinkHandling = internal.SymlinkHandling

	// LogLevel defines the verbosity of logging.
	LogLevel = internal.LogLevel
)

// Re-export the constants
const (
	// Symlink handling modes
	SymlinkReport = internal.SymlinkReport
	SymlinkIgnore = internal.SymlinkIgnore
	SymlinkFollow = internal.SymlinkFollow

	// Log levels
	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug
)

// Tree walks the directory tree below root, calling fn for every entry except
// root itself.
func Tree(ctx context.Context, root string, fn VisitFunc, opts Options) error {
	return internal.Tree(ctx, root, fn, opts)
}

// Roots walks each root in order.
func Roots(ctx context.Context, roots []string, fn VisitFunc, opts Options) error {
	return internal.Roots(ctx, roots, fn, opts)
}

// ParseSymlinkHandling maps a configuration value to a SymlinkHandling.
func ParseSymlinkHandling(s string) (SymlinkHandling, error) {
	return internal.ParseSymlinkHandling(s)
}

// NewLogger creates a logger that writes to standard error at the given level.
func NewLogger(level LogLevel) *zap.Logger {
	return internal.NewLogger(level)
}
