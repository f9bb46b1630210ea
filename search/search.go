// Package search finds files and folders by name, extension and size.
//
// A query is a list of space-separated terms plus optional ext: and size:
// filters. Every term must appear in an entry's name, case-insensitively.
// Extension and size filters apply to files only; when either is given no
// folders are reported.
//
// A Controller runs at most one search at a time and streams its results:
//
//	ctrl := search.NewController(search.Options{Roots: []string{"/srv/data"}})
//	defer ctrl.Stop()
//
//	s := ctrl.Search(ctx, "report ext:pdf size:>1mb")
//	for r := range s.Results() {
//		if r.IsTerminal() {
//			break
//		}
//		fmt.Println(r.Kind, r.Path)
//	}
package search

import (
	internal "github.com/TFMV/pathfinder/internal/search"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Re-export the types from the internal package
type (
	// Criteria is a parsed query.
	Criteria = internal.Criteria

	// Result is one item of a session's result stream.
	Result = internal.Result

	// Kind tells files, folders and the terminal marker apart.
	Kind = internal.Kind

	// State is the lifecycle state of a session.
	State = internal.State

	// Session is a single run of the traversal worker.
	Session = internal.Session

	// Controller owns the lifecycle of at most one running session.
	Controller = internal.Controller

	// Options configures a Controller.
	Options = internal.Options

	// Matcher evaluates entries against criteria.
	Matcher = internal.Matcher

	// StatFunc reports the size of a file.
	StatFunc = internal.StatFunc

	// Worker walks roots and streams matching entries.
	Worker = internal.Worker

	// Metrics records engine activity as Prometheus collectors.
	Metrics = internal.Metrics
)

// Re-export the constants
const (
	KindFile   = internal.KindFile
	KindFolder = internal.KindFolder
	KindDone   = internal.KindDone

	StateIdle      = internal.StateIdle
	StateRunning   = internal.StateRunning
	StateCompleted = internal.StateCompleted
	StateCancelled = internal.StateCancelled

	DefaultJoinTimeout = internal.DefaultJoinTimeout
	DefaultBufferSize  = internal.DefaultBufferSize
)

// NewController creates a Controller.
func NewController(opts Options) *Controller {
	return internal.NewController(opts)
}

// ParseQuery parses a raw query into criteria. It never fails.
func ParseQuery(raw string) Criteria {
	return internal.ParseQuery(raw)
}

// Match reports whether a file satisfies c, reading its size from disk when c
// has a size bound.
func Match(name, path string, c Criteria) bool {
	return internal.Match(name, path, c)
}

// NewMetrics creates the engine collectors and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return internal.NewMetrics(reg)
}

// DefaultRoots returns the roots used when none are configured.
func DefaultRoots(logger *zap.Logger) []string {
	return internal.DefaultRoots(logger)
}
