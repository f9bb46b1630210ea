package search

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/TFMV/pathfinder/internal/walk"
)

// Session is one run of a search. Its result stream is closed once its worker
// has exited. A completed session's last value is the terminal marker; a
// cancelled session's stream closes without one.
type Session struct {
	id       string
	query    string
	criteria Criteria
	roots    []string
	started  time.Time

	results chan Result
	done    chan struct{}
	cancel  context.CancelFunc
	state   atomic.Int32
	stats   walk.Stats
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string { return s.id }

// Query returns the raw query the session was started with.
func (s *Session) Query() string { return s.query }

// Criteria returns the parsed query.
func (s *Session) Criteria() Criteria { return s.criteria }

// Roots returns the directories the session searches.
func (s *Session) Roots() []string { return append([]string(nil), s.roots...) }

// Results returns the session's result stream.
func (s *Session) Results() <-chan Result { return s.results }

// Done is closed when the session's worker has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state of the session.
func (s *Session) State() State { return State(s.state.Load()) }

// Stats returns traversal statistics so far.
func (s *Session) Stats() walk.Stats { return s.stats.Snapshot() }

// Wait blocks until the worker exits or ctx is done, and returns the state the
// session is in at that point.
func (s *Session) Wait(ctx context.Context) State {
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return s.State()
}

// run executes the worker and records the outcome. The state is stored before
// the stream is closed, so a consumer that sees the close also sees the final
// state.
func (s *Session) run(ctx context.Context, w *Worker, logger *zap.Logger, metrics *Metrics) {
	defer close(s.done)
	defer close(s.results)
	defer s.cancel()

	err := w.Run(ctx, s.results)

	state := StateCompleted
	if err != nil {
		state = StateCancelled
	}
	s.state.Store(int32(state))

	stats := s.stats.Snapshot()
	elapsed := time.Since(s.started)
	metrics.sessionFinished(state, stats, elapsed)
	logger.Info("search finished",
		zap.String("session", s.id),
		zap.Stringer("state", state),
		zap.Int64("files", stats.Files),
		zap.Int64("dirs", stats.Dirs),
		zap.Int64("skipped", stats.Errors),
		zap.Duration("elapsed", elapsed),
	)
}
