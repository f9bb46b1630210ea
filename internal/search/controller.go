package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TFMV/pathfinder/internal/walk"
)

const (
	// DefaultJoinTimeout bounds how long a stop waits for a worker to exit.
	DefaultJoinTimeout = time.Second
	// DefaultBufferSize is the capacity of a session's result channel.
	DefaultBufferSize = 256
)

// Options configures a Controller.
type Options struct {
	Roots       []string      // Default roots; the user's home directory when empty
	JoinTimeout time.Duration // Bound on waiting for a stopped worker
	BufferSize  int           // Result channel capacity
	Walk        walk.Options
	Matcher     Matcher
	Logger      *zap.Logger
	Metrics     *Metrics
}

// Controller owns the lifecycle of at most one running search session.
//
// Stopping is cooperative. A stop cancels the session and waits up to
// JoinTimeout for its worker to exit; a worker still running after that is
// left to exit on its own, which it does at its next cancellation check. Its
// stream is never shared with a later session.
type Controller struct {
	mu     sync.Mutex
	opts   Options
	roots  []string
	active *Session
}

// NewController creates a Controller.
func NewController(opts Options) *Controller {
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = DefaultJoinTimeout
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	c := &Controller{opts: opts}
	c.roots = c.resolveRoots(opts.Roots)
	return c
}

// Search stops any running session and starts a new one for raw. Explicit
// roots override the controller's roots for this session only. A blank query
// is a no-op: nothing is stopped or started and Search returns nil.
//
// The session is bound to ctx; cancelling ctx cancels the session.
func (c *Controller) Search(ctx context.Context, raw string, roots ...string) *Session {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	if len(roots) == 0 {
		roots = c.roots
	}
	roots = append([]string(nil), roots...)

	sessionCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:       uuid.NewString(),
		query:    raw,
		criteria: ParseQuery(raw),
		roots:    roots,
		started:  time.Now(),
		results:  make(chan Result, c.opts.BufferSize),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	s.state.Store(int32(StateRunning))

	walkOpts := c.opts.Walk
	walkOpts.Stats = &s.stats
	walkOpts.Logger = c.opts.Logger.With(zap.String("session", s.id))

	w := &Worker{
		Criteria: s.criteria,
		Roots:    roots,
		Walk:     walkOpts,
		Matcher:  c.opts.Matcher,
		Metrics:  c.opts.Metrics,
	}

	c.active = s
	c.opts.Metrics.sessionStarted()
	c.opts.Logger.Info("search started",
		zap.String("session", s.id),
		zap.String("query", s.criteria.String()),
		zap.Strings("roots", roots),
	)

	go s.run(sessionCtx, w, c.opts.Logger, c.opts.Metrics)
	return s
}

// Stop cancels the running session, if any, and waits a bounded time for its
// worker to exit. Calling Stop with no running session does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Active returns the current session, or nil when the controller is idle.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// State returns the state of the current session, or StateIdle.
func (c *Controller) State() State {
	if s := c.Active(); s != nil {
		return s.State()
	}
	return StateIdle
}

// Roots returns the roots used when Search is given none.
func (c *Controller) Roots() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.roots...)
}

// SetRoots replaces the default roots for later searches. A running session
// keeps the roots it started with.
func (c *Controller) SetRoots(roots []string) {
	resolved := c.resolveRoots(roots)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots = resolved
}

func (c *Controller) stopLocked() {
	s := c.active
	if s == nil {
		return
	}
	c.active = nil
	s.cancel()

	timer := time.NewTimer(c.opts.JoinTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		c.opts.Metrics.joinTimedOut()
		c.opts.Logger.Warn("worker did not stop in time, continuing without it",
			zap.String("session", s.id),
			zap.Duration("timeout", c.opts.JoinTimeout),
		)
	}
}

func (c *Controller) resolveRoots(roots []string) []string {
	if len(roots) > 0 {
		return append([]string(nil), roots...)
	}
	return DefaultRoots(c.opts.Logger)
}

// DefaultRoots returns the user's home directory, or the working directory
// when the home directory cannot be determined.
func DefaultRoots(logger *zap.Logger) []string {
	home, err := os.UserHomeDir()
	if err == nil {
		return []string{home}
	}
	if logger != nil {
		logger.Warn("home directory unavailable, searching working directory", zap.Error(err))
	}
	if wd, err := filepath.Abs("."); err == nil {
		return []string{wd}
	}
	return []string{"."}
}
