package search

import (
	"context"

	"github.com/TFMV/pathfinder/internal/walk"
)

// Worker walks a set of roots and streams the entries that match its criteria.
type Worker struct {
	Criteria Criteria
	Roots    []string
	Walk     walk.Options
	Matcher  Matcher
	Metrics  *Metrics
}

// Run walks the roots in order, sending a file or folder result for each
// matching entry and finally the terminal marker. Directories are descended
// whether or not they matched.
//
// When ctx is done Run stops at the next entry and returns the context error
// without sending the terminal marker. Sends also select on ctx, so a consumer
// that stops draining sink cannot keep a cancelled worker alive.
func (w *Worker) Run(ctx context.Context, sink chan<- Result) error {
	visit := func(e walk.Entry) error {
		var r Result
		if e.Dir {
			if !w.Matcher.MatchFolder(e.Name, w.Criteria) {
				return nil
			}
			r = Result{Kind: KindFolder, Name: e.Name, Path: e.Path}
		} else {
			if !w.Matcher.Match(e.Name, e.Path, w.Criteria) {
				return nil
			}
			r = Result{Kind: KindFile, Name: e.Name, Path: e.Path}
		}
		if err := send(ctx, sink, r); err != nil {
			return err
		}
		w.Metrics.resultSent(r.Kind)
		return nil
	}

	if err := walk.Roots(ctx, w.Roots, visit, w.Walk); err != nil {
		return err
	}
	return send(ctx, sink, doneMarker)
}

func send(ctx context.Context, sink chan<- Result, r Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case sink <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
