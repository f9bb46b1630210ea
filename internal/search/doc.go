// Package search implements the file search engine: query parsing, entry
// matching, the traversal worker and the session controller that owns it.
//
// A Controller runs at most one session at a time. Starting a search cancels
// the previous session and waits a bounded time for its worker to exit before
// the new worker starts, so each session's result stream only ever carries
// that session's results.
//
//	ctrl := search.NewController(search.Options{Roots: []string{"/srv/data"}})
//	s := ctrl.Search(ctx, "report ext:pdf size:>1mb")
//	for r := range s.Results() {
//		if r.IsTerminal() {
//			break
//		}
//		fmt.Println(r.Kind, r.Path)
//	}
package search
