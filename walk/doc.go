// Basic usage
//
//	err := walk.Tree(ctx, "/srv/data", func(e walk.Entry) error {
//		if !e.Dir {
//			fmt.Println(e.Path)
//		}
//		return nil
//	}, walk.Options{})
//
// Skipping hidden entries and build directories
//
//	opts := walk.Options{
//		SkipHidden:  true,
//		ExcludeDirs: []string{"node_modules", "vendor"},
//	}
//
// Following symbolic links, with cycles skipped
//
//	opts := walk.Options{Symlinks: walk.SymlinkFollow}
//
// Collecting statistics
//
//	var stats walk.Stats
//	walk.Roots(ctx, roots, visit, walk.Options{Stats: &stats})
//	fmt.Println(stats.Snapshot().Files, "files")

package walk
