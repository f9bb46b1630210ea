package walk

import (
	"os"
	"path/filepath"
)

// pointsToDir reports whether a symlink resolves to a directory. Broken links
// are reported as files.
func pointsToDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// followSymlink resolves a symlink for a following walk. It reports whether the
// target is a directory and whether descending into it would revisit a
// directory already seen in this walk.
func (w *walker) followSymlink(path string) (isDir, cyclic bool) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false, false
	}
	return true, w.seen(path)
}

// seen records the real path of a directory and reports whether it had been
// recorded before.
func (w *walker) seen(path string) bool {
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	if _, ok := w.visited[realPath]; ok {
		return true
	}
	w.visited[realPath] = struct{}{}
	return false
}
