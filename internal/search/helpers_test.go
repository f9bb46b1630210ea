package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// makeTree creates files (relative path -> size in bytes) below a temporary
// directory and returns its path. Paths ending in a slash create directories.
func makeTree(t *testing.T, files map[string]int) string {
	t.Helper()
	root := t.TempDir()
	for rel, size := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	}
	return root
}

// collect drains a result stream until it is closed or the timeout expires.
func collect(t *testing.T, results <-chan Result, timeout time.Duration) []Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var out []Result
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return out
			}
			out = append(out, r)
		case <-ctx.Done():
			t.Fatalf("result stream not closed within %s (got %d results)", timeout, len(out))
			return out
		}
	}
}

func paths(results []Result, kind Kind) []string {
	var out []string
	for _, r := range results {
		if r.Kind == kind {
			out = append(out, r.Path)
		}
	}
	return out
}
