package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerEndToEnd(t *testing.T) {
	root := makeTree(t, map[string]int{
		"a.txt":     1,
		"sub/b.txt": 1,
		"sub/c.jpg": 1,
	})
	ctrl := NewController(Options{Roots: []string{root}})

	s := ctrl.Search(context.Background(), "b")
	require.NotNil(t, s)
	results := collect(t, s.Results(), 5*time.Second)

	assert.Equal(t, []string{filepath.Join(root, "sub", "b.txt")}, paths(results, KindFile))
	require.NotEmpty(t, results)
	assert.True(t, results[len(results)-1].IsTerminal())
	assert.Equal(t, StateCompleted, s.State())
}

func TestControllerNoMatchYieldsOnlyTerminalMarker(t *testing.T) {
	root := makeTree(t, map[string]int{"a.txt": 1, "sub/b.txt": 1})
	ctrl := NewController(Options{Roots: []string{root}})

	s := ctrl.Search(context.Background(), "zebra")
	require.NotNil(t, s)

	assert.Equal(t, []Result{{Kind: KindDone}}, collect(t, s.Results(), 5*time.Second))
}

func TestControllerExactlyOneTerminalMarker(t *testing.T) {
	root := makeTree(t, map[string]int{"x/1.txt": 1, "x/2.txt": 1, "y/3.txt": 1})
	ctrl := NewController(Options{Roots: []string{root}})

	s := ctrl.Search(context.Background(), "txt")
	results := collect(t, s.Results(), 5*time.Second)

	var markers int
	for _, r := range results {
		if r.IsTerminal() {
			markers++
		}
	}
	assert.Equal(t, 1, markers)
	assert.True(t, results[len(results)-1].IsTerminal())
}

func TestControllerBlankQueryIsNoop(t *testing.T) {
	root := makeTree(t, map[string]int{"a.txt": 1})
	ctrl := NewController(Options{Roots: []string{root}})
	t.Cleanup(ctrl.Stop)

	assert.Nil(t, ctrl.Search(context.Background(), "   \t "))
	assert.Equal(t, StateIdle, ctrl.State())

	first := ctrl.Search(context.Background(), "a")
	require.NotNil(t, first)
	assert.Nil(t, ctrl.Search(context.Background(), ""))
	assert.Same(t, first, ctrl.Active())
}

func TestControllerStopIsIdempotent(t *testing.T) {
	ctrl := NewController(Options{Roots: []string{t.TempDir()}})

	ctrl.Stop()
	ctrl.Stop()
	assert.Equal(t, StateIdle, ctrl.State())

	s := ctrl.Search(context.Background(), "anything")
	require.NotNil(t, s)
	ctrl.Stop()
	ctrl.Stop()

	assert.Nil(t, ctrl.Active())
	assert.Contains(t, []State{StateCompleted, StateCancelled}, s.State())
}

func TestControllerStopCancelsSession(t *testing.T) {
	files := make(map[string]int)
	for i := 0; i < 50; i++ {
		files[fmt.Sprintf("dir%02d/file%02d.txt", i, i)] = 1
	}
	root := makeTree(t, files)
	ctrl := NewController(Options{Roots: []string{root}, BufferSize: 1})

	s := ctrl.Search(context.Background(), "file")
	require.NotNil(t, s)
	// The stream is not drained, so the worker is parked on a send.
	ctrl.Stop()

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit after stop")
	}
	assert.Equal(t, StateCancelled, s.State())

	for _, r := range collect(t, s.Results(), time.Second) {
		assert.False(t, r.IsTerminal(), "cancelled stream must not carry the terminal marker")
	}
}

func TestControllerNewSearchSupersedesOld(t *testing.T) {
	oldFiles := make(map[string]int)
	for i := 0; i < 40; i++ {
		oldFiles[fmt.Sprintf("old%02d/stale-%02d.log", i, i)] = 1
	}
	oldRoot := makeTree(t, oldFiles)
	newRoot := makeTree(t, map[string]int{"fresh.log": 1, "nested/fresh-2.log": 1})
	ctrl := NewController(Options{BufferSize: 1})

	old := ctrl.Search(context.Background(), "log", oldRoot)
	require.NotNil(t, old)
	<-old.Results() // the old worker is running

	fresh := ctrl.Search(context.Background(), "log", newRoot)
	require.NotNil(t, fresh)
	assert.NotEqual(t, old.ID(), fresh.ID())

	select {
	case <-old.Done():
	default:
		t.Fatal("old worker still running after a new search started")
	}
	assert.Equal(t, StateCancelled, old.State())

	results := collect(t, fresh.Results(), 5*time.Second)
	for _, r := range results {
		if r.IsTerminal() {
			continue
		}
		assert.True(t, strings.HasPrefix(r.Path, newRoot), "unexpected result %s", r.Path)
	}
	assert.ElementsMatch(t, []string{
		filepath.Join(newRoot, "fresh.log"),
		filepath.Join(newRoot, "nested", "fresh-2.log"),
	}, paths(results, KindFile))
	assert.Equal(t, StateCompleted, fresh.State())
}

func TestControllerBoundedJoinLeavesSlowWorker(t *testing.T) {
	root := makeTree(t, map[string]int{"a.bin": 10, "b.bin": 10})

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	metrics := NewMetrics(nil)
	ctrl := NewController(Options{
		Roots:       []string{root},
		JoinTimeout: 20 * time.Millisecond,
		Metrics:     metrics,
		Matcher: Matcher{Stat: func(path string) (os.FileInfo, error) {
			once.Do(func() { close(entered) })
			<-release
			return os.Stat(path)
		}},
	})

	slow := ctrl.Search(context.Background(), "size:>1")
	<-entered

	start := time.Now()
	ctrl.Stop()
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, StateRunning, slow.State(), "worker is still inside a stat call")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.joinTimeouts))

	// The controller is usable while the old worker lingers.
	other := makeTree(t, map[string]int{"readme.md": 1})
	s := ctrl.Search(context.Background(), "readme", other)
	assert.Equal(t, []Result{
		{Kind: KindFile, Name: "readme.md", Path: filepath.Join(other, "readme.md")},
		{Kind: KindDone},
	}, collect(t, s.Results(), 5*time.Second))

	close(release)
	assert.Equal(t, StateCancelled, slow.Wait(context.Background()))
}

func TestControllerParentContextCancels(t *testing.T) {
	root := makeTree(t, map[string]int{"a/1.txt": 1, "b/2.txt": 1, "c/3.txt": 1})
	ctrl := NewController(Options{Roots: []string{root}, BufferSize: 1})
	ctx, cancel := context.WithCancel(context.Background())

	s := ctrl.Search(ctx, "txt")
	require.NotNil(t, s)
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	assert.Equal(t, StateCancelled, s.Wait(waitCtx))
}

func TestControllerExplicitRootsOverrideDefaults(t *testing.T) {
	defaults := makeTree(t, map[string]int{"todo.txt": 1})
	override := makeTree(t, map[string]int{"todo.md": 1})
	ctrl := NewController(Options{Roots: []string{defaults}})

	s := ctrl.Search(context.Background(), "todo", override)
	assert.Equal(t, []string{override}, s.Roots())
	assert.Equal(t, []string{filepath.Join(override, "todo.md")}, paths(collect(t, s.Results(), 5*time.Second), KindFile))

	ctrl.SetRoots([]string{override, defaults})
	assert.Equal(t, []string{override, defaults}, ctrl.Roots())
}

func TestControllerRelativeRootYieldsAbsolutePaths(t *testing.T) {
	root := makeTree(t, map[string]int{"a.txt": 1, "sub/b.txt": 1, "sub/c.jpg": 1})
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	ctrl := NewController(Options{Roots: []string{"."}})

	s := ctrl.Search(context.Background(), "b")
	require.NotNil(t, s)
	results := collect(t, s.Results(), 5*time.Second)

	require.NotEmpty(t, results)
	for _, r := range results {
		if r.IsTerminal() {
			continue
		}
		assert.True(t, filepath.IsAbs(r.Path), "relative result path %q", r.Path)
	}
	assert.Len(t, paths(results, KindFile), 1)
	assert.True(t, results[len(results)-1].IsTerminal())
}

func TestControllerDefaultsToHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	assert.Equal(t, []string{home}, NewController(Options{}).Roots())
}

func TestControllerIndependentInstances(t *testing.T) {
	rootA := makeTree(t, map[string]int{"alpha.txt": 1})
	rootB := makeTree(t, map[string]int{"beta.txt": 1})
	a := NewController(Options{Roots: []string{rootA}})
	b := NewController(Options{Roots: []string{rootB}})

	sa := a.Search(context.Background(), "txt")
	sb := b.Search(context.Background(), "txt")

	assert.Equal(t, []string{filepath.Join(rootA, "alpha.txt")}, paths(collect(t, sa.Results(), 5*time.Second), KindFile))
	assert.Equal(t, []string{filepath.Join(rootB, "beta.txt")}, paths(collect(t, sb.Results(), 5*time.Second), KindFile))
}
