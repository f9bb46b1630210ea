package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TFMV/pathfinder/internal/search"
)

func newTestRepl(t *testing.T, root string) (*repl, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	p, err := newPrinter(&out, "text", "never")
	require.NoError(t, err)
	ctrl := search.NewController(testOptions(root))
	t.Cleanup(ctrl.Stop)
	return &repl{ctrl: ctrl, out: p, errOut: &errOut, logger: zap.NewNop()}, &out, &errOut
}

func TestReplRunsQueryToCompletionAtEOF(t *testing.T) {
	root := testTree(t)
	r, out, errOut := newTestRepl(t, root)

	require.NoError(t, r.run(context.Background(), strings.NewReader("ext:pdf\n")))

	assert.Equal(t, "file    "+filepath.Join(root, "docs", "report.pdf")+"\n", out.String())
	assert.Equal(t, "Search completed: 1 result.\n", errOut.String())
}

func TestReplIgnoresBlankLines(t *testing.T) {
	root := testTree(t)
	r, out, errOut := newTestRepl(t, root)

	require.NoError(t, r.run(context.Background(), strings.NewReader("\n   \n")))

	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
	assert.Equal(t, search.StateIdle, r.ctrl.State())
}

func TestReplQuitStopsSearch(t *testing.T) {
	root := testTree(t)
	r, _, errOut := newTestRepl(t, root)

	require.NoError(t, r.run(context.Background(), strings.NewReader("txt\n:quit\nnotes\n")))

	// The search may finish before :quit is read; either way exactly one
	// summary is printed and the query after :quit never runs.
	summaries := strings.Count(errOut.String(), "Search ")
	assert.Equal(t, 1, summaries)
	assert.Nil(t, r.ctrl.Active())
}

func TestReplNewQuerySupersedes(t *testing.T) {
	root := testTree(t)
	r, out, errOut := newTestRepl(t, root)

	require.NoError(t, r.run(context.Background(), strings.NewReader("txt\n:stop\nreports\n")))

	assert.Equal(t, 2, strings.Count(errOut.String(), "Search "))
	assert.True(t, strings.HasSuffix(out.String(), "folder  "+filepath.Join(root, "docs", "reports")+"\n"))
	assert.True(t, strings.HasSuffix(errOut.String(), "Search completed: 1 result.\n"))
}

func TestReplStopsOnContextDone(t *testing.T) {
	root := testTree(t)
	r, _, _ := newTestRepl(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.run(ctx, strings.NewReader("txt\n")))
	assert.Nil(t, r.cur)
}
