package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/TFMV/pathfinder/internal/config"
	"github.com/TFMV/pathfinder/internal/search"
)

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Run a list of queries concurrently",
	Long: `Run one search per line of the given file (or standard input when the
file is omitted or "-"). Blank lines and lines starting with # are skipped.
Each query runs on its own search controller; up to --parallel run at once.
Results are printed grouped by query, in input order.

Examples:
  pathfinder batch queries.txt
  printf 'invoice ext:pdf\nsize:>1gb\n' | pathfinder batch --parallel 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("error opening query file: %w", err)
			}
			defer f.Close()
			in = f
		}
		return runBatch(cmd, in)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntP("parallel", "p", 4, "Number of queries to run at once")
	viper.BindPFlag(config.KeyParallel, batchCmd.Flags().Lookup("parallel"))
}

// batchResult is the outcome of one query of a batch.
type batchResult struct {
	Query   string          `json:"query" yaml:"query"`
	State   string          `json:"state" yaml:"state"`
	Results []search.Result `json:"results" yaml:"results"`
}

// readQueries returns the non-blank, non-comment lines of r.
func readQueries(r io.Reader) ([]string, error) {
	var queries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading queries: %w", err)
	}
	return queries, nil
}

func runBatch(cmd *cobra.Command, in io.Reader) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	queries, err := readQueries(in)
	if err != nil {
		return err
	}

	results, err := runQueries(cmd.Context(), queries, cfg.Parallel, searchOptions(cfg, logger, nil), logger)
	if err != nil {
		return err
	}

	out, err := newPrinter(cmd.OutOrStdout(), cfg.Format, cfg.Color)
	if err != nil {
		return err
	}
	for _, br := range results {
		if cfg.Format != "text" {
			if err := out.encode(br); err != nil {
				return err
			}
			continue
		}
		if err := out.heading(fmt.Sprintf("# %s (%s, %d %s)", br.Query, br.State, len(br.Results), plural(len(br.Results), "result", "results"))); err != nil {
			return err
		}
		for _, r := range br.Results {
			if err := out.print(r); err != nil {
				return err
			}
		}
	}
	return out.Close()
}

// runQueries runs every query on its own controller using a bounded pool and
// returns the outcomes in query order. parallel must be at least 1; ants
// treats a non-positive size as an unbounded pool.
func runQueries(ctx context.Context, queries []string, parallel int, opts search.Options, logger *zap.Logger) ([]batchResult, error) {
	if parallel < 1 {
		return nil, fmt.Errorf("invalid parallel: %d must be at least 1", parallel)
	}
	results := make([]batchResult, len(queries))

	pool, err := ants.NewPool(parallel)
	if err != nil {
		return nil, fmt.Errorf("error creating worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, q := range queries {
		i, q := i, q
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = runQuery(ctx, q, opts)
		})
		if err != nil {
			wg.Done()
			logger.Warn("query not scheduled", zap.String("query", q), zap.Error(err))
			results[i] = batchResult{Query: q, State: search.StateIdle.String()}
		}
	}
	wg.Wait()
	return results, nil
}

func runQuery(ctx context.Context, query string, opts search.Options) batchResult {
	ctrl := search.NewController(opts)
	defer ctrl.Stop()

	br := batchResult{Query: query, Results: []search.Result{}}
	s := ctrl.Search(ctx, query)
	if s == nil {
		br.State = search.StateIdle.String()
		return br
	}
	for r := range s.Results() {
		if !r.IsTerminal() {
			br.Results = append(br.Results, r)
		}
	}
	br.State = s.State().String()
	return br
}
