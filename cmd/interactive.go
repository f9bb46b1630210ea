package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/TFMV/pathfinder/internal/config"
	"github.com/TFMV/pathfinder/internal/search"
)

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i"},
	Short:   "Read queries from standard input, one search at a time",
	Long: `Read queries from standard input, one per line. Each query starts a new
search and stops the one before it; results of a stopped search are not
printed once the next search has started.

Commands:
  :stop           stop the running search
  :quit, :q       stop the running search and exit

At end of input the running search is allowed to finish. Changes to the
roots in the config file apply to the next search.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)

	interactiveCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	viper.BindPFlag(config.KeyMetricsAddr, interactiveCmd.Flags().Lookup("metrics-addr"))
}

// view prints one session's results in the background.
type view struct {
	session  *search.Session
	stop     chan struct{}
	done     chan struct{}
	n        int
	finished bool // the stream ended on its own and the summary was printed
}

// repl drives a controller from lines of input.
type repl struct {
	ctrl   *search.Controller
	out    *printer
	errOut io.Writer
	logger *zap.Logger
	cur    *view
}

func runInteractive(cmd *cobra.Command) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := search.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer shutdown()
	}

	out, err := newPrinter(cmd.OutOrStdout(), cfg.Format, cfg.Color)
	if err != nil {
		return err
	}
	defer out.Close()

	ctrl := search.NewController(searchOptions(cfg, logger, metrics))
	defer ctrl.Stop()

	config.Watch(viper.GetViper(), func(c config.Config, err error) {
		if err != nil {
			logger.Warn("ignoring invalid config change", zap.Error(err))
			return
		}
		ctrl.SetRoots(c.Roots)
		logger.Info("config reloaded", zap.Strings("roots", ctrl.Roots()))
	})

	r := &repl{ctrl: ctrl, out: out, errOut: cmd.ErrOrStderr(), logger: logger}
	return r.run(ctx, cmd.InOrStdin())
}

// run handles input lines until :quit, end of input or ctx is done.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			r.stop()
			return nil
		case line, ok := <-lines:
			if !ok {
				r.wait(ctx)
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("error reading input: %w", err)
					}
				default:
				}
				return nil
			}
			switch line = strings.TrimSpace(line); line {
			case "":
			case ":quit", ":q":
				r.stop()
				return nil
			case ":stop":
				r.stop()
			default:
				r.search(ctx, line)
			}
		}
	}
}

// search stops the current session and its output, then starts a new one.
func (r *repl) search(ctx context.Context, query string) {
	r.stop()
	s := r.ctrl.Search(ctx, query)
	if s == nil {
		return
	}
	r.cur = r.watch(s)
}

func (r *repl) watch(s *search.Session) *view {
	v := &view{session: s, stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(v.done)
		n, err := r.out.stream(v.stop, s)
		v.n = n
		if err != nil {
			r.logger.Warn("output failed", zap.Error(err))
		}
		select {
		case <-v.stop:
			return
		default:
		}
		v.finished = true
		fmt.Fprintln(r.errOut, summary(s.State(), n))
	}()
	return v
}

// stop halts output of the current session before stopping the session, so
// no result of it is printed afterwards.
func (r *repl) stop() {
	v := r.cur
	if v == nil {
		r.ctrl.Stop()
		return
	}
	r.cur = nil
	close(v.stop)
	<-v.done
	r.ctrl.Stop()
	if !v.finished {
		fmt.Fprintln(r.errOut, summary(v.session.State(), v.n))
	}
}

// wait lets the current session finish printing, or stops it when ctx is done.
func (r *repl) wait(ctx context.Context) {
	v := r.cur
	if v == nil {
		return
	}
	select {
	case <-v.done:
		r.cur = nil
	case <-ctx.Done():
		r.stop()
	}
}

// serveMetrics serves reg on addr and returns a function that shuts the
// server down.
func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
