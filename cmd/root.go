package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/TFMV/pathfinder/internal/config"
	"github.com/TFMV/pathfinder/internal/search"
	"github.com/TFMV/pathfinder/internal/walk"
)

var (
	cfgFile string
	envFile string
	version = "0.1.0"
)

// rootCmd runs a single search when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "pathfinder [flags] <query...>",
	Short: "Find files and folders by name, extension and size",
	Long: `pathfinder searches directory trees for files and folders whose names
contain every term of a query. Results are printed as they are found.

Query syntax:
  report draft        names containing both "report" and "draft"
  ext:pdf,docx        files ending in .pdf or .docx
  size:>1.5mb         files larger than 1.5 MiB (kb, mb and gb are powers of 1024)
  size:<100           files smaller than 100 bytes

Extension and size filters only apply to files; when either is present no
folders are reported.

Examples:
  pathfinder invoice ext:pdf
  pathfinder --root ~/src --root /srv "main ext:go size:<20kb"
  pathfinder --format json --timeout 10s backup`,
	Version: version,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, strings.Join(args, " "))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.pathfinder.yaml)")
	flags.StringVar(&envFile, "env-file", "", "Environment file to load (default .env.local and .env)")
	flags.StringSliceP("root", "r", nil, "Directory to search, repeatable (default is your home directory)")
	flags.String("log-level", "warn", "Log level (error|warn|info|debug)")
	flags.String("symlinks", "report", "Symbolic link handling (report|ignore|follow)")
	flags.Bool("skip-hidden", false, "Skip files and directories whose name starts with a dot")
	flags.StringSlice("exclude-dir", nil, "Directory name patterns to skip (comma-separated)")
	flags.StringP("format", "f", "text", "Output format (text|json|yaml)")
	flags.String("color", "auto", "Colorize text output (auto|always|never)")
	flags.Duration("join-timeout", search.DefaultJoinTimeout, "How long a stop waits for the search worker")
	flags.Int("buffer-size", search.DefaultBufferSize, "Result stream buffer size")
	rootCmd.Flags().DurationP("timeout", "t", 0, "Stop the search after this long (0 means no limit)")

	viper.BindPFlag(config.KeyRoots, flags.Lookup("root"))
	viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	viper.BindPFlag(config.KeySymlinks, flags.Lookup("symlinks"))
	viper.BindPFlag(config.KeySkipHidden, flags.Lookup("skip-hidden"))
	viper.BindPFlag(config.KeyExcludeDir, flags.Lookup("exclude-dir"))
	viper.BindPFlag(config.KeyFormat, flags.Lookup("format"))
	viper.BindPFlag(config.KeyColor, flags.Lookup("color"))
	viper.BindPFlag(config.KeyJoinTimeout, flags.Lookup("join-timeout"))
	viper.BindPFlag(config.KeyBufferSize, flags.Lookup("buffer-size"))
	viper.BindPFlag(config.KeyTimeout, rootCmd.Flags().Lookup("timeout"))
}

// initConfig reads in .env files, the config file and ENV variables if set.
func initConfig() {
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in home directory with name ".pathfinder" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pathfinder")
	}

	config.Init(viper.GetViper())

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", filepath.Clean(cfgFile), err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and builds the logger for a command.
func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, walk.NewLogger(cfg.LogLevel), nil
}

func searchOptions(cfg config.Config, logger *zap.Logger, metrics *search.Metrics) search.Options {
	return search.Options{
		Roots:       cfg.Roots,
		JoinTimeout: cfg.JoinTimeout,
		BufferSize:  cfg.BufferSize,
		Walk:        cfg.WalkOptions(),
		Logger:      logger,
		Metrics:     metrics,
	}
}

func runSearch(cmd *cobra.Command, query string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	ctrl := search.NewController(searchOptions(cfg, logger, nil))
	defer ctrl.Stop()

	s := ctrl.Search(ctx, query)
	if s == nil {
		return errors.New("empty query")
	}

	out, err := newPrinter(cmd.OutOrStdout(), cfg.Format, cfg.Color)
	if err != nil {
		return err
	}
	n, err := out.stream(nil, s)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), summary(s.State(), n))
	return nil
}

// summary describes how a session ended. A stopped search is never reported
// as having found nothing.
func summary(state search.State, n int) string {
	switch {
	case state == search.StateCancelled:
		return fmt.Sprintf("Search stopped after %d %s.", n, plural(n, "result", "results"))
	case n == 0:
		return "Search completed: no results found."
	default:
		return fmt.Sprintf("Search completed: %d %s.", n, plural(n, "result", "results"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
