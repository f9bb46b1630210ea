// Package config loads pathfinder settings from flags, environment, .env files
// and an optional YAML config file through viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/TFMV/pathfinder/internal/walk"
)

// EnvPrefix prefixes environment variables, e.g. PATHFINDER_LOG_LEVEL.
const EnvPrefix = "PATHFINDER"

// Configuration keys.
const (
	KeyRoots       = "roots"
	KeyJoinTimeout = "join-timeout"
	KeyBufferSize  = "buffer-size"
	KeyLogLevel    = "log-level"
	KeySymlinks    = "symlinks"
	KeySkipHidden  = "skip-hidden"
	KeyExcludeDir  = "exclude-dir"
	KeyFormat      = "format"
	KeyColor       = "color"
	KeyTimeout     = "timeout"
	KeyParallel    = "parallel"
	KeyMetricsAddr = "metrics-addr"
)

// Config holds validated settings.
type Config struct {
	Roots       []string
	JoinTimeout time.Duration
	BufferSize  int
	LogLevel    walk.LogLevel
	Symlinks    walk.SymlinkHandling
	SkipHidden  bool
	ExcludeDirs []string
	Format      string // text, json or yaml
	Color       string // auto, always or never
	Timeout     time.Duration
	Parallel    int
	MetricsAddr string
}

// WalkOptions returns the traversal options described by c.
func (c Config) WalkOptions() walk.Options {
	return walk.Options{
		Symlinks:    c.Symlinks,
		SkipHidden:  c.SkipHidden,
		ExcludeDirs: c.ExcludeDirs,
	}
}

// Init sets defaults and environment binding on v.
func Init(v *viper.Viper) {
	v.SetDefault(KeyRoots, []string{})
	v.SetDefault(KeyJoinTimeout, time.Second)
	v.SetDefault(KeyBufferSize, 256)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeySymlinks, "report")
	v.SetDefault(KeySkipHidden, false)
	v.SetDefault(KeyExcludeDir, []string{})
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyColor, "auto")
	v.SetDefault(KeyTimeout, time.Duration(0))
	v.SetDefault(KeyParallel, 4)
	v.SetDefault(KeyMetricsAddr, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Roots:       expandRoots(v.GetStringSlice(KeyRoots)),
		JoinTimeout: v.GetDuration(KeyJoinTimeout),
		BufferSize:  v.GetInt(KeyBufferSize),
		SkipHidden:  v.GetBool(KeySkipHidden),
		ExcludeDirs: splitList(v.GetStringSlice(KeyExcludeDir)),
		Format:      strings.ToLower(v.GetString(KeyFormat)),
		Color:       strings.ToLower(v.GetString(KeyColor)),
		Timeout:     v.GetDuration(KeyTimeout),
		Parallel:    v.GetInt(KeyParallel),
		MetricsAddr: v.GetString(KeyMetricsAddr),
	}

	var err error
	if cfg.LogLevel, err = walk.ParseLogLevel(v.GetString(KeyLogLevel)); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}
	if cfg.Symlinks, err = walk.ParseSymlinkHandling(v.GetString(KeySymlinks)); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeySymlinks, err)
	}

	switch cfg.Format {
	case "text", "json", "yaml":
	default:
		return Config{}, fmt.Errorf("invalid %s: %q (expected text, json or yaml)", KeyFormat, cfg.Format)
	}
	switch cfg.Color {
	case "auto", "always", "never":
	default:
		return Config{}, fmt.Errorf("invalid %s: %q (expected auto, always or never)", KeyColor, cfg.Color)
	}
	if cfg.JoinTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid %s: %s must be positive", KeyJoinTimeout, cfg.JoinTimeout)
	}
	if cfg.BufferSize < 1 {
		return Config{}, fmt.Errorf("invalid %s: %d must be at least 1", KeyBufferSize, cfg.BufferSize)
	}
	if cfg.Parallel < 1 {
		return Config{}, fmt.Errorf("invalid %s: %d must be at least 1", KeyParallel, cfg.Parallel)
	}
	if cfg.Timeout < 0 {
		return Config{}, fmt.Errorf("invalid %s: %s must not be negative", KeyTimeout, cfg.Timeout)
	}
	for _, pattern := range cfg.ExcludeDirs {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return Config{}, fmt.Errorf("invalid %s pattern %q: %w", KeyExcludeDir, pattern, err)
		}
	}

	return cfg, nil
}

// LoadEnvFiles loads variables from the given .env files, earlier files taking
// precedence. Variables already set in the environment are kept. Missing files
// are ignored. With no arguments it loads .env.local then .env.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Watch reloads the configuration whenever the config file used by v changes
// and passes the result to fn. It does nothing when v has no config file.
func Watch(v *viper.Viper, fn func(Config, error)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		fn(Load(v))
	})
	v.WatchConfig()
}

// expandRoots expands a leading ~ and splits list-separated entries, so
// PATHFINDER_ROOTS=/a:/b works like a YAML list.
func expandRoots(roots []string) []string {
	var out []string
	for _, root := range splitList(roots) {
		for _, part := range filepath.SplitList(root) {
			if part == "" {
				continue
			}
			out = append(out, expandHome(part))
		}
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// splitList flattens comma separated items.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
