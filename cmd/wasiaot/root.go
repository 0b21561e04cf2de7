package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	configPath string
	cfg        = defaultConfig()
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "wasiaot",
	Short:         "WASI preview 1 host for WebAssembly programs",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyConfig(cmd); err != nil {
			return err
		}
		logger = cfg.logger(os.Stderr)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a YAML configuration file")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level, one of debug, info, warn, error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format, one of text, json")
}

// applyConfig loads the configuration file, then applies the flags that were
// set explicitly on the command line on top of it.
func applyConfig(cmd *cobra.Command) error {
	if configPath == "" {
		return cfg.validate()
	}
	flagged := cfg
	fromFile := defaultConfig()
	if err := loadConfig(configPath, &fromFile); err != nil {
		return err
	}
	cfg = mergeConfig(fromFile, flagged, cmd.Flags().Changed)
	return cfg.validate()
}

func mergeConfig(file, flags config, changed func(string) bool) config {
	c := file
	if changed("dir") {
		c.Dirs = flags.Dirs
	}
	if changed("env") {
		c.Env = flags.Env
	}
	if changed("max-pages") {
		c.MaxPages = flags.MaxPages
	}
	if changed("trace") {
		c.Trace = flags.Trace
	}
	if changed("trace-format") {
		c.TraceFormat = flags.TraceFormat
	}
	if changed("log-level") {
		c.LogLevel = flags.LogLevel
	}
	if changed("log-format") {
		c.LogFormat = flags.LogFormat
	}
	return c
}

func cmdFunc(fn func(context.Context, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return fn(ctx, args)
	}
}
