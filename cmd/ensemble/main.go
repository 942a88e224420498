// Package main provides the ensemble binary entry point.
// Ensemble runs lifecycle hook workflows for simulation ensembles and
// ranks ensemble members by simulated values or observation misfit.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/ensemble/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "ensemble"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries global flag values and the app built from them.
type cli struct {
	configPath string
	logLevel   string
	app        *App
}

func rootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Lifecycle hooks and member rankings for simulation ensembles",
		Long: `Ensemble runs workflows automatically at fixed points of a simulation's
lifecycle and ranks ensemble members.

Hooks are configured in a case file:
  HOOK_WORKFLOW: [export, POST_SIMULATION]

Rankings are computed from an ensemble snapshot and can be displayed,
exported or served over MCP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.Shutdown()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(hooksCmd(c))
	cmd.AddCommand(runpathCmd(c))
	cmd.AddCommand(rankCmd(c))
	cmd.AddCommand(serveCmd(c))
	cmd.AddCommand(configCmd(c))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// setup loads configuration, configures logging and builds the app.
func (c *cli) setup(out, errOut io.Writer) error {
	bootstrap := newLogger(errOut, c.logLevel)

	cfg, err := config.NewLoader(bootstrap).Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	logger := newLogger(errOut, cfg.Log.Level)
	slog.SetDefault(logger)

	app, err := NewApp(cfg, logger, out)
	if err != nil {
		return err
	}
	c.app = app
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	l := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
