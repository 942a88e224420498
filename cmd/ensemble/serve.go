package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/ensemble/ensemble"
	"github.com/c360studio/ensemble/server"
)

func serveCmd(c *cli) *cobra.Command {
	var (
		casePath     string
		snapshotPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve hooks and rankings as MCP tools on stdio",
		Long: `Serve exposes the hooks of a case, and rankings over an optional
ensemble snapshot, as MCP tools on stdin/stdout.

When metrics.listen is configured, Prometheus metrics are served on
/metrics. When workflows.watch is set, new files in the workflow
directories are added to the catalog while serving.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx, casePath, snapshotPath)
		},
	}

	cmd.Flags().StringVar(&casePath, "case", "", "Case configuration file")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Ensemble snapshot file enabling the ranking tools")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func (c *cli) serve(ctx context.Context, casePath, snapshotPath string) error {
	app := c.app

	if err := app.ConnectNATS(); err != nil {
		return err
	}
	d, err := app.LoadDispatcher(casePath)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithLogger(app.logger)}
	if snapshotPath != "" {
		snap, err := ensemble.Load(snapshotPath)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithSnapshot(snap))
	}

	srv, err := server.New(d, Version, opts...)
	if err != nil {
		return err
	}

	app.StartMetrics()
	if err := app.StartWatcher(ctx); err != nil {
		return err
	}

	return srv.Run(ctx)
}
