package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/ensemble/config"
	"github.com/c360studio/ensemble/hook"
	"github.com/c360studio/ensemble/notify"
	"github.com/c360studio/ensemble/workflow"
)

var errEmptyCasePath = errors.New("case configuration file path is empty")

// App wires configuration to the workflow catalog, hook dispatcher and the
// optional metrics and NATS outputs.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	catalog     *workflow.Catalog
	interpreter *workflow.ExecInterpreter

	promRegistry *prometheus.Registry
	metrics      *hook.Metrics

	natsConn *nats.Conn
	notifier hook.Notifier

	metricsServer *http.Server
	watcher       *workflow.Watcher
}

// NewApp creates an application instance. Workflow directories from the
// configuration are loaded into the catalog.
func NewApp(cfg *config.Config, logger *slog.Logger, out io.Writer) (*App, error) {
	app := &App{
		cfg:          cfg,
		logger:       logger,
		out:          out,
		catalog:      workflow.NewCatalog(logger),
		promRegistry: prometheus.NewRegistry(),
	}
	app.interpreter = workflow.NewExecInterpreter(cfg.Workflows.Shell,
		workflow.WithInterpreterLogger(logger),
		workflow.WithOutput(out))

	metrics, err := hook.NewMetrics(app.promRegistry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	app.metrics = metrics

	for _, dir := range cfg.Workflows.Directories {
		n, err := app.catalog.LoadGlob(dir)
		if err != nil {
			return nil, fmt.Errorf("load workflow directory %s: %w", dir, err)
		}
		logger.Debug("Loaded workflow directory", "directory", dir, "count", n)
	}

	return app, nil
}

// ConnectNATS connects to the configured NATS server and publishes hook
// events from then on. It does nothing without a configured URL.
func (a *App) ConnectNATS() error {
	if a.cfg.NATS.URL == "" {
		return nil
	}

	a.logger.Info("Connecting to NATS", "url", a.cfg.NATS.URL)
	conn, err := notify.Connect(a.cfg.NATS.URL, a.logger)
	if err != nil {
		return err
	}
	a.natsConn = conn
	a.notifier = notify.NewNATSNotifier(conn, a.cfg.NATS.SubjectPrefix, a.logger)
	return nil
}

// LoadDispatcher loads the case file into a dispatcher using the app's
// catalog, interpreter, metrics and notifier.
func (a *App) LoadDispatcher(casePath string) (*hook.Dispatcher, error) {
	if strings.TrimSpace(casePath) == "" {
		return nil, errEmptyCasePath
	}

	opts := []hook.Option{
		hook.WithLogger(a.logger),
		hook.WithInterpreter(a.interpreter),
		hook.WithMetrics(a.metrics),
	}
	if a.notifier != nil {
		opts = append(opts, hook.WithNotifier(a.notifier))
	}

	d, err := hook.LoadFile(a.catalog, casePath, opts...)
	if err != nil {
		return nil, fmt.Errorf("load case %s: %w", casePath, err)
	}
	a.logger.Debug("Loaded case", "path", casePath, "hooks", d.Size(), "workflows", a.catalog.Size())
	return d, nil
}

// MetricsHandler serves the app's Prometheus registry.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{})
}

// StartMetrics serves /metrics on the configured address. It does nothing
// without a configured address.
func (a *App) StartMetrics() {
	if a.cfg.Metrics.Listen == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.MetricsHandler())
	a.metricsServer = &http.Server{
		Addr:              a.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("Serving metrics", "addr", a.cfg.Metrics.Listen)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", "error", err)
		}
	}()
}

// StartWatcher keeps the catalog in sync with the configured workflow
// directories. It does nothing unless watching is enabled.
func (a *App) StartWatcher(ctx context.Context) error {
	if !a.cfg.Workflows.Watch || len(a.cfg.Workflows.Directories) == 0 {
		return nil
	}

	w, err := workflow.NewWatcher(a.catalog, workflow.WatcherConfig{
		Directories:   a.cfg.Workflows.Directories,
		DebounceDelay: a.cfg.Workflows.DebounceDelay,
		Logger:        a.logger,
	})
	if err != nil {
		return fmt.Errorf("create workflow watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return fmt.Errorf("start workflow watcher: %w", err)
	}
	a.watcher = w
	return nil
}

// Shutdown stops background components and drains the NATS connection.
func (a *App) Shutdown() {
	if a.watcher != nil {
		_ = a.watcher.Stop()
		a.watcher = nil
	}

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Warn("Metrics server shutdown failed", "error", err)
		}
		a.metricsServer = nil
	}

	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.logger.Warn("NATS drain failed", "error", err)
		}
		a.natsConn.Close()
		a.natsConn = nil
	}
}
