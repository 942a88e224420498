package workflow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Environment variables set for every workflow run in addition to the
// execution context.
const (
	EnvWorkflowName = "ENSEMBLE_WORKFLOW"
	EnvTarget       = "ENSEMBLE_TARGET"
)

// ExecInterpreter runs workflow files with a shell. Output is captured and
// attached to the last error when a run fails; with verbose set it is also
// copied to the configured writer.
type ExecInterpreter struct {
	shell  string
	out    io.Writer
	logger *slog.Logger

	mu      sync.Mutex
	lastErr error
}

// InterpreterOption configures an ExecInterpreter.
type InterpreterOption func(*ExecInterpreter)

// WithOutput sets where verbose runs copy their output (default os.Stderr).
func WithOutput(w io.Writer) InterpreterOption {
	return func(e *ExecInterpreter) { e.out = w }
}

// WithInterpreterLogger sets the logger.
func WithInterpreterLogger(logger *slog.Logger) InterpreterOption {
	return func(e *ExecInterpreter) { e.logger = logger }
}

// NewExecInterpreter creates an interpreter that runs workflows with shell.
func NewExecInterpreter(shell string, opts ...InterpreterOption) *ExecInterpreter {
	e := &ExecInterpreter{
		shell:  shell,
		out:    os.Stderr,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes wf synchronously and reports whether it exited successfully.
// The failure detail is available from LastError until the next run.
func (e *ExecInterpreter) Run(ctx context.Context, wf *Workflow, target any, verbose bool, wctx *Context) bool {
	cmd := exec.CommandContext(ctx, e.shell, wf.Path())
	cmd.Env = append(os.Environ(), EnvWorkflowName+"="+wf.Name())
	if target != nil {
		cmd.Env = append(cmd.Env, EnvTarget+"="+fmt.Sprint(target))
	}
	if wctx != nil {
		cmd.Env = append(cmd.Env, wctx.Environ()...)
	}

	var output bytes.Buffer
	if verbose {
		cmd.Stdout = io.MultiWriter(&output, e.out)
		cmd.Stderr = io.MultiWriter(&output, e.out)
	} else {
		cmd.Stdout = &output
		cmd.Stderr = &output
	}

	e.logger.Debug("Running workflow", "workflow", wf.Name(), "path", wf.Path())
	err := cmd.Run()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.lastErr = fmt.Errorf("workflow %s: %w: %s", wf.Name(), err, strings.TrimSpace(output.String()))
		e.logger.Debug("Workflow failed", "workflow", wf.Name(), "error", err)
		return false
	}
	e.lastErr = nil
	return true
}

// LastError returns the failure of the most recent run, or nil.
func (e *ExecInterpreter) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}
