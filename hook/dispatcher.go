// Package hook runs catalog workflows automatically at fixed points of a
// simulation's lifecycle.
//
// A Dispatcher holds an ordered list of (workflow, phase) entries. Entries
// are created from HOOK_WORKFLOW configuration lines, or from the deprecated
// QC_WORKFLOW line which becomes an ordinary POST_SIMULATION entry. Dispatch
// fires every entry of one phase in registration order.
//
// A Dispatcher is not safe for concurrent use.
package hook

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/ensemble/runpath"
	"github.com/c360studio/ensemble/workflow"
)

// Catalog resolves workflow names. *workflow.Catalog satisfies it.
type Catalog interface {
	HasWorkflow(name string) bool
	Workflow(name string) (*workflow.Workflow, error)
	AddWorkflow(path, name string) (*workflow.Workflow, error)
	Context() *workflow.Context
}

// Interpreter executes a workflow. *workflow.ExecInterpreter satisfies it.
type Interpreter interface {
	Run(ctx context.Context, wf *workflow.Workflow, target any, verbose bool, wctx *workflow.Context) bool
}

// Event describes one fired hook.
type Event struct {
	RunID     string    `json:"run_id"`
	Workflow  string    `json:"workflow"`
	Phase     Phase     `json:"phase"`
	Target    string    `json:"target,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier is told about every hook that fires.
type Notifier interface {
	HookFired(ctx context.Context, event Event)
}

// Dispatcher owns the hook entries of one case.
type Dispatcher struct {
	catalog     Catalog
	interpreter Interpreter
	logger      *slog.Logger
	metrics     *Metrics
	notifier    Notifier

	entries      []*Entry
	inputContext map[string]string
	runpathList  *runpath.List

	// Deprecated single post-simulation hook, see RunLegacyPostHookWorkflow.
	legacyPostHook *workflow.Workflow
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithInterpreter sets the workflow interpreter.
func WithInterpreter(interp Interpreter) Option {
	return func(d *Dispatcher) { d.interpreter = interp }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithNotifier sets a notifier told about each fired hook.
func WithNotifier(n Notifier) Option {
	return func(d *Dispatcher) { d.notifier = n }
}

// New creates an empty dispatcher bound to catalog. Without WithInterpreter,
// workflows run through /bin/sh.
func New(catalog Catalog, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		catalog:      catalog,
		logger:       slog.Default(),
		inputContext: make(map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.interpreter == nil {
		d.interpreter = workflow.NewExecInterpreter("/bin/sh", workflow.WithInterpreterLogger(d.logger))
	}
	return d
}

// Register appends a hook for the named workflow. A name missing from the
// catalog is logged and dropped; this is not an error.
func (d *Dispatcher) Register(name string, phase Phase) {
	if !d.catalog.HasWorkflow(name) {
		d.logger.Warn("Workflow not recognized among loaded workflows, hook dropped",
			"workflow", name, "phase", phase)
		d.metrics.hookDropped()
		return
	}

	wf, err := d.catalog.Workflow(name)
	if err != nil {
		d.logger.Warn("Failed to resolve hooked workflow", "workflow", name, "error", err)
		d.metrics.hookDropped()
		return
	}

	d.entries = append(d.entries, newEntry(wf, phase))
	d.metrics.hookRegistered(phase)
	d.logger.Debug("Registered hook", "workflow", name, "phase", phase)
}

// Dispatch runs every entry registered for phase, in registration order,
// and returns how many ran. A failing workflow does not stop the others and
// its result is not inspected. target is handed to each workflow unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, phase Phase, target any) int {
	return d.DispatchWith(ctx, phase, target, nil)
}

// DispatchWith is Dispatch with inputs overlaid on the input context for
// this call only. The dispatcher's input context is not modified.
func (d *Dispatcher) DispatchWith(ctx context.Context, phase Phase, target any, inputs map[string]string) int {
	runID := uuid.New().String()
	start := time.Now()
	wctx := d.workflowContext(inputs)

	fired := 0
	for _, e := range d.entries {
		if e.phase != phase {
			continue
		}

		d.logger.Debug("Firing hook", "run_id", runID, "workflow", e.workflow.Name(), "phase", phase)
		d.interpreter.Run(ctx, e.workflow, target, false, wctx)
		fired++
		d.metrics.hookFired(phase)

		if d.notifier != nil {
			event := Event{
				RunID:     runID,
				Workflow:  e.workflow.Name(),
				Phase:     phase,
				Timestamp: time.Now(),
			}
			if target != nil {
				event.Target = fmt.Sprint(target)
			}
			d.notifier.HookFired(ctx, event)
		}
	}

	d.metrics.dispatched(phase, time.Since(start))
	d.logger.Debug("Dispatched hooks", "run_id", runID, "phase", phase, "fired", fired)
	return fired
}

// workflowContext overlays the input context, then extra, on the catalog
// context.
func (d *Dispatcher) workflowContext(extra map[string]string) *workflow.Context {
	base := d.catalog.Context()
	if base == nil {
		base = workflow.NewContext()
	}
	wctx := base.With(d.inputContext)
	if len(extra) > 0 {
		wctx = wctx.With(extra)
	}
	return wctx
}

// Size returns the number of entries.
func (d *Dispatcher) Size() int { return len(d.entries) }

// Get returns entry i. It panics if i is out of range.
func (d *Dispatcher) Get(i int) *Entry { return d.entries[i] }

// Entries returns a copy of the entry list.
func (d *Dispatcher) Entries() []*Entry {
	return append([]*Entry(nil), d.entries...)
}

// AddInputContext stores value under key, replacing any previous value.
func (d *Dispatcher) AddInputContext(key, value string) {
	d.inputContext[key] = value
}

// InputContext returns the value stored under key.
func (d *Dispatcher) InputContext(key string) (string, bool) {
	v, ok := d.inputContext[key]
	return v, ok
}

// InputContextValues returns a copy of the whole input context.
func (d *Dispatcher) InputContextValues() map[string]string {
	return maps.Clone(d.inputContext)
}

// RunpathList returns the runpath list created by Load, or nil.
func (d *Dispatcher) RunpathList() *runpath.List { return d.runpathList }

// RunpathExportFile returns the runpath export path, or "" before Load.
func (d *Dispatcher) RunpathExportFile() string {
	if d.runpathList == nil {
		return ""
	}
	return d.runpathList.ExportFile()
}

// ExportRunpathList writes the runpath list to its export file.
func (d *Dispatcher) ExportRunpathList() error {
	if d.runpathList == nil {
		return errNoRunpathList
	}
	return d.runpathList.Export()
}
