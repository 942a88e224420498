package hook

import (
	"context"
	"errors"
	"os"

	"github.com/c360studio/ensemble/workflow"
)

// ErrLegacyWorkflowUnset is returned by RunLegacyPostHookWorkflow when no
// legacy post hook workflow was set.
var ErrLegacyWorkflowUnset = errors.New("legacy post hook workflow is not set")

// SetLegacyPostHookWorkflow sets the workflow run by
// RunLegacyPostHookWorkflow. Load never sets it; QC_WORKFLOW becomes a
// regular POST_SIMULATION entry instead.
func (d *Dispatcher) SetLegacyPostHookWorkflow(wf *workflow.Workflow) {
	d.legacyPostHook = wf
}

// LegacyPostHookWorkflow returns the legacy post hook workflow, or nil.
func (d *Dispatcher) LegacyPostHookWorkflow() *workflow.Workflow {
	return d.legacyPostHook
}

// RunLegacyPostHookWorkflow runs the legacy post hook workflow directly,
// bypassing the entry list, and returns the interpreter's result.
//
// Deprecated: register the workflow at POST_SIMULATION and use Dispatch.
func (d *Dispatcher) RunLegacyPostHookWorkflow(ctx context.Context, target any) (bool, error) {
	exportFile := d.RunpathExportFile()
	if _, err := os.Stat(exportFile); exportFile == "" || err != nil {
		d.logger.Warn("Runpath list file not found, workflow will probably fail", "path", exportFile)
	}

	if d.legacyPostHook == nil {
		return false, ErrLegacyWorkflowUnset
	}

	ok := d.interpreter.Run(ctx, d.legacyPostHook, target, false, d.workflowContext(nil))
	d.logger.Debug("Ran legacy post hook workflow", "workflow", d.legacyPostHook.Name(), "ok", ok)
	return ok, nil
}
