package hook

import "github.com/c360studio/ensemble/workflow"

// Entry pairs a workflow with the phase it fires in. The workflow is shared
// with the catalog it was resolved from.
type Entry struct {
	workflow *workflow.Workflow
	phase    Phase
}

func newEntry(wf *workflow.Workflow, phase Phase) *Entry {
	return &Entry{workflow: wf, phase: phase}
}

// Workflow returns the hooked workflow.
func (e *Entry) Workflow() *workflow.Workflow { return e.workflow }

// Phase returns the phase the entry fires in.
func (e *Entry) Phase() Phase { return e.phase }
