// Package workflow provides the workflow catalog consumed by the hook
// dispatcher: named workflow files, the execution context handed to them, and
// an interpreter that runs them.
//
// The catalog does not define a workflow language. A workflow is an
// executable file; the interpreter runs it and reports success.
package workflow

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrWorkflowNotFound is returned when a workflow name is not in the catalog.
var ErrWorkflowNotFound = errors.New("workflow not found")

// Workflow is a named workflow file.
type Workflow struct {
	name string
	path string
}

// New creates a workflow reference. Most callers get workflows from a
// Catalog instead.
func New(name, path string) *Workflow {
	return &Workflow{name: name, path: path}
}

// Name returns the catalog name.
func (w *Workflow) Name() string { return w.name }

// Path returns the workflow file path.
func (w *Workflow) Path() string { return w.path }

func (w *Workflow) String() string { return w.name }

// NameFromPath derives a workflow name from a file path: the base name
// without its extension. "/cases/qc/foo.workflow" becomes "foo".
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
