package hook

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/c360studio/ensemble/keyword"
	"github.com/c360studio/ensemble/runpath"
	"github.com/c360studio/ensemble/workflow"
)

// Configuration keywords handled by the dispatcher.
const (
	QCPathKey       = "QC_PATH"
	QCWorkflowKey   = "QC_WORKFLOW"
	HookWorkflowKey = "HOOK_WORKFLOW"
	RunpathFileKey  = "RUNPATH_FILE"
)

var errNoRunpathList = errors.New("no runpath list: dispatcher was not loaded from a configuration")

// RegisterSchema adds the hook keywords to s.
func RegisterSchema(s *keyword.Schema) {
	s.Add(QCPathKey).
		Message("The 'QC_PATH' keyword is ignored.")

	s.Add(QCWorkflowKey).
		Type(0, keyword.TypeExistingPath).
		Message("The 'QC_WORKFLOW' keyword is deprecated - use 'HOOK_WORKFLOW' instead")

	s.Add(HookWorkflowKey).
		Args(2, 2).
		Multiple().
		Selection(1, phaseNames()...)

	s.Add(RunpathFileKey).
		Type(0, keyword.TypePath)
}

// Load applies parsed configuration: the QC_WORKFLOW shim first, then every
// HOOK_WORKFLOW line in file order, then the runpath export file.
func (d *Dispatcher) Load(content *keyword.Content) error {
	if content.Has(QCWorkflowKey) {
		path := content.ValueAsAbsPath(QCWorkflowKey)
		name := workflow.NameFromPath(path)
		wf, err := d.catalog.AddWorkflow(path, name)
		if err != nil {
			d.logger.Warn("Failed to load QC workflow", "path", path, "error", err)
		} else {
			d.entries = append(d.entries, newEntry(wf, PostSimulation))
			d.metrics.hookRegistered(PostSimulation)
		}
	}

	for i := 0; i < content.Occurrences(HookWorkflowKey); i++ {
		name := content.Get(HookWorkflowKey, i, 0)
		phase, err := ParsePhase(content.Get(HookWorkflowKey, i, 1))
		if err != nil {
			return fmt.Errorf("%s %s: %w", HookWorkflowKey, name, err)
		}
		d.Register(name, phase)
	}

	exportFile := filepath.Join(content.ConfigDir(), runpath.DefaultFileName)
	if content.Has(RunpathFileKey) {
		exportFile = content.ValueAsAbsPath(RunpathFileKey)
	}
	d.runpathList = runpath.New(exportFile)

	return nil
}

// LoadFile parses the case configuration at path, adds its workflow
// directives to catalog and returns a loaded dispatcher. An empty path
// returns an empty dispatcher without a runpath list.
func LoadFile(catalog *workflow.Catalog, path string, opts ...Option) (*Dispatcher, error) {
	d := New(catalog, opts...)
	if path == "" {
		return d, nil
	}

	schema := keyword.NewSchema()
	workflow.RegisterSchema(schema)
	RegisterSchema(schema)

	content, err := keyword.Parse(path, schema, d.logger)
	if err != nil {
		return nil, err
	}
	if err := catalog.Load(content); err != nil {
		return nil, fmt.Errorf("load workflows: %w", err)
	}
	if err := d.Load(content); err != nil {
		return nil, err
	}
	return d, nil
}
