package hook

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ensemble/workflow"
)

func TestRunLegacyPostHookWorkflow_Unset(t *testing.T) {
	d := New(newCatalog(t), WithInterpreter(&recordingInterpreter{}))

	ok, err := d.RunLegacyPostHookWorkflow(context.Background(), nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrLegacyWorkflowUnset)
}

// Loading QC_WORKFLOW creates a regular entry and leaves the legacy field
// unset, so the legacy runner has nothing to run after a normal load.
func TestRunLegacyPostHookWorkflow_NotSetByLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "qc.sh"), "exit 0\n")
	config := writeFile(t, filepath.Join(dir, "case.yaml"), "QC_WORKFLOW: qc.sh")

	interp := &recordingInterpreter{result: true}
	d, err := LoadFile(workflow.NewCatalog(nil), config, WithInterpreter(interp))
	require.NoError(t, err)
	require.Equal(t, 1, d.Size())

	assert.Nil(t, d.LegacyPostHookWorkflow())
	_, err = d.RunLegacyPostHookWorkflow(context.Background(), nil)
	assert.ErrorIs(t, err, ErrLegacyWorkflowUnset)
	assert.Empty(t, interp.runs)
}

func TestRunLegacyPostHookWorkflow_RunsDirectly(t *testing.T) {
	var logs bytes.Buffer
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "legacy.sh"), "exit 0\n")
	config := writeFile(t, filepath.Join(dir, "case.yaml"), "LOAD_WORKFLOW: legacy.sh")

	catalog := workflow.NewCatalog(nil)
	interp := &recordingInterpreter{result: true}
	d, err := LoadFile(catalog, config, WithLogger(bufferLogger(&logs)), WithInterpreter(interp))
	require.NoError(t, err)

	wf, err := catalog.Workflow("legacy")
	require.NoError(t, err)
	d.SetLegacyPostHookWorkflow(wf)

	ok, err := d.RunLegacyPostHookWorkflow(context.Background(), "target")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"legacy"}, interp.runs)
	assert.Equal(t, "target", interp.targets[0])
	assert.Zero(t, d.Size(), "legacy runner bypasses the entry list")

	// The runpath list was never exported, so a warning was logged.
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), d.RunpathExportFile())

	logs.Reset()
	require.NoError(t, os.WriteFile(d.RunpathExportFile(), nil, 0644))
	interp.result = false
	ok, err = d.RunLegacyPostHookWorkflow(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotContains(t, logs.String(), "level=WARN")
}
