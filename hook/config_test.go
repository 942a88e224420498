package hook

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ensemble/keyword"
	"github.com/c360studio/ensemble/runpath"
	"github.com/c360studio/ensemble/workflow"
)

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFile_HookWorkflows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "workflows", "export.sh"), "exit 0\n")
	writeFile(t, filepath.Join(dir, "workflows", "plot.sh"), "exit 0\n")
	writeFile(t, filepath.Join(dir, "extra", "cleanup.sh"), "exit 0\n")
	config := writeFile(t, filepath.Join(dir, "case.yaml"), `
WORKFLOW_DIRECTORY: workflows
LOAD_WORKFLOW: [extra/cleanup.sh, CLEANUP]
HOOK_WORKFLOW:
  - [export, PRE_SIMULATION]
  - [CLEANUP, POST_UPDATE]
  - [plot, PRE_SIMULATION]
`)

	catalog := workflow.NewCatalog(nil)
	interp := &recordingInterpreter{}
	d, err := LoadFile(catalog, config, WithInterpreter(interp))
	require.NoError(t, err)

	assert.Equal(t, []string{"CLEANUP", "export", "plot"}, catalog.Names())
	require.Equal(t, 3, d.Size())

	d.Dispatch(context.Background(), PreSimulation, nil)
	assert.Equal(t, []string{"export", "plot"}, interp.runs)
}

func TestLoadFile_UnknownWorkflowWarns(t *testing.T) {
	var logs bytes.Buffer
	dir := t.TempDir()
	config := writeFile(t, filepath.Join(dir, "case.yaml"), `HOOK_WORKFLOW: [ghost, PRE_UPDATE]`)

	d, err := LoadFile(workflow.NewCatalog(nil), config,
		WithLogger(bufferLogger(&logs)), WithInterpreter(&recordingInterpreter{}))
	require.NoError(t, err)

	assert.Zero(t, d.Size())
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "ghost")
}

func TestLoadFile_QCWorkflow(t *testing.T) {
	var logs bytes.Buffer
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "foo.workflow"), "exit 0\n")
	config := writeFile(t, filepath.Join(dir, "case.yaml"), `QC_WORKFLOW: foo.workflow
QC_PATH: qc
`)

	catalog := workflow.NewCatalog(nil)
	d, err := LoadFile(catalog, config,
		WithLogger(bufferLogger(&logs)), WithInterpreter(&recordingInterpreter{}))
	require.NoError(t, err)

	require.Equal(t, 1, d.Size())
	assert.Equal(t, PostSimulation, d.Get(0).Phase())
	assert.Equal(t, "foo", d.Get(0).Workflow().Name())
	assert.True(t, catalog.HasWorkflow("foo"))

	assert.Contains(t, logs.String(), "The 'QC_WORKFLOW' keyword is deprecated - use 'HOOK_WORKFLOW' instead")
	assert.Contains(t, logs.String(), "The 'QC_PATH' keyword is ignored.")
}

func TestLoadFile_QCWorkflowBeforeHooks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "qc.sh"), "exit 0\n")
	writeFile(t, filepath.Join(dir, "post.sh"), "exit 0\n")
	config := writeFile(t, filepath.Join(dir, "case.yaml"), `
LOAD_WORKFLOW: post.sh
HOOK_WORKFLOW: [post, POST_SIMULATION]
QC_WORKFLOW: qc.sh
`)

	interp := &recordingInterpreter{}
	d, err := LoadFile(workflow.NewCatalog(nil), config, WithInterpreter(interp))
	require.NoError(t, err)

	d.Dispatch(context.Background(), PostSimulation, nil)
	assert.Equal(t, []string{"qc", "post"}, interp.runs)
}

func TestLoadFile_DefaultRunpathFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proj", "case")
	config := writeFile(t, filepath.Join(dir, "config.ert"), "")

	d, err := LoadFile(workflow.NewCatalog(nil), config, WithInterpreter(&recordingInterpreter{}))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, runpath.DefaultFileName), d.RunpathExportFile())
	assert.Equal(t, filepath.Join(dir, ".ert_runpath_list"), d.RunpathList().ExportFile())
}

func TestLoadFile_RunpathFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "relative", body: "RUNPATH_FILE: out/runpaths", want: filepath.Join(dir, "out", "runpaths")},
		{name: "absolute", body: "RUNPATH_FILE: /tmp/abs/runpaths", want: "/tmp/abs/runpaths"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := writeFile(t, filepath.Join(dir, tt.name+".yaml"), tt.body)
			d, err := LoadFile(workflow.NewCatalog(nil), config, WithInterpreter(&recordingInterpreter{}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.RunpathExportFile())
		})
	}
}

func TestLoadFile_ExportRunpathList(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, filepath.Join(dir, "case.yaml"), "RUNPATH_FILE: lists/runpaths")

	d, err := LoadFile(workflow.NewCatalog(nil), config, WithInterpreter(&recordingInterpreter{}))
	require.NoError(t, err)

	d.RunpathList().Add(1, 0, "/sim/real-1/iter-0", "CASE_1")
	d.RunpathList().Add(0, 0, "/sim/real-0/iter-0", "CASE_0")
	require.NoError(t, d.ExportRunpathList())

	data, err := os.ReadFile(filepath.Join(dir, "lists", "runpaths"))
	require.NoError(t, err)
	assert.Equal(t,
		"000  /sim/real-0/iter-0  CASE_0  000\n001  /sim/real-1/iter-0  CASE_1  000\n",
		string(data))
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		key  string
	}{
		{name: "phase outside set", body: "HOOK_WORKFLOW: [export, PRE_FIRST_UPDATE]", key: HookWorkflowKey},
		{name: "missing phase", body: "HOOK_WORKFLOW: [export]", key: HookWorkflowKey},
		{name: "missing QC file", body: "QC_WORKFLOW: missing.sh", key: QCWorkflowKey},
		{name: "two runpath files", body: "RUNPATH_FILE:\n  - [a]\n  - [b]", key: RunpathFileKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := writeFile(t, filepath.Join(t.TempDir(), "case.yaml"), tt.body)
			d, err := LoadFile(workflow.NewCatalog(nil), config, WithInterpreter(&recordingInterpreter{}))
			require.Error(t, err)
			assert.Nil(t, d)

			var verr *keyword.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.key, verr.Key)
		})
	}
}

func TestLoadFile_EmptyPath(t *testing.T) {
	d, err := LoadFile(workflow.NewCatalog(nil), "", WithInterpreter(&recordingInterpreter{}))
	require.NoError(t, err)
	assert.Zero(t, d.Size())
	assert.Nil(t, d.RunpathList())
}

func TestLoad_RejectsUnvalidatedPhase(t *testing.T) {
	content := keyword.NewContent(filepath.Join(t.TempDir(), "case.yaml"))
	content.Add(HookWorkflowKey, "export", "SOMETIME")

	d := New(newCatalog(t, "export"), WithInterpreter(&recordingInterpreter{}))
	assert.Error(t, d.Load(content))
	assert.Zero(t, d.Size())
}

func TestRegisterSchema(t *testing.T) {
	s := keyword.NewSchema()
	RegisterSchema(s)
	assert.Equal(t, []string{HookWorkflowKey, QCPathKey, QCWorkflowKey, RunpathFileKey}, s.Keys())
}
