package runpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListExport(t *testing.T) {
	dir := t.TempDir()
	exportFile := filepath.Join(dir, "nested", "runpaths")

	l := New(exportFile)
	l.Add(2, 1, "/scratch/real-2/iter-1", "CASE_2")
	l.Add(10, 0, "/scratch/real-10/iter-0", "CASE_10")
	l.Add(1, 0, "/scratch/real-1/iter-0", "CASE_1")

	require.Equal(t, 3, l.Size())
	require.NoError(t, l.Export())

	data, err := os.ReadFile(exportFile)
	require.NoError(t, err)

	expected := "001  /scratch/real-1/iter-0  CASE_1  000\n" +
		"010  /scratch/real-10/iter-0  CASE_10  000\n" +
		"002  /scratch/real-2/iter-1  CASE_2  001\n"
	assert.Equal(t, expected, string(data))
}

func TestListExport_Empty(t *testing.T) {
	exportFile := filepath.Join(t.TempDir(), DefaultFileName)

	require.NoError(t, New(exportFile).Export())

	data, err := os.ReadFile(exportFile)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestListExport_NoFile(t *testing.T) {
	err := New("").Export()
	assert.Error(t, err)
}

func TestListClearAndExportFile(t *testing.T) {
	l := New("/a/b")
	l.Add(0, 0, "/r", "B")
	l.Clear()
	assert.Equal(t, 0, l.Size())

	l.SetExportFile("/c/d")
	assert.Equal(t, "/c/d", l.ExportFile())
}

func TestListExport_Rewrites(t *testing.T) {
	exportFile := filepath.Join(t.TempDir(), DefaultFileName)
	l := New(exportFile)
	l.Add(0, 0, "/r0", "B0")
	l.Add(1, 0, "/r1", "B1")
	require.NoError(t, l.Export())

	l.Clear()
	l.Add(3, 2, "/r3", "B3")
	require.NoError(t, l.Export())

	data, err := os.ReadFile(exportFile)
	require.NoError(t, err)
	assert.Equal(t, "003  /r3  B3  002\n", string(data))
}

func TestListExport_TargetIsDirectory(t *testing.T) {
	dir := t.TempDir()
	err := New(dir).Export()
	assert.Error(t, err)
}
