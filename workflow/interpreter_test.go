package workflow

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) *Workflow {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wf.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
	return New("WF", path)
}

func TestExecInterpreter_Success(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	wf := writeScript(t, `echo "$ENSEMBLE_WORKFLOW $ENSEMBLE_TARGET $CASE_NAME" > "$OUT_FILE"`+"\n")

	wctx := NewContext()
	wctx.Set("CASE_NAME", "case-a")
	wctx.Set("OUT_FILE", out)

	interp := NewExecInterpreter("/bin/sh")
	ok := interp.Run(context.Background(), wf, "realization-3", false, wctx)
	require.True(t, ok)
	assert.NoError(t, interp.LastError())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "WF realization-3 case-a\n", string(data))
}

func TestExecInterpreter_Failure(t *testing.T) {
	wf := writeScript(t, "echo boom >&2\nexit 3\n")

	interp := NewExecInterpreter("/bin/sh")
	ok := interp.Run(context.Background(), wf, nil, false, nil)
	require.False(t, ok)

	err := interp.LastError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow WF")
	assert.Contains(t, err.Error(), "boom")

	// A later success clears the error
	good := writeScript(t, "exit 0\n")
	require.True(t, interp.Run(context.Background(), good, nil, false, nil))
	assert.NoError(t, interp.LastError())
}

func TestExecInterpreter_Verbose(t *testing.T) {
	wf := writeScript(t, "echo hello\n")

	var buf bytes.Buffer
	interp := NewExecInterpreter("/bin/sh", WithOutput(&buf))

	require.True(t, interp.Run(context.Background(), wf, nil, true, nil))
	assert.Equal(t, "hello\n", buf.String())

	buf.Reset()
	require.True(t, interp.Run(context.Background(), wf, nil, false, nil))
	assert.Empty(t, buf.String(), "quiet runs do not copy output")
}

func TestExecInterpreter_CancelledContext(t *testing.T) {
	wf := writeScript(t, "sleep 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	interp := NewExecInterpreter("/bin/sh")
	assert.False(t, interp.Run(ctx, wf, nil, false, nil))
	assert.Error(t, interp.LastError())
}
