package shell

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec_Success(t *testing.T) {
	t.Parallel()

	require.NoError(t, Exec("", "true"))
}

func TestExec_Failure(t *testing.T) {
	t.Parallel()

	assert.Error(t, Exec("", "false"))
}

func TestOutput_CapturesStdout(t *testing.T) {
	t.Parallel()

	out, err := Output(context.Background(), "", "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestLookPath(t *testing.T) {
	t.Parallel()

	assert.True(t, LookPath("sh"))
	assert.False(t, LookPath("definitely-not-a-real-binary-xyz"))
}

func TestExecWithSudo_RejectsUnknownCommand(t *testing.T) {
	t.Parallel()

	assert.Error(t, ExecWithSudo("", "rm", "-rf", "/"))
}

func TestDecoratedWriter_PassesThroughBlankLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	dw := NewDecoratedWriter(&buf, "test")

	_, err := dw.Write([]byte("\n"))
	require.NoError(t, err)
	assert.Equal(t, "\n", buf.String())
}

func TestDecoratedWriter_DecoratesContentLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	dw := NewDecoratedWriter(&buf, "cargo")

	_, err := dw.Write([]byte("compiling crate\n"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "compiling crate")
	assert.Contains(t, buf.String(), "cargo")
}
