package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgsToLoggerArgs(t *testing.T) {
	t.Parallel()

	args := argsToLoggerArgs("package", "hello-cli", "version", "0.1.0")

	assert.Len(t, args, 2)
	assert.Equal(t, "package", args[0].Key)
	assert.Equal(t, "hello-cli", args[0].Value)
	assert.Equal(t, "version", args[1].Key)
	assert.Equal(t, "0.1.0", args[1].Value)
}

func TestArgsToLoggerArgs_Empty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, argsToLoggerArgs())
}

func TestSetVerbose(t *testing.T) {
	SetVerbose(true)
	assert.True(t, verboseEnabled)

	SetVerbose(false)
	assert.False(t, verboseEnabled)
}
