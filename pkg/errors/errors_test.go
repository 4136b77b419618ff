//nolint:err113,testpackage // Test errors can be dynamic, internal testing requires access to private functions
package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *PackError
		expected string
	}{
		{
			name: "error without cause",
			err: &PackError{
				Kind:    ErrValidation,
				Message: "invalid input",
			},
			expected: "validation: invalid input",
		},
		{
			name: "error with cause",
			err: &PackError{
				Kind:    ErrIO,
				Message: "failed to read file",
				Cause:   errors.New("permission denied"),
			},
			expected: "io: failed to read file: permission denied",
		},
		{
			name: "error with operation and cause",
			err: &PackError{
				Kind:      ErrTool,
				Message:   "strip failed",
				Operation: "debugsplit.Strip",
				Cause:     errors.New("exit status 1"),
			},
			expected: "tool[debugsplit.Strip]: strip failed: exit status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestPackError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := &PackError{
		Kind:    ErrBuild,
		Message: "build failed",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())
}

func TestPackError_Is(t *testing.T) {
	t.Parallel()

	err1 := &PackError{Kind: ErrValidation, Message: "test"}
	err2 := &PackError{Kind: ErrValidation, Message: "different"}
	err3 := &PackError{Kind: ErrIO, Message: "test"}

	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(errors.New("regular error")))
}

func TestPackError_WithContext(t *testing.T) {
	t.Parallel()

	err := New(ErrValidation, "test error")
	_ = err.WithContext("file", "Cargo.toml").WithContext("line", 42)

	assert.Equal(t, "Cargo.toml", err.Context["file"])
	assert.Equal(t, 42, err.Context["line"])
}

func TestPackError_WithOperation(t *testing.T) {
	t.Parallel()

	err := New(ErrValidation, "test error")
	_ = err.WithOperation("manifest.Parse")

	assert.Equal(t, "manifest.Parse", err.Operation)
}

func TestNew(t *testing.T) {
	t.Parallel()

	err := New(ErrValidation, "test message")

	assert.Equal(t, ErrValidation, err.Kind)
	assert.Equal(t, "test message", err.Message)
	require.NoError(t, err.Cause)
	assert.NotNil(t, err.Context)
}

func TestWrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("original error")
	err := Wrap(cause, ErrIO, "wrapped message")

	assert.Equal(t, ErrIO, err.Kind)
	assert.Equal(t, "wrapped message", err.Message)
	assert.Equal(t, cause, err.Cause)
}
