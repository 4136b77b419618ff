package worker

import (
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Empty(t *testing.T) {
	t.Parallel()
	require.NoError(t, Run(nil, 4))
}

func TestRun_AllSucceed(t *testing.T) {
	t.Parallel()

	var count int64

	tasks := make([]Task, 0, 20)
	for range 20 {
		tasks = append(tasks, func() error {
			atomic.AddInt64(&count, 1)
			return nil
		})
	}

	require.NoError(t, Run(tasks, 4))
	assert.Equal(t, int64(20), count)
}

func TestRun_PropagatesError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tasks := []Task{
		func() error { return nil },
		func() error { return boom },
		func() error { return nil },
	}

	err := Run(tasks, 2)
	require.Error(t, err)
}

func TestRun_ClampsWorkerCount(t *testing.T) {
	t.Parallel()

	tasks := []Task{func() error { return nil }}
	require.NoError(t, Run(tasks, 0))
	require.NoError(t, Run(tasks, 100))
}
