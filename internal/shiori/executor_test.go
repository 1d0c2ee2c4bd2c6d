package shiori

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorOutput(t *testing.T) {
	var out bytes.Buffer
	e := NewExecutor(quietDisplay())
	err := e.Run(context.Background(), execRequest{
		Argv:   []string{"sh", "-c", "cat; pwd"},
		Dir:    "/",
		Stdin:  bytes.NewBufferString("hello\n"),
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n/\n", out.String())
}

func TestExecutorCancelKillsGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := NewExecutor(quietDisplay()).Run(ctx, execRequest{
		Argv:   []string{"sh", "-c", "sleep 30 & sleep 30; wait"},
		Stdout: &bytes.Buffer{},
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecutorEmptyCommand(t *testing.T) {
	assert.Error(t, NewExecutor(quietDisplay()).Run(context.Background(), execRequest{}))
}
