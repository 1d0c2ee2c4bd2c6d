package shiori

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"
)

// runApp runs the real application with its action replaced, returning the
// context the action saw.
func runApp(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	app := NewApp(context.Background())
	var got *cli.Context
	app.Action = func(c *cli.Context) error {
		got = c
		return nil
	}
	require.NoError(t, app.Run(append([]string{"shiori"}, args...)))
	require.NotNil(t, got, "action not reached")
	return got
}

func TestAppRunsWithAllFlags(t *testing.T) {
	c := runApp(t, "--batch", "-v", "-q", "--debug", "--color", "-C", "-r", "/mnt", "-k", "-P",
		"--remote", "https://a.example.org", "--remote", "https://b.example.org", "yay")
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, c.StringSlice("remote"))
	assert.True(t, c.Bool("git-pull-push"))
	assert.Equal(t, []string{"yay"}, []string(c.Args()))
}

func TestVersionFlag(t *testing.T) {
	var out bytes.Buffer
	app := NewApp(context.Background())
	app.Writer = &out
	app.Action = func(*cli.Context) error {
		t.Fatal("action must not run for --version")
		return nil
	}
	require.NoError(t, app.Run([]string{"shiori", "-V"}))
	assert.Contains(t, out.String(), version)
}

func TestVerbosityFlags(t *testing.T) {
	tests := []struct {
		args []string
		want int
	}{
		{nil, Normal},
		{[]string{"-v"}, Verbose},
		{[]string{"--verbose"}, Verbose},
		{[]string{"--quiet"}, Quiet},
		{[]string{"-v", "--debug"}, Debug},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, verbosityOf(runApp(t, tt.args...)), "%v", tt.args)
	}
}

func TestColorFlags(t *testing.T) {
	assert.Nil(t, colorOf(runApp(t)))

	c := colorOf(runApp(t, "--color"))
	require.NotNil(t, c)
	assert.True(t, *c)

	c = colorOf(runApp(t, "-C"))
	require.NotNil(t, c)
	assert.False(t, *c)
}

func TestFlagArgs(t *testing.T) {
	c := runApp(t, "--batch", "-k", "-r", "/mnt", "yay", "paru")
	assert.True(t, c.Bool("batch"))
	assert.True(t, c.Bool("keep-files"))
	assert.Equal(t, "/mnt", c.String("root"))
	assert.Equal(t, []string{"yay", "paru"}, []string(c.Args()))

	c = runApp(t)
	assert.False(t, c.Bool("batch"))
	assert.Equal(t, "/", c.String("root"))
}
