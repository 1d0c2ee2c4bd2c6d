package shiori

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// Executor starts the processes behind tools, elevating through sudo when a
// tool must run as root and we are not.
type Executor struct {
	disp *Display
	euid int
}

// execRequest describes one process to run. Nil streams inherit ours.
type execRequest struct {
	Argv        []string
	Dir         string
	Stdin       io.Reader
	Stdout      io.Writer
	AsRoot      bool
	Interactive bool // owns the terminal; not isolated in its own process group
}

// NewExecutor returns an executor for the current user.
func NewExecutor(disp *Display) *Executor {
	return &Executor{disp: disp, euid: os.Geteuid()}
}

func (e *Executor) elevated(req execRequest) bool {
	return req.AsRoot && e.euid != 0
}

// authenticate refreshes the sudo ticket if it has expired. It runs attached
// to the terminal so sudo can ask for a password.
func (e *Executor) authenticate(ctx context.Context) error {
	if exec.CommandContext(ctx, "sudo", "-nv").Run() == nil {
		return nil
	}
	e.disp.Infof("Sudo ticket has expired. Re-authenticating\n")
	cmd := exec.CommandContext(ctx, "sudo", "-v")
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sudo re-authentication failed: %w", err)
	}
	return nil
}

// Run executes req and waits for it. Non-interactive processes get their own
// process group, which is killed as a whole when ctx ends.
func (e *Executor) Run(ctx context.Context, req execRequest) error {
	if len(req.Argv) == 0 {
		return errors.New("empty command line")
	}
	argv := req.Argv
	if e.elevated(req) {
		if err := e.authenticate(ctx); err != nil {
			return err
		}
		argv = append([]string{"sudo", "-E"}, argv...)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = req.Dir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = req.Stdin, req.Stdout, os.Stderr
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if !req.Interactive {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmd.Cancel = func() error {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
	}

	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("command aborted: %w", ctx.Err())
	}
	return err
}
