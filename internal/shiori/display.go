package shiori

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	"golang.org/x/term"
)

// Verbosity levels.
const (
	Quiet = iota
	Normal
	Verbose
	Debug
)

// Display prints progress for the user. It is passed to every component
// that talks to the terminal.
type Display struct {
	Verbosity int
	Out       io.Writer
	Err       io.Writer
}

// NewDisplay returns a Display on stdout. Colour is disabled when asked for
// or when stdout is not a terminal.
func NewDisplay(verbosity int, useColor *bool) *Display {
	enable := term.IsTerminal(int(os.Stdout.Fd()))
	if useColor != nil {
		enable = *useColor
	}
	color.Enable = enable
	return &Display{Verbosity: verbosity, Out: os.Stdout, Err: os.Stderr}
}

// Title announces a major step.
func (d *Display) Title(format string, a ...any) {
	if d.Verbosity < Normal {
		return
	}
	fmt.Fprint(d.Out, colArrow.Sprint("==> "))
	fmt.Fprintln(d.Out, colSuccess.Sprintf(format, a...))
}

// Infof prints a normal progress line.
func (d *Display) Infof(format string, a ...any) {
	if d.Verbosity < Normal {
		return
	}
	fmt.Fprint(d.Out, colArrow.Sprint("-> "))
	fmt.Fprint(d.Out, colInfo.Sprintf(format, a...))
}

// Warnf is shown at every verbosity.
func (d *Display) Warnf(format string, a ...any) {
	fmt.Fprint(d.Err, colArrow.Sprint("-> "))
	fmt.Fprint(d.Err, colWarn.Sprintf(format, a...))
}

// Errorf is shown at every verbosity.
func (d *Display) Errorf(format string, a ...any) {
	fmt.Fprint(d.Err, colArrow.Sprint("-> "))
	fmt.Fprint(d.Err, colError.Sprintf(format, a...))
}

// Debugf prints only with --debug.
func (d *Display) Debugf(format string, a ...any) {
	if d.Verbosity >= Debug {
		fmt.Fprintf(d.Err, format, a...)
	}
}

// Commandline echoes an external command in verbose mode.
func (d *Display) Commandline(argv []string) {
	if d.Verbosity >= Verbose {
		fmt.Fprintln(d.Out, colNote.Sprint("$ "+strings.Join(argv, " ")))
	}
}

// Action is a titled step that reports its result and duration.
type Action struct {
	d     *Display
	start time.Time
}

// Action prints the step title and starts its clock.
func (d *Display) Action(format string, a ...any) *Action {
	if d.Verbosity >= Normal {
		fmt.Fprint(d.Out, colArrow.Sprint("==> "))
		fmt.Fprint(d.Out, colSuccess.Sprintf(format, a...)+" ... ")
		if d.Verbosity >= Verbose {
			fmt.Fprintln(d.Out)
		}
	}
	return &Action{d: d, start: time.Now()}
}

// Done closes the step with a short result.
func (a *Action) Done(format string, args ...any) {
	if a.d.Verbosity < Normal {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if a.d.Verbosity >= Verbose {
		msg = fmt.Sprintf("%s (%s)", msg, time.Since(a.start).Round(time.Millisecond))
	}
	fmt.Fprintln(a.d.Out, colInfo.Sprint(msg))
}
