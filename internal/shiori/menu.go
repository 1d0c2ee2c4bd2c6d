package shiori

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/peterh/liner"
)

// itemLetters label menu items, in order. Letters taken by one-letter
// commands are skipped.
const itemLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// errMenuDone ends a menu successfully.
var errMenuDone = errors.New("menu done")

// Prompter reads one command line. *liner.State implements it.
type Prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// command is one menu command. The first name is the canonical one.
type command struct {
	names   []string
	usage   string
	help    string
	visible bool
	run     func(ctx context.Context, arg string) error
}

// Menu is a letter-addressed list of items plus a static command table.
type Menu struct {
	Title    string
	disp     *Display
	prompt   Prompter
	items    func() []string
	choose   func(ctx context.Context, i int) error
	commands []*command
	byName   map[string]*command
}

func newMenu(title string, disp *Display, prompt Prompter) *Menu {
	return &Menu{Title: title, disp: disp, prompt: prompt, byName: make(map[string]*command)}
}

func (m *Menu) add(c *command) {
	m.commands = append(m.commands, c)
	for _, name := range c.names {
		m.byName[name] = c
	}
}

// lookup finds the command named name.
func (m *Menu) lookup(name string) (*command, bool) {
	c, ok := m.byName[name]
	return c, ok
}

// completions returns the command names starting with prefix.
func (m *Menu) completions(prefix string) []string {
	var out []string
	for name := range m.byName {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// letters are the item labels of this menu.
func (m *Menu) letters() string {
	var b strings.Builder
	for _, r := range itemLetters {
		if _, taken := m.byName[string(r)]; !taken {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// indexes maps letters to item indexes. "all" selects every item.
func (m *Menu) indexes(letters string) ([]int, error) {
	n := len(m.items())
	if letters == "all" {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	if letters == "" {
		return nil, errors.New("no items given")
	}
	labels := m.letters()
	var out []int
	for _, r := range letters {
		i := strings.IndexRune(labels, r)
		if i < 0 || i >= n {
			return nil, fmt.Errorf("no item %q", r)
		}
		out = append(out, i)
	}
	return out, nil
}

func (m *Menu) show() {
	fmt.Fprintln(m.disp.Out, colSuccess.Sprint(m.Title))
	labels := m.letters()
	for i, label := range m.items() {
		if i >= len(labels) {
			break
		}
		fmt.Fprintf(m.disp.Out, "  %s %s\n", colArrow.Sprintf("%c)", labels[i]), label)
	}
	var visible []string
	for _, c := range m.commands {
		if c.visible {
			visible = append(visible, c.names[0])
		}
	}
	fmt.Fprintln(m.disp.Out, colNote.Sprint("Commands: "+strings.Join(visible, ", ")))
}

func (m *Menu) help() {
	for _, c := range m.commands {
		fmt.Fprintf(m.disp.Out, "  %-24s %s\n", strings.TrimSpace(strings.Join(c.names, ", ")+" "+c.usage), c.help)
	}
	fmt.Fprintf(m.disp.Out, "  %-24s %s\n", "LETTERS", "open the given items, in any order")
}

// Run shows the menu until a command ends it. Quitting, or end of input,
// returns ErrAborted.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.show()
		line, err := m.prompt.Prompt("> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return ErrAborted
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m.prompt.AppendHistory(line)

		err = m.dispatch(ctx, line)
		switch {
		case errors.Is(err, errMenuDone):
			return nil
		case errors.Is(err, ErrAborted), errors.Is(err, context.Canceled):
			return err
		case err != nil:
			m.disp.Errorf("%v\n", err)
		}
	}
}

func (m *Menu) dispatch(ctx context.Context, line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	if c, ok := m.lookup(name); ok {
		return c.run(ctx, arg)
	}
	if arg == "" {
		if idx, err := m.indexes(name); err == nil {
			for _, i := range idx {
				if err := m.choose(ctx, i); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return fmt.Errorf("unknown command %q, h for help", name)
}

// newLinerPrompt opens a line editor using complete for tab completion.
func newLinerPrompt(complete func(prefix string) []string) *liner.State {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)
	return line
}
