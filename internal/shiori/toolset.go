package shiori

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"shiori/internal/recipe"
	"shiori/internal/workspace"
)

// Tool is one overridable external command line. Arguments of the form
// $name are placeholders filled per call.
type Tool struct {
	Name        string
	Cmdline     string
	argv        []string
	indexes     map[string][]int // placeholder -> argv positions
	root        bool  // run through sudo when not root
	interactive bool  // owns the terminal
	paged       bool  // stdout goes through the pager
	quiet       bool  // stdout hidden below verbose
	okCodes     []int // non-zero exit codes that are not failures
}

func (t *Tool) update(cmdline string) error {
	argv, err := recipe.Fields(cmdline)
	if err != nil {
		return fmt.Errorf("tool %s: %w", t.Name, err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("tool %s: empty command line", t.Name)
	}
	t.Cmdline = cmdline
	t.argv = argv
	t.indexes = make(map[string][]int)
	for i, arg := range argv {
		for _, name := range placeholders(arg) {
			t.indexes[name] = append(t.indexes[name], i)
		}
	}
	return nil
}

// placeholders returns the $names referenced in arg.
func placeholders(arg string) []string {
	var out []string
	for i := 0; i < len(arg); i++ {
		if arg[i] != '$' {
			continue
		}
		j := i + 1
		for j < len(arg) && (arg[j] == '_' || 'a' <= arg[j] && arg[j] <= 'z' || 'A' <= arg[j] && arg[j] <= 'Z' || '0' <= arg[j] && arg[j] <= '9') {
			j++
		}
		if j > i+1 {
			out = append(out, arg[i+1:j])
		}
		i = j - 1
	}
	return out
}

// substitute replaces every $name placeholder of arg found in params.
func substitute(arg string, params map[string]string) string {
	var b strings.Builder
	for i := 0; i < len(arg); i++ {
		if arg[i] == '$' {
			names := placeholders(arg[i:])
			if len(names) > 0 && strings.HasPrefix(arg[i+1:], names[0]) {
				if val, ok := params[names[0]]; ok {
					b.WriteString(val)
					i += len(names[0])
					continue
				}
			}
		}
		b.WriteByte(arg[i])
	}
	return b.String()
}

func (t *Tool) ok(code int) bool {
	for _, c := range t.okCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Command builds the argv for params and extra args.
func (t *Tool) Command(params map[string]string, args ...string) ([]string, error) {
	for key := range params {
		if _, ok := t.indexes[key]; !ok {
			return nil, fmt.Errorf("tool %s has no $%s placeholder: %s", t.Name, key, t.Cmdline)
		}
	}
	for key := range t.indexes {
		if _, ok := params[key]; !ok {
			return nil, fmt.Errorf("tool %s: no value for $%s", t.Name, key)
		}
	}
	argv := make([]string, 0, len(t.argv)+len(args))
	for _, arg := range t.argv {
		argv = append(argv, substitute(arg, params))
	}
	return append(argv, args...), nil
}

type toolOption func(*Tool)

func asRoot(t *Tool)      { t.root = true }
func interactive(t *Tool) { t.interactive = true }
func paged(t *Tool)       { t.paged = true }
func quiet(t *Tool)       { t.quiet = true }

func exitOK(codes ...int) toolOption {
	return func(t *Tool) { t.okCodes = codes }
}

// Toolset is the set of external tools shiori drives. It implements
// workspace.Runner.
type Toolset struct {
	tools  map[string]*Tool
	cfg    *Config
	disp   *Display
	run    *Executor
	paging bool
}

var _ workspace.Runner = (*Toolset)(nil)

// NewToolset declares the default tools. A tool NAME is overridden, in
// increasing priority, by the config key "name", $NAME and $SHIORI_NAME.
func NewToolset(cfg *Config, disp *Display, interactiveMode bool) (*Toolset, error) {
	ts := &Toolset{tools: make(map[string]*Tool), cfg: cfg, disp: disp, run: NewExecutor(disp), paging: interactiveMode}
	diff := "diff -uw"
	if interactiveMode {
		diff = "colordiff -uw"
	}
	decls := []struct {
		name string
		def  string
		opts []toolOption
	}{
		{"pager", "", []toolOption{interactive}},
		{"editor", "vim", []toolOption{interactive}},
		{"diff", diff, []toolOption{paged, exitOK(1)}},
		{"install_sync", "pacman -S", []toolOption{asRoot, interactive}},
		{"install_file", "pacman -U", []toolOption{asRoot, interactive}},
		{"download", "wget -nv -O $output $url", nil},
		{"unpack", "bsdtar -xf $filename -C $outdir", nil},
		{"build", "makepkg --log", []toolOption{interactive}},
		{"namcap", "namcap", []toolOption{paged}},
		{"sed", "sed -i", nil},
		{"git", "git", []toolOption{quiet}},
		{"mergetool", "git --git-dir=$gitdir --work-tree=$worktree mergetool", []toolOption{interactive}},
		{"repo_add", "repo-add", nil},
	}
	for _, d := range decls {
		if err := ts.declare(d.name, d.def, d.opts...); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

func (ts *Toolset) declare(name, def string, opts ...toolOption) error {
	cmdline := def
	ts.disp.Debugf("Tool `%s`, default: %s\n", name, cmdline)
	if v := ts.cfg.String(name, ""); v != "" {
		cmdline = v
		ts.disp.Debugf("Tool `%s`, from config: %s\n", name, cmdline)
	}
	for _, env := range []string{strings.ToUpper(name), "SHIORI_" + strings.ToUpper(name)} {
		if v := os.Getenv(env); v != "" {
			cmdline = v
			ts.disp.Debugf("Tool `%s`, environ %s: %s\n", name, env, cmdline)
		}
	}
	t := &Tool{Name: name}
	for _, opt := range opts {
		opt(t)
	}
	if cmdline == "" {
		// Only the pager may be empty; it then uses the built-in viewer.
		t.Cmdline = ""
		ts.tools[name] = t
		return nil
	}
	if err := t.update(cmdline); err != nil {
		return err
	}
	ts.tools[name] = t
	return nil
}

// Update replaces the command line of a declared tool.
func (ts *Toolset) Update(name, cmdline string) error {
	t, ok := ts.tools[name]
	if !ok {
		return fmt.Errorf("unknown tool %q", name)
	}
	return t.update(cmdline)
}

// Tool returns the declared tool name.
func (ts *Toolset) Tool(name string) (*Tool, bool) {
	t, ok := ts.tools[name]
	return t, ok
}

// Names lists the declared tools.
func (ts *Toolset) Names() []string {
	names := make([]string, 0, len(ts.tools))
	for name := range ts.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Available reports whether the binary of tool name can be found.
func (ts *Toolset) Available(name string) bool {
	t, ok := ts.tools[name]
	if !ok || len(t.argv) == 0 {
		return false
	}
	_, err := exec.LookPath(t.argv[0])
	return err == nil
}

func (ts *Toolset) command(c workspace.Call) (*Tool, []string, error) {
	t, ok := ts.tools[c.Tool]
	if !ok {
		return nil, nil, fmt.Errorf("unknown tool %q", c.Tool)
	}
	if len(t.argv) == 0 {
		return nil, nil, fmt.Errorf("tool %s is not configured", c.Tool)
	}
	argv, err := t.Command(c.Params, c.Args...)
	if err != nil {
		return nil, nil, err
	}
	return t, argv, nil
}

func (ts *Toolset) exec(ctx context.Context, t *Tool, argv []string, dir string, stdin io.Reader, stdout io.Writer) error {
	if stdout == nil && t.quiet && ts.disp.Verbosity < Verbose {
		stdout = io.Discard
	}
	err := ts.run.Run(ctx, execRequest{
		Argv:        argv,
		Dir:         dir,
		Stdin:       stdin,
		Stdout:      stdout,
		AsRoot:      t.root,
		Interactive: t.interactive,
	})
	var ee *exec.ExitError
	if errors.As(err, &ee) && t.ok(ee.ExitCode()) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}

// Run executes the call. Output of paged tools is shown through the pager
// in interactive mode.
func (ts *Toolset) Run(ctx context.Context, c workspace.Call) error {
	t, argv, err := ts.command(c)
	if err != nil {
		return err
	}
	ts.disp.Commandline(argv)
	if !t.paged || !ts.paging {
		return ts.exec(ctx, t, argv, c.Dir, nil, nil)
	}
	var buf bytes.Buffer
	runErr := ts.exec(ctx, t, argv, c.Dir, nil, &buf)
	if err := ts.Page(ctx, strings.Join(argv, " "), buf.Bytes()); err != nil {
		return err
	}
	return runErr
}

// Output executes the call and returns its standard output.
func (ts *Toolset) Output(ctx context.Context, c workspace.Call) ([]byte, error) {
	t, argv, err := ts.command(c)
	if err != nil {
		return nil, err
	}
	ts.disp.Commandline(argv)
	var buf bytes.Buffer
	err = ts.exec(ctx, t, argv, c.Dir, nil, &buf)
	return buf.Bytes(), err
}

// RunTool is a shorthand for Run without placeholders.
func (ts *Toolset) RunTool(ctx context.Context, name string, args ...string) error {
	return ts.Run(ctx, workspace.Call{Tool: name, Args: args})
}

// Page shows text through the configured pager, or the built-in viewer when
// none is configured.
func (ts *Toolset) Page(ctx context.Context, title string, text []byte) error {
	if len(bytes.TrimSpace(text)) == 0 {
		return nil
	}
	pager := ts.tools["pager"]
	if pager == nil || len(pager.argv) == 0 {
		return RunPager(title, strings.Split(strings.TrimRight(string(text), "\n"), "\n"))
	}
	ts.disp.Commandline(pager.argv)
	return ts.exec(ctx, pager, pager.argv, "", bytes.NewReader(text), nil)
}
