// Package workspace keeps one bare git repository per package. Upstream
// snapshots land on the aur branch; local edits live on a working branch
// that is checked out into a temporary work tree for review and building.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"shiori/internal/recipe"
)

// UpstreamBranch mirrors the upstream recipe snapshots.
const UpstreamBranch = "aur"

const gitignore = "*.swo\n*.swp\n*~\n*.orig\n*.bak\n"

// Call is one invocation of a named external tool. Params fill the tool's
// $placeholders; Args are appended.
type Call struct {
	Tool   string
	Args   []string
	Params map[string]string
	Dir    string
}

// Runner executes external tools.
type Runner interface {
	Run(ctx context.Context, c Call) error
	Output(ctx context.Context, c Call) ([]byte, error)
}

// Source downloads the upstream archive of a package to dest. It returns an
// error wrapping recipe.ErrPackageNotFound when upstream has no such package.
type Source interface {
	Download(ctx context.Context, name, dest string) error
}

// Logger receives progress notes.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// Options configures a Workspace.
type Options struct {
	StoreDir      string // persistent bare repositories, one per package
	Branch        string // working branch, defaults to master
	LocalPackages string // fallback recipes, <dir>/<name>/PKGBUILD
	TempDir       string // parent of the work trees
	Arch          string // CARCH
	PkgExt        string // PKGEXT
	KeepFiles     bool
}

// Workspace manages the packages of one run.
type Workspace struct {
	opts     Options
	dir      string
	runner   Runner
	src      Source
	log      Logger
	packages map[string]*recipe.Recipe
	states   map[string]map[string]FileState
	diverged map[string]bool
	behind   map[string]bool
	built    map[string]*BuildInfo
}

// Open creates the work tree root.
func Open(opts Options, runner Runner, src Source, log Logger) (*Workspace, error) {
	if opts.Branch == "" {
		opts.Branch = "master"
	}
	if opts.StoreDir == "" {
		return nil, errors.New("workspace: no git store directory configured")
	}
	if err := os.MkdirAll(opts.StoreDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", opts.StoreDir, err)
	}
	dir, err := os.MkdirTemp(opts.TempDir, "shiori-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	return &Workspace{
		opts:     opts,
		dir:      dir,
		runner:   runner,
		src:      src,
		log:      log,
		packages: make(map[string]*recipe.Recipe),
		states:   make(map[string]map[string]FileState),
		diverged: make(map[string]bool),
		behind:   make(map[string]bool),
		built:    make(map[string]*BuildInfo),
	}, nil
}

// Close removes the work trees unless they are to be kept.
func (w *Workspace) Close() error {
	if w.opts.KeepFiles {
		w.log.Warnf("keeping work files in %s", w.dir)
		return nil
	}
	return os.RemoveAll(w.dir)
}

// Dir is the root of the work trees.
func (w *Workspace) Dir() string { return w.dir }

// Branch is the working branch name.
func (w *Workspace) Branch() string { return w.opts.Branch }

// Path joins file onto the work tree of name.
func (w *Workspace) Path(name string, file ...string) string {
	return filepath.Join(append([]string{w.dir, name}, file...)...)
}

// RepoDir is the persistent repository of name.
func (w *Workspace) RepoDir(name string) string {
	return filepath.Join(w.opts.StoreDir, name)
}

// Recipe returns the current recipe of a fetched package.
func (w *Workspace) Recipe(name string) (*recipe.Recipe, bool) {
	r, ok := w.packages[name]
	return r, ok
}

// Names lists the fetched packages in sorted order.
func (w *Workspace) Names() []string {
	names := make([]string, 0, len(w.packages))
	for name := range w.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Diverged reports whether the working branch differed from upstream right
// after the last fetch.
func (w *Workspace) Diverged(name string) bool { return w.diverged[name] }

// Behind reports whether upstream has commits the working branch has not
// merged yet.
func (w *Workspace) Behind(name string) bool { return w.behind[name] }

func (w *Workspace) recipeOf(name string) (*recipe.Recipe, error) {
	r, ok := w.packages[name]
	if !ok {
		return nil, fmt.Errorf("package %s has not been fetched", name)
	}
	return r, nil
}

// reload re-reads the recipe from the work tree into the existing model.
func (w *Workspace) reload(name string) error {
	data, err := os.ReadFile(w.Path(name, recipe.FileName))
	if err != nil {
		return err
	}
	r, ok := w.packages[name]
	if !ok {
		r = &recipe.Recipe{}
	}
	if err := r.Update(data); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	w.packages[name] = r
	return nil
}
