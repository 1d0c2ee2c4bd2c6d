package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/cp"

	"shiori/internal/archive"
	"shiori/internal/recipe"
)

func (w *Workspace) gitCall(name string, args ...string) Call {
	full := append([]string{"--git-dir=" + w.RepoDir(name), "--work-tree=" + w.Path(name)}, args...)
	return Call{Tool: "git", Args: full, Dir: w.Path(name)}
}

func (w *Workspace) git(ctx context.Context, name string, args ...string) error {
	return w.runner.Run(ctx, w.gitCall(name, args...))
}

func (w *Workspace) gitOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return w.runner.Output(ctx, w.gitCall(name, args...))
}

func (w *Workspace) checkout(ctx context.Context, name, branch string) error {
	return w.git(ctx, name, "symbolic-ref", "HEAD", "refs/heads/"+branch)
}

// staged reports whether the index differs from HEAD.
func (w *Workspace) staged(ctx context.Context, name string) bool {
	return w.git(ctx, name, "diff", "--cached", "--quiet") != nil
}

func (w *Workspace) merging(name string) bool {
	_, err := os.Stat(filepath.Join(w.RepoDir(name), "MERGE_HEAD"))
	return err == nil
}

// commitAll stages the whole work tree on branch and commits it if anything
// changed or a merge is being concluded.
func (w *Workspace) commitAll(ctx context.Context, name, branch, msg string) error {
	if err := w.checkout(ctx, name, branch); err != nil {
		return err
	}
	if err := w.git(ctx, name, "add", "-A", "."); err != nil {
		return err
	}
	if !w.staged(ctx, name) && !w.merging(name) {
		w.log.Debugf("%s: nothing to commit on %s\n", name, branch)
		return nil
	}
	return w.git(ctx, name, "commit", "-q", "-m", msg)
}

// Fetch downloads the upstream recipe of name, records it on the aur branch
// and checks the working branch out into the work tree.
func (w *Workspace) Fetch(ctx context.Context, name string) (*recipe.Recipe, error) {
	if err := w.obtain(ctx, name); err != nil {
		return nil, err
	}
	if err := os.WriteFile(w.Path(name, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return nil, err
	}
	upstream, err := recipe.ReadFile(w.Path(name, recipe.FileName))
	if err != nil {
		return nil, err
	}

	repo := w.RepoDir(name)
	if _, err := os.Stat(repo); os.IsNotExist(err) {
		if err := w.runner.Run(ctx, Call{Tool: "git", Args: []string{"init", "-q", "--bare", repo}}); err != nil {
			return nil, fmt.Errorf("failed to create repository for %s: %w", name, err)
		}
	}

	msg := fmt.Sprintf("Package version %q from aur", upstream.FullVersion())
	if err := w.commitAll(ctx, name, UpstreamBranch, msg); err != nil {
		return nil, fmt.Errorf("failed to record upstream %s: %w", name, err)
	}

	branch := w.opts.Branch
	if err := w.git(ctx, name, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch); err != nil {
		if err := w.git(ctx, name, "branch", branch, UpstreamBranch); err != nil {
			return nil, fmt.Errorf("failed to create branch %s for %s: %w", branch, name, err)
		}
	}
	if err := w.checkout(ctx, name, branch); err != nil {
		return nil, err
	}
	if err := w.git(ctx, name, "reset", "-q", "--hard"); err != nil {
		return nil, fmt.Errorf("failed to check out %s for %s: %w", branch, name, err)
	}
	if err := w.advance(ctx, name, branch); err != nil {
		return nil, err
	}
	w.diverged[name] = w.git(ctx, name, "diff", "--quiet", UpstreamBranch, branch, "--") != nil

	w.packages[name] = &recipe.Recipe{}
	if err := w.reload(name); err != nil {
		delete(w.packages, name)
		return nil, err
	}
	w.states[name] = make(map[string]FileState)
	return w.packages[name], nil
}

func (w *Workspace) isAncestor(ctx context.Context, name, a, b string) bool {
	return w.git(ctx, name, "merge-base", "--is-ancestor", a, b) == nil
}

// advance fast-forwards branch to upstream when it has no commits of its
// own. A branch with local commits is kept and left for an explicit merge.
func (w *Workspace) advance(ctx context.Context, name, branch string) error {
	w.behind[name] = false
	switch {
	case w.isAncestor(ctx, name, UpstreamBranch, branch):
		return nil
	case w.isAncestor(ctx, name, branch, UpstreamBranch):
		if err := w.git(ctx, name, "merge", "-q", "--ff-only", UpstreamBranch); err != nil {
			return fmt.Errorf("failed to update %s of %s: %w", branch, name, err)
		}
		return nil
	}
	w.behind[name] = true
	w.log.Warnf("%s: %s has new changes not merged into %s, building the local version\n", name, UpstreamBranch, branch)
	return nil
}

// obtain fills the work tree of name from upstream, or from the local
// fallback directory when upstream has nothing.
func (w *Workspace) obtain(ctx context.Context, name string) error {
	tarball := filepath.Join(w.dir, name+".tar.gz")
	err := w.src.Download(ctx, name, tarball)
	switch {
	case err == nil && nonEmpty(tarball):
		if err := w.unpack(ctx, tarball); err != nil {
			return fmt.Errorf("failed to unpack %s: %w", name, err)
		}
		if _, err := os.Stat(w.Path(name, recipe.FileName)); err == nil {
			return nil
		}
		w.log.Warnf("archive for %s has no %s\n", name, recipe.FileName)
	case err != nil && !errors.Is(err, recipe.ErrPackageNotFound):
		w.log.Warnf("download of %s failed: %v\n", name, err)
	}
	return w.copyLocal(name)
}

func nonEmpty(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Size() > 0
}

// unpack tries the configured unpack tool first and falls back to the
// built-in extractor.
func (w *Workspace) unpack(ctx context.Context, tarball string) error {
	call := Call{Tool: "unpack", Params: map[string]string{"filename": tarball, "outdir": w.dir}}
	err := w.runner.Run(ctx, call)
	if err == nil {
		return nil
	}
	w.log.Debugf("unpack tool failed (%v), using internal extractor\n", err)
	return archive.Extract(tarball, w.dir)
}

func (w *Workspace) copyLocal(name string) error {
	if w.opts.LocalPackages == "" {
		return fmt.Errorf("%w: %s", recipe.ErrPackageNotFound, name)
	}
	srcDir := filepath.Join(w.opts.LocalPackages, name)
	r, err := recipe.ReadFile(filepath.Join(srcDir, recipe.FileName))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", recipe.ErrPackageNotFound, name)
	}
	if err != nil {
		return err
	}
	w.log.Debugf("using local recipe for %s from %s\n", name, srcDir)
	for _, file := range r.SourceFiles() {
		dst := w.Path(name, file)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := cp.CopyFile(dst, filepath.Join(srcDir, file)); err != nil {
			return fmt.Errorf("failed to copy %s of %s: %w", file, name, err)
		}
	}
	return nil
}

// RecordEdit commits the work tree of name onto the working branch and
// refreshes the recipe.
func (w *Workspace) RecordEdit(ctx context.Context, name, msg string) error {
	r, err := w.recipeOf(name)
	if err != nil {
		return err
	}
	for _, file := range r.FilesToEdit() {
		if err := w.Backup(name, file); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := w.commitAll(ctx, name, w.opts.Branch, msg); err != nil {
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	w.behind[name] = !w.isAncestor(ctx, name, UpstreamBranch, w.opts.Branch)
	return w.reload(name)
}

// MergeResult describes the outcome of a merge into the working branch.
type MergeResult struct {
	// Conflicts lists unmerged files; the merge is left for the user.
	Conflicts []string
	// Stashed is set when local edits were stashed and could not be
	// reapplied because of conflicts.
	Stashed bool
}

// Merge merges branch into the working branch without committing. An empty
// branch, or the working branch itself, merges the upstream branch and keeps
// uncommitted edits by stashing them around the merge.
func (w *Workspace) Merge(ctx context.Context, name, branch string) (*MergeResult, error) {
	r, err := w.recipeOf(name)
	if err != nil {
		return nil, err
	}
	for _, file := range r.FilesToEdit() {
		if err := w.Backup(name, file); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	if err := w.checkout(ctx, name, w.opts.Branch); err != nil {
		return nil, err
	}

	res := &MergeResult{}
	from := branch
	stash := false
	if branch == "" || branch == w.opts.Branch {
		from = UpstreamBranch
		stash = w.git(ctx, name, "diff", "--quiet", "HEAD", "--") != nil
	}
	if stash {
		if err := w.git(ctx, name, "stash", "push", "-q", "-m", "shiori: edits before merging "+from); err != nil {
			return nil, fmt.Errorf("failed to stash edits of %s: %w", name, err)
		}
	}

	if err := w.git(ctx, name, "merge", "--no-commit", from); err != nil {
		conflicts, cerr := w.conflicts(ctx, name)
		if cerr != nil || len(conflicts) == 0 {
			if stash {
				w.log.Warnf("%s: local edits remain stashed\n", name)
			}
			return nil, fmt.Errorf("failed to merge %s into %s of %s: %w", from, w.opts.Branch, name, err)
		}
		res.Conflicts = conflicts
		res.Stashed = stash
	} else if stash {
		if err := w.git(ctx, name, "stash", "pop", "-q"); err != nil {
			return nil, fmt.Errorf("failed to restore stashed edits of %s: %w", name, err)
		}
	}

	w.refreshStates(name)
	if len(res.Conflicts) == 0 {
		if err := w.reload(name); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (w *Workspace) conflicts(ctx context.Context, name string) ([]string, error) {
	out, err := w.gitOutput(ctx, name, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(out)), nil
}

// MergeTool runs the configured merge tool on the work tree of name.
func (w *Workspace) MergeTool(ctx context.Context, name string) error {
	if _, err := w.recipeOf(name); err != nil {
		return err
	}
	err := w.runner.Run(ctx, Call{
		Tool:   "mergetool",
		Params: map[string]string{"gitdir": w.RepoDir(name), "worktree": w.Path(name)},
		Dir:    w.Path(name),
	})
	if err != nil {
		return err
	}
	w.refreshStates(name)
	return nil
}
