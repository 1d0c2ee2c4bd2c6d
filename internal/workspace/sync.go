package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Stored lists the packages that have a repository in the store.
func (w *Workspace) Stored() ([]string, error) {
	entries, err := os.ReadDir(w.opts.StoreDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(w.opts.StoreDir, e.Name(), "HEAD")); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Sync pulls the upstream and working branches of name from remote, then
// pushes both back. Branches that diverged locally are left alone by the
// pull and reported by the push.
func (w *Workspace) Sync(ctx context.Context, name, remote string) error {
	repo := w.RepoDir(name)
	if _, err := os.Stat(filepath.Join(repo, "HEAD")); err != nil {
		return fmt.Errorf("no repository for %s", name)
	}
	git := func(args ...string) error {
		return w.runner.Run(ctx, Call{Tool: "git", Args: append([]string{"--git-dir=" + repo}, args...)})
	}
	branches := []string{UpstreamBranch, w.opts.Branch}

	refspecs := make([]string, len(branches))
	for i, b := range branches {
		refspecs[i] = "refs/heads/" + b + ":refs/heads/" + b
	}
	if err := git(append([]string{"fetch", "-q", remote}, refspecs...)...); err != nil {
		w.log.Warnf("%s: pull from %s failed: %v\n", name, remote, err)
	}
	if err := git(append([]string{"push", "-q", remote}, branches...)...); err != nil {
		return fmt.Errorf("failed to push %s to %s: %w", name, remote, err)
	}
	return nil
}
