package shiori

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"shiori/internal/workspace"
)

// reviewFile is one editable file of a package under review.
type reviewFile struct {
	pkg  string
	file string
}

// reviewMenu lets the user inspect and edit the recipes of the packages
// about to be built.
type reviewMenu struct {
	*Menu
	ws    *workspace.Workspace
	tools *Toolset
	files []reviewFile
}

func newReviewMenu(ws *workspace.Workspace, tools *Toolset, disp *Display, prompt Prompter, names []string) *reviewMenu {
	rm := &reviewMenu{Menu: newMenu("Package files", disp, prompt), ws: ws, tools: tools}
	for _, name := range names {
		r, ok := ws.Recipe(name)
		if !ok {
			continue
		}
		for _, file := range r.FilesToEdit() {
			rm.files = append(rm.files, reviewFile{pkg: name, file: file})
		}
	}
	rm.items = rm.labels
	rm.choose = rm.edit

	rm.add(&command{names: []string{"done"}, help: "build packages", visible: true,
		run: func(context.Context, string) error { return errMenuDone }})
	rm.add(&command{names: []string{"d", "diff", "dall", "diffall"}, usage: "LETTERS", help: "show differences", visible: true,
		run: rm.diff})
	rm.add(&command{names: []string{"e"}, usage: "NAME", help: "change editor", visible: true,
		run: rm.setTool("editor")})
	rm.add(&command{names: []string{"setdiff"}, usage: "COMMAND", help: "set diff command",
		run: rm.setTool("diff")})
	rm.add(&command{names: []string{"namcap"}, usage: "LETTERS", help: "check PKGBUILD with namcap",
		run: rm.namcap})
	rm.add(&command{names: []string{"bump", "up", "ver", "version"}, usage: "LET VER", help: "change version (also set pkgrel to 1)",
		run: rm.bump})
	rm.add(&command{names: []string{"nrel", "newrelease", "nr"}, usage: "LETTERS", help: "increment pkgrel number",
		run: rm.newRelease})
	rm.add(&command{names: []string{"m"}, usage: "LET [BRANCH]", help: "merge branch",
		run: rm.merge})
	rm.add(&command{names: []string{"mt", "mtool"}, usage: "LETTERS", help: "run git mergetool",
		run: rm.mergeTool})
	rm.add(&command{names: []string{"h", "help"}, help: "show commands", visible: true,
		run: func(context.Context, string) error { rm.help(); return nil }})
	rm.add(&command{names: []string{"q"}, help: "quit", visible: true,
		run: func(context.Context, string) error { return ErrAborted }})
	return rm
}

func (rm *reviewMenu) labels() []string {
	out := make([]string, len(rm.files))
	for i, f := range rm.files {
		state := rm.ws.State(f.pkg, f.file)
		label := fmt.Sprintf("%-9s %s/%s", "["+state.String()+"]", f.pkg, f.file)
		switch state {
		case workspace.FileNew:
			label = colWarn.Sprint(label)
		case workspace.FileModified:
			label = colSuccess.Sprint(label)
		}
		switch {
		case f.file != "PKGBUILD":
		case rm.ws.Behind(f.pkg):
			label += colWarn.Sprint(" (" + workspace.UpstreamBranch + " has unmerged changes)")
		case rm.ws.Diverged(f.pkg):
			label += colNote.Sprint(" (differs from " + workspace.UpstreamBranch + ")")
		}
		out[i] = label
	}
	return out
}

func (rm *reviewMenu) edit(ctx context.Context, i int) error {
	f := rm.files[i]
	_, err := rm.ws.Edit(ctx, f.pkg, f.file)
	return err
}

func (rm *reviewMenu) selected(letters string) ([]reviewFile, error) {
	idx, err := rm.indexes(letters)
	if err != nil {
		return nil, err
	}
	out := make([]reviewFile, len(idx))
	for i, n := range idx {
		out[i] = rm.files[n]
	}
	return out, nil
}

// packages returns the distinct packages of the selected files.
func (rm *reviewMenu) packages(letters string) ([]string, error) {
	files, err := rm.selected(letters)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, f := range files {
		if !seen[f.pkg] {
			seen[f.pkg] = true
			out = append(out, f.pkg)
		}
	}
	return out, nil
}

func (rm *reviewMenu) diff(ctx context.Context, letters string) error {
	if letters == "" {
		letters = "all"
	}
	files, err := rm.selected(letters)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, f := range files {
		cur := rm.ws.Path(f.pkg, f.file)
		orig := rm.ws.OrigPath(f.pkg, f.file)
		if _, err := os.Stat(orig); err != nil {
			continue
		}
		out, err := rm.tools.Output(ctx, workspace.Call{Tool: "diff", Args: []string{orig, cur}})
		if err != nil {
			return err
		}
		buf.Write(out)
	}
	if buf.Len() == 0 {
		rm.disp.Infof("no changes\n")
		return nil
	}
	return rm.tools.Page(ctx, "diff", buf.Bytes())
}

func (rm *reviewMenu) setTool(tool string) func(context.Context, string) error {
	return func(_ context.Context, cmdline string) error {
		if cmdline == "" {
			t, _ := rm.tools.Tool(tool)
			rm.disp.Infof("%s: %s\n", tool, t.Cmdline)
			return nil
		}
		return rm.tools.Update(tool, cmdline)
	}
}

func (rm *reviewMenu) namcap(ctx context.Context, letters string) error {
	files, err := rm.selected(letters)
	if err != nil {
		return err
	}
	var paths []string
	for _, f := range files {
		paths = append(paths, rm.ws.Path(f.pkg, f.file))
	}
	return rm.tools.RunTool(ctx, "namcap", paths...)
}

// sed rewrites the PKGBUILD of pkg with a sed program, keeping the review
// state current.
func (rm *reviewMenu) sed(ctx context.Context, pkg, program string) error {
	const file = "PKGBUILD"
	if err := rm.ws.Backup(pkg, file); err != nil {
		return err
	}
	if err := rm.tools.RunTool(ctx, "sed", program, rm.ws.Path(pkg, file)); err != nil {
		return err
	}
	_, err := rm.ws.CheckState(pkg, file)
	return err
}

func (rm *reviewMenu) bump(ctx context.Context, arg string) error {
	letters, ver, ok := strings.Cut(arg, " ")
	ver = strings.TrimSpace(ver)
	if !ok || ver == "" {
		return errors.New("usage: bump LET VER")
	}
	if strings.ContainsAny(ver, "/;{}\\") {
		return fmt.Errorf("invalid version %q", ver)
	}
	pkgs, err := rm.packages(letters)
	if err != nil {
		return err
	}
	for _, pkg := range pkgs {
		if err := rm.sed(ctx, pkg, "{s/^pkgver=.*/pkgver="+ver+"/;s/^pkgrel=.*/pkgrel=1/}"); err != nil {
			return err
		}
	}
	return nil
}

func (rm *reviewMenu) newRelease(ctx context.Context, letters string) error {
	pkgs, err := rm.packages(letters)
	if err != nil {
		return err
	}
	for _, pkg := range pkgs {
		r, _ := rm.ws.Recipe(pkg)
		rel, err := strconv.Atoi(r.Release)
		if err != nil {
			return fmt.Errorf("%s: pkgrel %q is not a number", pkg, r.Release)
		}
		if err := rm.sed(ctx, pkg, "{s/^pkgrel=.*/pkgrel="+strconv.Itoa(rel+1)+"/}"); err != nil {
			return err
		}
	}
	return nil
}

func (rm *reviewMenu) merge(ctx context.Context, arg string) error {
	letters, branch, _ := strings.Cut(arg, " ")
	pkgs, err := rm.packages(letters)
	if err != nil {
		return err
	}
	for _, pkg := range pkgs {
		res, err := rm.ws.Merge(ctx, pkg, strings.TrimSpace(branch))
		if err != nil {
			return err
		}
		if len(res.Conflicts) > 0 {
			rm.disp.Warnf("%s: conflicts in %s, resolve them with mt\n", pkg, strings.Join(res.Conflicts, ", "))
		}
		if res.Stashed {
			rm.disp.Warnf("%s: local edits are kept in the git stash\n", pkg)
		}
	}
	return nil
}

func (rm *reviewMenu) mergeTool(ctx context.Context, letters string) error {
	pkgs, err := rm.packages(letters)
	if err != nil {
		return err
	}
	for _, pkg := range pkgs {
		if err := rm.ws.MergeTool(ctx, pkg); err != nil {
			return err
		}
	}
	return nil
}
