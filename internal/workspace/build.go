package workspace

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"shiori/internal/archive"
)

// BuildInfo summarises a built package.
type BuildInfo struct {
	Path     string
	Files    int
	Unpacked int64
	Elapsed  time.Duration
}

// PackageFile is the artifact path makepkg writes for name.
func (w *Workspace) PackageFile(name string) (string, error) {
	r, err := w.recipeOf(name)
	if err != nil {
		return "", err
	}
	return w.Path(name, r.PackageFile(w.opts.Arch, w.opts.PkgExt)), nil
}

// LogFiles are the build logs of name.
func (w *Workspace) LogFiles(name string) ([]string, error) {
	r, err := w.recipeOf(name)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range r.LogFiles(w.opts.Arch) {
		out = append(out, w.Path(name, f))
	}
	return out, nil
}

// Build runs the build tool in the work tree of name.
func (w *Workspace) Build(ctx context.Context, name string) (*BuildInfo, error) {
	if _, err := w.recipeOf(name); err != nil {
		return nil, err
	}
	start := time.Now()
	if err := w.runner.Run(ctx, Call{Tool: "build", Dir: w.Path(name)}); err != nil {
		return nil, fmt.Errorf("build of %s failed: %w", name, err)
	}
	info, err := w.Contents(name)
	if err != nil {
		return nil, err
	}
	info.Elapsed = time.Since(start)
	w.built[name] = info
	return info, nil
}

// Built returns the result of the last successful build of name.
func (w *Workspace) Built(name string) (*BuildInfo, bool) {
	info, ok := w.built[name]
	return info, ok
}

// Contents counts the files and unpacked bytes of the built artifact,
// ignoring makepkg's dotfile metadata.
func (w *Workspace) Contents(name string) (*BuildInfo, error) {
	pkg, err := w.PackageFile(name)
	if err != nil {
		return nil, err
	}
	members, err := archive.List(pkg)
	if err != nil {
		return nil, fmt.Errorf("failed to read package %s: %w", pkg, err)
	}
	info := &BuildInfo{Path: pkg}
	for _, m := range members {
		if m.Dir || strings.HasPrefix(path.Clean(m.Name), ".") {
			continue
		}
		info.Files++
		info.Unpacked += m.Size
	}
	return info, nil
}

// ListContents returns the member names of the built artifact.
func (w *Workspace) ListContents(name string) ([]string, error) {
	pkg, err := w.PackageFile(name)
	if err != nil {
		return nil, err
	}
	members, err := archive.List(pkg)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Name)
	}
	return out, nil
}
