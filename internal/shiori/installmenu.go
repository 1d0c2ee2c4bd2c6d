package shiori

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shiori/internal/workspace"
)

// installMenu shows the packages of a freshly built wave before they are
// installed.
type installMenu struct {
	*Menu
	ws    *workspace.Workspace
	tools *Toolset
	names []string
}

func newInstallMenu(ws *workspace.Workspace, tools *Toolset, disp *Display, prompt Prompter, names []string) *installMenu {
	im := &installMenu{Menu: newMenu("Just built packages", disp, prompt), ws: ws, tools: tools, names: names}
	im.items = im.labels
	im.choose = func(context.Context, int) error { return nil }

	im.add(&command{names: []string{"inst", "install"}, help: "install packages", visible: true,
		run: func(context.Context, string) error { return errMenuDone }})
	im.add(&command{names: []string{"l", "list"}, usage: "LETTERS", help: "list package contents", visible: true,
		run: im.list})
	im.add(&command{names: []string{"c", "namcap"}, usage: "LETTERS", help: "check package with namcap", visible: true,
		run: im.namcap})
	im.add(&command{names: []string{"h", "help"}, help: "show commands",
		run: func(context.Context, string) error { im.help(); return nil }})
	im.add(&command{names: []string{"q"}, help: "quit", visible: true,
		run: func(context.Context, string) error { return ErrAborted }})
	return im
}

func (im *installMenu) labels() []string {
	out := make([]string, len(im.names))
	for i, name := range im.names {
		out[i] = packageLabel(im.ws, name)
	}
	return out
}

// packageLabel is name-version plus the build summary when available.
func packageLabel(ws *workspace.Workspace, name string) string {
	label := name
	if r, ok := ws.Recipe(name); ok {
		label = name + "-" + r.FullVersion()
	}
	if info, ok := ws.Built(name); ok {
		label += colNote.Sprintf(" (%d files, %s, %s)", info.Files, humanReadableSize(info.Unpacked), info.Elapsed.Round(time.Second))
	}
	return label
}

func (im *installMenu) selected(letters string) ([]string, error) {
	idx, err := im.indexes(letters)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = im.names[n]
	}
	return out, nil
}

func (im *installMenu) list(ctx context.Context, letters string) error {
	names, err := im.selected(letters)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, name := range names {
		files, err := im.ws.ListContents(name)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintf(&b, "%s: %s\n", name, f)
		}
	}
	return im.tools.Page(ctx, "contents", []byte(b.String()))
}

func (im *installMenu) namcap(ctx context.Context, letters string) error {
	names, err := im.selected(letters)
	if err != nil {
		return err
	}
	var files []string
	for _, name := range names {
		pkg, err := im.ws.PackageFile(name)
		if err != nil {
			return err
		}
		files = append(files, pkg)
	}
	return im.tools.RunTool(ctx, "namcap", files...)
}

func humanReadableSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
