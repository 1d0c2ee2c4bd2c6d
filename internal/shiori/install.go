package shiori

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"shiori/internal/recipe"
	"shiori/internal/repodb"
	"shiori/internal/resolve"
	"shiori/internal/workspace"
)

// Manager drives one shiori run.
type Manager struct {
	cfg      *Config
	settings *Settings
	disp     *Display
	tools    *Toolset
	aur      *AURClient
	prompt   Prompter
	menu     *Menu

	installed *repodb.Index
	stock     *repodb.Index
	requested map[string]bool
}

// NewManager wires the collaborators of a run. prompt may be nil in batch
// mode.
func NewManager(cfg *Config, settings *Settings, disp *Display, tools *Toolset) *Manager {
	return &Manager{
		cfg:      cfg,
		settings: settings,
		disp:     disp,
		tools:    tools,
		aur:      NewAURClient(settings.AURURL, tools, disp),
	}
}

// complete offers the command names of the menu being shown.
func (m *Manager) complete(prefix string) []string {
	if m.menu == nil {
		return nil
	}
	return m.menu.completions(prefix)
}

func (m *Manager) openWorkspace() (*workspace.Workspace, error) {
	return workspace.Open(workspace.Options{
		StoreDir:      m.settings.GitDir,
		Branch:        m.settings.Branch,
		LocalPackages: m.settings.LocalPackages,
		TempDir:       m.settings.TempDir,
		Arch:          m.settings.Arch,
		PkgExt:        m.settings.PkgExt,
		KeepFiles:     m.settings.KeepFiles,
	}, m.tools, m.aur, m.disp)
}

func (m *Manager) loadIndexes() error {
	act := m.disp.Action("Reading local repositories")
	installed, err := repodb.LoadLocal(m.settings.Root)
	if err != nil {
		return fmt.Errorf("failed to read installed packages: %w", err)
	}
	m.installed = installed
	act.Done("%d installed", installed.Len())

	act = m.disp.Action("Reading sync repositories")
	stock, err := repodb.LoadSync(m.settings.Root, m.settings.IgnoreRepos)
	if err != nil {
		return fmt.Errorf("failed to read sync databases: %w", err)
	}
	m.stock = stock
	act.Done("%d packages", stock.Len())
	return nil
}

// InstallPackages resolves, reviews, builds and installs names.
func (m *Manager) InstallPackages(ctx context.Context, names []string) error {
	m.requested = make(map[string]bool, len(names))
	for _, name := range names {
		m.requested[name] = true
	}
	if err := m.loadIndexes(); err != nil {
		return err
	}

	act := m.disp.Action("Searching for stock packages")
	var unknown []string
	for _, name := range names {
		if !m.stock.Has(name) {
			unknown = append(unknown, name)
		}
	}
	act.Done("found %d", len(names)-len(unknown))
	if len(unknown) == 0 {
		m.disp.Title("All names found in packages, starting pacman")
		return m.tools.RunTool(ctx, "install_sync", names...)
	}

	act = m.disp.Action("Searching in AUR")
	infos, err := m.aur.Info(ctx, unknown...)
	if err != nil {
		m.disp.Warnf("%v\n", err)
	}
	act.Done("found %d", len(infos))

	ws, err := m.openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	m.disp.Title("Gathering PKGBUILDs and dependencies")
	fetch := resolve.FetcherFunc(func(ctx context.Context, name string) (*recipe.Recipe, error) {
		m.disp.Infof("fetching %s\n", name)
		return ws.Fetch(ctx, name)
	})
	res, err := resolve.Resolve(ctx, names, m.installed, m.stock, fetch)
	if err != nil {
		return err
	}
	m.summary(res)
	if nf := resolve.Sorted(res.NotFound); len(nf) > 0 {
		m.disp.Warnf("packages not found: %s\n", strings.Join(nf, ", "))
	}

	build := append(resolve.Sorted(res.Deps), resolve.Sorted(res.Targets)...)
	if len(build) == 0 && res.Stock.Cardinality() == 0 {
		return errors.New("nothing to install")
	}
	if m.settings.Interactive {
		menu := newReviewMenu(ws, m.tools, m.disp, m.prompt, build)
		m.menu = menu.Menu
		if err := menu.Run(ctx); err != nil {
			return err
		}
	}
	for _, name := range build {
		if err := ws.RecordEdit(ctx, name, "Edited package file"); err != nil {
			return err
		}
	}
	waves, err := resolve.Stage(res.TargetNodes(), res.DepNodes())
	if err != nil {
		return err
	}
	if stock := resolve.Sorted(res.Stock); len(stock) > 0 {
		if err := m.installSync(ctx, stock); err != nil {
			return err
		}
	}

	var built []string
	for _, wave := range waves {
		switch wave.Kind {
		case resolve.StockWave:
			if err := m.installSync(ctx, wave.Names); err != nil {
				return err
			}
		case resolve.AURWave:
			if err := m.buildWave(ctx, ws, res, wave.Names); err != nil {
				return err
			}
			built = append(built, wave.Names...)
		}
	}
	return m.publish(ctx, ws, built)
}

func (m *Manager) summary(res *resolve.Result) {
	if m.disp.Verbosity < Normal {
		return
	}
	table := tablewriter.NewWriter(m.disp.Out)
	table.SetHeader([]string{"Package", "Source"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	rows := []struct {
		set   []string
		label string
	}{
		{resolve.Sorted(res.NotFound), colError.Sprint("not found")},
		{resolve.Sorted(res.Targets), "aur"},
		{resolve.Sorted(res.Deps), "aur (dependency)"},
		{resolve.Sorted(res.Stock), "repository"},
	}
	for _, row := range rows {
		for _, name := range row.set {
			label := row.label
			if r := res.Recipes[name]; r != nil {
				label += " " + r.FullVersion()
			}
			table.Append([]string{name, label})
		}
	}
	if m.disp.Verbosity >= Verbose {
		for _, name := range resolve.Sorted(res.Installed) {
			table.Append([]string{name, "installed"})
		}
	}
	table.Render()
}

// split separates explicitly requested names from dependencies.
func split(names []string, explicit func(string) bool) (normal, deps []string) {
	for _, name := range names {
		if explicit(name) {
			normal = append(normal, name)
		} else {
			deps = append(deps, name)
		}
	}
	return normal, deps
}

func (m *Manager) installSync(ctx context.Context, names []string) error {
	m.disp.Title("Installing %s", strings.Join(names, " "))
	normal, deps := split(names, func(n string) bool { return m.requested[n] })
	if len(normal) > 0 {
		if err := m.tools.RunTool(ctx, "install_sync", normal...); err != nil {
			return err
		}
	}
	if len(deps) > 0 {
		return m.tools.RunTool(ctx, "install_sync", append([]string{"--asdeps"}, deps...)...)
	}
	return nil
}

func (m *Manager) buildWave(ctx context.Context, ws *workspace.Workspace, res *resolve.Result, names []string) error {
	for _, name := range names {
		act := m.disp.Action("Building %s", name)
		info, err := ws.Build(ctx, name)
		if err != nil {
			return err
		}
		act.Done("%d files, %s", info.Files, humanReadableSize(info.Unpacked))
	}
	if m.settings.Interactive {
		menu := newInstallMenu(ws, m.tools, m.disp, m.prompt, names)
		m.menu = menu.Menu
		if err := menu.Run(ctx); err != nil {
			return err
		}
	}

	var normal, deps []string
	for _, name := range names {
		pkg, err := ws.PackageFile(name)
		if err != nil {
			return err
		}
		if res.Targets.Contains(name) {
			normal = append(normal, pkg)
		} else {
			deps = append(deps, pkg)
		}
	}
	if len(normal) > 0 {
		if err := m.tools.RunTool(ctx, "install_file", normal...); err != nil {
			return err
		}
	}
	if len(deps) > 0 {
		return m.tools.RunTool(ctx, "install_file", append([]string{"--asdeps"}, deps...)...)
	}
	return nil
}

func (m *Manager) publish(ctx context.Context, ws *workspace.Workspace, names []string) error {
	if m.settings.RepoDir == "" || m.settings.RepoName == "" || len(names) == 0 {
		return nil
	}
	mirror, err := NewMirrorClient(ctx, m.cfg, m.disp)
	if err != nil {
		return err
	}
	sort.Strings(names)
	var artifacts []Artifact
	for _, name := range names {
		pkg, err := ws.PackageFile(name)
		if err != nil {
			return err
		}
		r, _ := ws.Recipe(name)
		artifacts = append(artifacts, Artifact{Name: name, Version: r.FullVersion(), Path: pkg})
	}
	m.disp.Title("Publishing to %s", m.settings.RepoDir)
	return NewPublisher(m.settings.RepoDir, m.settings.RepoName, m.tools, m.disp, mirror).Publish(ctx, artifacts)
}

// SyncRepositories pulls and pushes the stored package repositories, or
// only names when given, against every remote.
func (m *Manager) SyncRepositories(ctx context.Context, remotes, names []string) error {
	if len(remotes) == 0 && m.settings.Remote != "" {
		remotes = []string{m.settings.Remote}
	}
	if len(remotes) == 0 {
		return errors.New("no remote given and git_remote is not configured")
	}
	ws, err := m.openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()
	if len(names) == 0 {
		if names, err = ws.Stored(); err != nil {
			return err
		}
	}
	var failed []string
	for _, name := range names {
		for _, remote := range remotes {
			url := strings.TrimRight(remote, "/") + "/" + name + ".git"
			act := m.disp.Action("Syncing %s with %s", name, url)
			if err := ws.Sync(ctx, name, url); err != nil {
				m.disp.Errorf("%v\n", err)
				failed = append(failed, name)
				continue
			}
			act.Done("done")
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("sync failed for: %s", strings.Join(failed, ", "))
	}
	return nil
}
