package shiori

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shiori/internal/recipe"
)

// Config holds /etc/shiori.conf. The file uses the same shell syntax as
// recipes, so scalar and array values are both available.
type Config struct {
	Values recipe.Vars
}

// LoadConfig reads path (a missing file is not an error) and merges
// SHIORI_* environment overrides on top.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Values: recipe.Vars{}}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		vars, err := recipe.ParseVars(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		cfg.Values = vars
	case !os.IsNotExist(err):
		return nil, err
	}
	mergeEnvOverrides(cfg)
	return cfg, nil
}

// Merge SHIORI_* env overrides; SHIORI_GIT_DIR sets git_dir.
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "SHIORI_") {
			continue
		}
		k, v, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(k, "SHIORI_"))
		cfg.Values[key] = recipe.ScalarValue(v)
	}
}

// String returns key or def when unset or empty.
func (c *Config) String(key, def string) string {
	if v, ok := c.Values.Get(key); ok && v != "" {
		return v
	}
	return def
}

// List returns key as a list; a scalar becomes a single item.
func (c *Config) List(key string) []string {
	return c.Values.List(key)
}

// Has reports whether key is set.
func (c *Config) Has(key string) bool {
	_, ok := c.Values[key]
	return ok
}

// Settings are the values derived from Config and the command line.
type Settings struct {
	Root          string
	GitDir        string
	Branch        string
	Remote        string
	LocalPackages string
	IgnoreRepos   []string
	RepoDir       string
	RepoName      string
	AURURL        string
	TempDir       string
	Arch          string
	PkgExt        string
	Interactive   bool
	KeepFiles     bool
}

func defaultGitDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "shiori", "packages")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "shiori-packages")
	}
	return filepath.Join(home, ".local", "share", "shiori", "packages")
}

// initSettings derives Settings from cfg. CARCH and PKGEXT come from
// makepkg.conf under root.
func initSettings(cfg *Config, root string) (*Settings, error) {
	if root == "" {
		root = "/"
	}
	s := &Settings{
		Root:          root,
		GitDir:        cfg.String("git_dir", defaultGitDir()),
		Branch:        cfg.String("git_my_branch", "master"),
		Remote:        strings.TrimRight(cfg.String("git_remote", ""), "/"),
		LocalPackages: cfg.String("local_packages", ""),
		IgnoreRepos:   cfg.List("ignore_repo"),
		RepoDir:       cfg.String("repo_dir", ""),
		RepoName:      cfg.String("repo_name", ""),
		AURURL:        strings.TrimRight(cfg.String("aur_url", "https://aur.archlinux.org"), "/"),
		TempDir:       cfg.String("tmpdir", os.TempDir()),
		Arch:          "x86_64",
		PkgExt:        ".pkg.tar.zst",
	}

	data, err := os.ReadFile(filepath.Join(root, MakepkgConf))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	vars, err := recipe.ParseVars(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MakepkgConf, err)
	}
	s.Arch = vars.Lookup("CARCH", s.Arch)
	s.PkgExt = vars.Lookup("PKGEXT", s.PkgExt)
	return s, nil
}
