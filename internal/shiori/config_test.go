package shiori

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shiori.conf")
	conf := "# shiori configuration\n" +
		"git_dir=/var/lib/shiori\n" +
		"git_my_branch=local\n" +
		"ignore_repo=(testing community-testing)\n" +
		"editor='nvim -p'\n"
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))
	t.Setenv("SHIORI_REPO_DIR", "/srv/repo")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/shiori", cfg.String("git_dir", ""))
	assert.Equal(t, "nvim -p", cfg.String("editor", ""))
	assert.Equal(t, []string{"testing", "community-testing"}, cfg.List("ignore_repo"))
	assert.Equal(t, "/srv/repo", cfg.String("repo_dir", ""))
	assert.Equal(t, "fallback", cfg.String("repo_name", "fallback"))
	assert.True(t, cfg.Has("git_my_branch"))
	assert.False(t, cfg.Has("git_remote"))
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.conf"))
	require.NoError(t, err)
	assert.Equal(t, "master", cfg.String("git_my_branch", "master"))
}

func TestLoadConfigSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shiori.conf")
	require.NoError(t, os.WriteFile(path, []byte("ignore_repo=(testing\n"), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, path)
}

func TestInitSettings(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "etc"), 0o755))
	makepkg := "CARCH=\"aarch64\"\nPKGEXT='.pkg.tar.xz'\nBUILDENV=(!distcc color)\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, MakepkgConf), []byte(makepkg), 0o644))
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg := emptyConfig()
	s, err := initSettings(cfg, root)
	require.NoError(t, err)
	assert.Equal(t, "aarch64", s.Arch)
	assert.Equal(t, ".pkg.tar.xz", s.PkgExt)
	assert.Equal(t, "/data/shiori/packages", s.GitDir)
	assert.Equal(t, "master", s.Branch)
	assert.Equal(t, "https://aur.archlinux.org", s.AURURL)

	s, err = initSettings(cfg, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "x86_64", s.Arch)
	assert.Equal(t, ".pkg.tar.zst", s.PkgExt)
}
