package repodb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiori/internal/archive/archivetest"
)

const fooDesc = `%FILENAME%
foo-1.0-1-x86_64.pkg.tar.zst

%NAME%
foo

%VERSION%
1.0-1

%DESC%
The foo tool

%PROVIDES%
libfoo.so=1-64
foo-cli

%REPLACES%
oldfoo
`

func TestParseDesc(t *testing.T) {
	props := ParseDesc([]byte(fooDesc))
	assert.Equal(t, []string{"foo"}, props["name"])
	assert.Equal(t, []string{"1.0-1"}, props["version"])
	assert.Equal(t, []string{"libfoo.so=1-64", "foo-cli"}, props["provides"])
	assert.Equal(t, []string{"oldfoo"}, props["replaces"])
}

func TestParseDescKeyWithoutValue(t *testing.T) {
	props := ParseDesc([]byte("%NAME%\nbar\n\n%EMPTY%\n"))
	v, ok := props["empty"]
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestIndexLookup(t *testing.T) {
	foo := &Entry{Name: "foo", Provides: []string{"libfoo.so=1-64", "foo-cli"}, Replaces: []string{"oldfoo"}}
	cli := &Entry{Name: "foo-cli"}
	ix := NewIndex(foo, cli)

	assert.Equal(t, []*Entry{cli}, ix.Lookup("foo-cli"), "direct name wins over alias")
	assert.Equal(t, []*Entry{foo}, ix.Lookup("libfoo.so"))
	assert.Equal(t, []*Entry{foo}, ix.Lookup("oldfoo"))
	assert.True(t, ix.Has("oldfoo"))
	assert.False(t, ix.Has("missing"))
	assert.Empty(t, ix.Get("oldfoo"))
	assert.Equal(t, []string{"foo", "foo-cli"}, ix.Names())
}

func TestLoadLocal(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, localDir, "foo-1.0-1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "desc"), []byte(fooDesc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, localDir, "ALPM_DB_VERSION"), []byte("9\n"), 0o644))

	ix, err := LoadLocal(root)
	require.NoError(t, err)
	require.Equal(t, 1, ix.Len())

	e := ix.Get("foo")[0]
	assert.Equal(t, Installed, e.Origin)
	assert.Equal(t, "The foo tool", e.Desc)
}

func TestLoadLocalMissing(t *testing.T) {
	ix, err := LoadLocal(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
}

func TestLoadSync(t *testing.T) {
	root := t.TempDir()
	sync := filepath.Join(root, syncDir)
	require.NoError(t, os.MkdirAll(sync, 0o755))

	archivetest.Write(t, filepath.Join(sync, "core.db"), archivetest.Gzip, map[string]string{
		"foo-1.0-1/":        "",
		"foo-1.0-1/desc":    fooDesc,
		"foo-1.0-1/depends": "%DEPENDS%\nglibc\nzlib\n",
	})
	archivetest.Write(t, filepath.Join(sync, "extra.db"), archivetest.Zstd, map[string]string{
		"bar-2-1/desc": "%NAME%\nbar\n\n%VERSION%\n2-1\n",
	})
	archivetest.Write(t, filepath.Join(sync, "testing.db"), archivetest.Plain, map[string]string{
		"baz-1-1/desc": "%NAME%\nbaz\n",
	})

	ix, err := LoadSync(root, []string{"testing.db"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "foo"}, ix.Names())

	foo := ix.Get("foo")[0]
	assert.Equal(t, "core", foo.Repo)
	assert.Equal(t, Stock, foo.Origin)
	assert.Equal(t, []string{"glibc", "zlib"}, foo.Depends)
	assert.Equal(t, "extra", ix.Get("bar")[0].Repo)
	assert.True(t, ix.Has("foo-cli"))
}
