package recipe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateSource(t *testing.T) {
	vars, err := ParseVars([]byte("pkgname=foo\npkgver=1.0\nsource=($pkgname-$pkgver.tar.gz)\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"foo-1.0.tar.gz"}, vars.List("source"))
}

func TestInterpolateUndefined(t *testing.T) {
	_, err := ParseVars([]byte("pkgname=foo\nsource=($pkgname-$pkgver.tar.gz)\n"))
	var ue *UndefinedVariableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "pkgver", ue.Name)
	assert.Equal(t, 2, ue.Line)
}

func TestInterpolateOrderMatters(t *testing.T) {
	_, err := ParseVars([]byte("a=$b\nb=1\n"))
	var ue *UndefinedVariableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "b", ue.Name)
}

func TestInterpolateValues(t *testing.T) {
	src := `_base=lib
pkgname=$_base-extra
names=(one two)
joined=x$names
spliced=($names three)
quoted='$_base'
url=https://example.org/get?a=1&b=2
empty=("" keep)
flags=(a)
flags+=(b)
`
	vars, err := ParseVars([]byte(src))
	require.NoError(t, err)

	get := func(name string) string {
		s, ok := vars.Get(name)
		require.True(t, ok, name)
		return s
	}
	assert.Equal(t, "lib-extra", get("pkgname"))
	assert.Equal(t, "xone two", get("joined"))
	assert.Equal(t, []string{"one", "two", "three"}, vars.List("spliced"))
	assert.Equal(t, "$_base", get("quoted"))
	assert.Equal(t, "https://example.org/get?a=1&b=2", get("url"))
	assert.Equal(t, []string{"keep"}, vars.List("empty"))
	assert.Equal(t, []string{"a", "b"}, vars.List("flags"))
}

func TestFunctionBodiesAreNotEvaluated(t *testing.T) {
	vars, err := ParseVars([]byte("pkgname=foo\nbuild() {\n  pkgname=$undefined\n}\n"))
	require.NoError(t, err)
	assert.Equal(t, "foo", vars.Lookup("pkgname", ""))
}

func TestParseRecipe(t *testing.T) {
	r, err := ParseRecipe([]byte(sampleRecipe + "makedepends=(cmake 'ninja<2')\nprovides=(foo-bin=1.0)\ninstall=foo.install\n"))
	require.NoError(t, err)

	assert.Equal(t, "foo", r.Name)
	assert.Equal(t, "1.0", r.Version)
	assert.Equal(t, "2", r.Release)
	assert.Equal(t, []string{"bar", "baz", "qux"}, r.Depends)
	assert.Equal(t, []string{"cmake", "ninja"}, r.MakeDepends)
	assert.Equal(t, []string{"foo-bin"}, r.Provides)
	assert.Equal(t, []string{"foo", "foo-bin"}, r.Satisfies())
	assert.Equal(t, []string{"PKGBUILD", "foo.install"}, r.FilesToEdit())
	assert.Equal(t, []string{"PKGBUILD", "foo.install", "foo-1.0.tar.gz"}, r.SourceFiles())
	assert.Equal(t, "foo-1.0-2-x86_64.pkg.tar.zst", r.PackageFile("x86_64", ".pkg.tar.zst"))
	assert.Equal(t, []string{"foo-1.0-2-x86_64-build.log", "foo-1.0-2-x86_64-package.log"}, r.LogFiles("x86_64"))
}

func TestCommentsInsideArrays(t *testing.T) {
	r, err := ParseRecipe([]byte("pkgname=foo\ndepends=(#runtime deps\n  bar baz)\nmakedepends=(go)# build only\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "baz"}, r.Depends)
	assert.Equal(t, []string{"go"}, r.MakeDepends)
}

func TestPackageFileVariants(t *testing.T) {
	r, err := ParseRecipe([]byte("pkgname=(a b)\npkgver=3\npkgrel=1\nepoch=1\narch=(any)\n"))
	require.NoError(t, err)
	assert.Equal(t, "a", r.Name)
	assert.Equal(t, "a-1:3-1-any.pkg.tar.xz", r.PackageFile("x86_64", ".pkg.tar.xz"))
}

func TestSourceFilesSkipsRemote(t *testing.T) {
	r := &Recipe{Name: "x", Source: []string{"x.tar.gz::https://e.org/x", "https://e.org/y.tar.gz", "local.patch"}}
	assert.Equal(t, []string{"PKGBUILD", "local.patch"}, r.SourceFiles())
}

func TestMissingName(t *testing.T) {
	_, err := ParseRecipe([]byte("pkgver=1\n"))
	assert.ErrorIs(t, err, ErrMissingName)
}

func TestUpdate(t *testing.T) {
	r, err := ParseRecipe([]byte("pkgname=foo\npkgver=1\npkgrel=1\n"))
	require.NoError(t, err)

	require.NoError(t, r.Update([]byte("pkgname=foo\npkgver=2\npkgrel=1\ndepends=(bar)\n")))
	assert.Equal(t, "2", r.Version)
	assert.Equal(t, []string{"bar"}, r.Depends)

	require.Error(t, r.Update([]byte("pkgname='broken\n")))
	assert.Equal(t, "2", r.Version)
}

func TestStripConstraint(t *testing.T) {
	for in, want := range map[string]string{
		"foo>=1.2": "foo",
		"foo<=1":   "foo",
		"foo=1":    "foo",
		"foo<2":    "foo",
		"foo>2":    "foo",
		"foo":      "foo",
	} {
		assert.Equal(t, want, StripConstraint(in), in)
	}
}

func TestFields(t *testing.T) {
	fields, err := Fields(`wget -nv -O $output "$url"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"wget", "-nv", "-O", "$output", "$url"}, fields)
}
