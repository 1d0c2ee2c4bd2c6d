package recipe

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRecipe = `# Maintainer: someone <someone@example.org>
pkgname=foo
pkgver=1.0
pkgrel=2
arch=('x86_64')
depends=('bar>=2.0' baz
         qux)
source=($pkgname-$pkgver.tar.gz)

build() {
  cd "$srcdir/$pkgname-$pkgver"
  make
}

package()
{
  make DESTDIR="$pkgdir" install
}
`

func TestParseStatements(t *testing.T) {
	stmts, err := Parse([]byte(sampleRecipe))
	require.NoError(t, err)
	require.Len(t, stmts, 8)

	assert.IsType(t, &Assignment{}, stmts[0])
	assert.Equal(t, "pkgname", stmts[0].(*Assignment).Name)

	deps, ok := stmts[4].(*ArrayAssignment)
	require.True(t, ok)
	assert.Equal(t, "depends", deps.Name)
	assert.Len(t, deps.Elements, 3)

	build, ok := stmts[6].(*FunctionDefinition)
	require.True(t, ok)
	assert.Equal(t, "build", build.Name)
	require.Len(t, build.Body, 2)
	assert.IsType(t, &CommandLine{}, build.Body[0])

	pkg, ok := stmts[7].(*FunctionDefinition)
	require.True(t, ok)
	assert.Equal(t, "package", pkg.Name)
	assert.Len(t, pkg.Body, 1)
}

func TestParseDeterministic(t *testing.T) {
	a, err := Parse([]byte(sampleRecipe))
	require.NoError(t, err)
	b, err := Parse([]byte(sampleRecipe))
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("parse is not deterministic (-first +second):\n%s", diff)
	}
}

func TestParseFunctionOnOneLine(t *testing.T) {
	stmts, err := Parse([]byte("prepare() { patch -p1 < fix.patch; }\npkgname=x\n"))
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	fn := stmts[0].(*FunctionDefinition)
	require.Len(t, fn.Body, 1)
	assert.Equal(t, "pkgname", stmts[1].(*Assignment).Name)
}

func TestParseNestedBraces(t *testing.T) {
	src := "package() {\n  if true; then { echo ${pkgname}; }; fi\n}\n"
	stmts, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Len(t, stmts[0].(*FunctionDefinition).Body, 1)
}

func TestParseAppendAssignment(t *testing.T) {
	stmts, err := Parse([]byte("depends+=(extra)\n"))
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, "depends+", stmts[0].(*ArrayAssignment).Name)
}

func TestParseCommandLine(t *testing.T) {
	stmts, err := Parse([]byte("export CFLAGS\n"))
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	cl := stmts[0].(*CommandLine)
	args := cl.Args()
	require.Len(t, args, 2)
	assert.Equal(t, "export", args[0][0].Text)
	assert.Equal(t, "CFLAGS", args[1][0].Text)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
		line  int
		col   int
	}{
		{"unterminated quote", "pkgdesc=\"never closed\n", "unterminated quote", 1, 9},
		{"unterminated array", "depends=(a b\n", "unterminated array", 1, 9},
		{"junk after array", "depends=(a) b\n", "expected newline after array", 1, 13},
		{"bad function header", "build(x) {\n}\n", "malformed function header", 1, 1},
		{"function without brace", "build()\nmake\n", "malformed function header", 1, 1},
		{"unterminated body", "build() {\n  make\n", "unterminated function body", 1, 9},
		{"stray brace", "}\n", "unexpected }", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			var se *SyntaxError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, tt.msg, se.Msg)
			assert.Equal(t, tt.line, se.Line)
			assert.Equal(t, tt.col, se.Col)
		})
	}
}
