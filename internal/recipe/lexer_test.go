package recipe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kt struct {
	kind Kind
	text string
}

func kinds(toks []Token) []kt {
	out := make([]kt, len(toks))
	for i, t := range toks {
		out[i] = kt{t.Kind, t.Text}
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []kt
	}{
		{
			name:  "scalar assignment",
			input: "pkgver=1.0\n",
			want:  []kt{{Word, "pkgver"}, {Operator, "="}, {Word, "1.0"}, {Newline, "\n"}},
		},
		{
			name:  "variables inside a word",
			input: "$pkgname-$pkgver.tar.gz",
			want:  []kt{{Variable, "$pkgname"}, {Word, "-"}, {Variable, "$pkgver"}, {Word, ".tar.gz"}},
		},
		{
			name:  "structural parens",
			input: "$(( ${ $( ) )) [ ] { }",
			want: []kt{
				{Paren, "$(("}, {Space, " "}, {Paren, "${"}, {Space, " "}, {Paren, "$("}, {Space, " "},
				{Paren, ")"}, {Space, " "}, {Paren, "))"}, {Space, " "}, {Paren, "["}, {Space, " "},
				{Paren, "]"}, {Space, " "}, {Paren, "{"}, {Space, " "}, {Paren, "}"},
			},
		},
		{
			name:  "operators",
			input: "a|b>c&d",
			want:  []kt{{Word, "a"}, {Operator, "|"}, {Word, "b"}, {Operator, ">"}, {Word, "c"}, {Operator, "&"}, {Word, "d"}},
		},
		{
			name:  "quoted strings are opaque",
			input: `'$x y' "a \" $b"`,
			want:  []kt{{Quoted, `'$x y'`}, {Space, " "}, {Quoted, `"a \" $b"`}},
		},
		{
			name:  "line continuation is whitespace",
			input: "a \\\n  b",
			want:  []kt{{Word, "a"}, {Space, " \\\n  "}, {Word, "b"}},
		},
		{
			name:  "crlf newline",
			input: "a\r\nb",
			want:  []kt{{Word, "a"}, {Newline, "\r\n"}, {Word, "b"}},
		},
		{
			name:  "comment skipped",
			input: "# don't panic\na=1 # trailing\n",
			want:  []kt{{Newline, "\n"}, {Word, "a"}, {Operator, "="}, {Word, "1"}, {Space, " "}, {Newline, "\n"}},
		},
		{
			name:  "comment after open paren",
			input: "d=(#runtime deps\n b)",
			want: []kt{
				{Word, "d"}, {Operator, "="}, {Paren, "("}, {Newline, "\n"},
				{Space, " "}, {Word, "b"}, {Paren, ")"},
			},
		},
		{
			name:  "comment after close paren",
			input: "d=(b)# c\n",
			want:  []kt{{Word, "d"}, {Operator, "="}, {Paren, "("}, {Word, "b"}, {Paren, ")"}, {Newline, "\n"}},
		},
		{
			name:  "hash inside word",
			input: "url#frag",
			want:  []kt{{Word, "url#frag"}},
		},
		{
			name:  "lone dollar",
			input: "$1",
			want:  []kt{{Word, "$"}, {Word, "1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, kinds(toks))
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	toks, err := Tokenize([]byte("a=1\n  b=$x\n"))
	require.NoError(t, err)

	var x Token
	for _, tok := range toks {
		if tok.Kind == Variable {
			x = tok
		}
	}
	assert.Equal(t, 2, x.Line)
	assert.Equal(t, 5, x.Col)
}

func TestTokenizeUnterminatedQuote(t *testing.T) {
	_, err := Tokenize([]byte("pkgdesc='oops\n"))
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Line)
	assert.Equal(t, 9, se.Col)
}
