package recipe

import "strings"

// Kind classifies a lexical token of a recipe file.
type Kind int

const (
	Word Kind = iota
	Quoted
	Variable
	Operator
	Paren
	Space
	Newline
)

var kindNames = [...]string{
	Word:     "word",
	Quoted:   "quoted",
	Variable: "variable",
	Operator: "operator",
	Paren:    "paren",
	Space:    "whitespace",
	Newline:  "newline",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Token is a single lexeme with its 1-based source position.
type Token struct {
	Kind Kind
	Text string
	Line int
	Col  int
}

// Is reports whether t has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// VarName returns the referenced name of a Variable token.
func (t Token) VarName() string {
	return strings.TrimPrefix(t.Text, "$")
}

// Unquote strips the surrounding quotes of a Quoted token. Double quoted
// text also drops the backslash of escaped quotes.
func (t Token) Unquote() string {
	if t.Kind != Quoted || len(t.Text) < 2 {
		return t.Text
	}
	inner := t.Text[1 : len(t.Text)-1]
	if t.Text[0] == '"' {
		inner = strings.ReplaceAll(inner, `\"`, `"`)
	}
	return inner
}
