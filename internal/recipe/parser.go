package recipe

import "strings"

// Statement is one top-level or function-body construct of a recipe.
type Statement interface {
	Position() (line, col int)
	statement()
}

// Assignment is NAME=value on a single line.
type Assignment struct {
	Name  string
	Value []Token
	Line  int
	Col   int
}

// ArrayAssignment is NAME=( ... ). Each element keeps its raw tokens.
type ArrayAssignment struct {
	Name     string
	Elements [][]Token
	Line     int
	Col      int
}

// FunctionDefinition is NAME() { ... }.
type FunctionDefinition struct {
	Name string
	Body []Statement
	Line int
	Col  int
}

// CommandLine is any other line, kept as raw tokens.
type CommandLine struct {
	Tokens []Token
	Line   int
	Col    int
}

func (s *Assignment) Position() (int, int)         { return s.Line, s.Col }
func (s *ArrayAssignment) Position() (int, int)    { return s.Line, s.Col }
func (s *FunctionDefinition) Position() (int, int) { return s.Line, s.Col }
func (s *CommandLine) Position() (int, int)        { return s.Line, s.Col }

func (*Assignment) statement()         {}
func (*ArrayAssignment) statement()    {}
func (*FunctionDefinition) statement() {}
func (*CommandLine) statement()        {}

// Args splits the command line into words on whitespace tokens.
func (s *CommandLine) Args() [][]Token {
	return splitWords(s.Tokens)
}

type parser struct {
	toks []Token
	pos  int
}

// Parse turns recipe text into statements. It never evaluates anything.
func Parse(src []byte) ([]Statement, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.block(nil)
}

func (p *parser) eof() bool { return p.pos >= len(p.toks) }

func (p *parser) peekIs(off int, kind Kind, text string) bool {
	if p.pos+off >= len(p.toks) {
		return false
	}
	return p.toks[p.pos+off].Is(kind, text)
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) skip(kinds ...Kind) {
	for !p.eof() {
		k := p.toks[p.pos].Kind
		match := false
		for _, want := range kinds {
			if k == want {
				match = true
				break
			}
		}
		if !match {
			return
		}
		p.pos++
	}
}

func syntaxAt(t Token, msg string) error {
	return &SyntaxError{Line: t.Line, Col: t.Col, Msg: msg}
}

// block parses statements until EOF, or until the "}" closing open.
func (p *parser) block(open *Token) ([]Statement, error) {
	var stmts []Statement
	for {
		p.skip(Space, Newline)
		if p.eof() {
			if open != nil {
				return nil, syntaxAt(*open, "unterminated function body")
			}
			return stmts, nil
		}
		tok := p.toks[p.pos]
		if tok.Is(Paren, "}") {
			if open == nil {
				return nil, syntaxAt(tok, "unexpected }")
			}
			p.pos++
			return stmts, nil
		}
		st, err := p.statement(open != nil)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
}

func (p *parser) statement(inBlock bool) (Statement, error) {
	tok := p.toks[p.pos]
	if tok.Kind == Word {
		if p.peekIs(1, Operator, "=") && isAssignName(tok.Text) {
			return p.assignment(inBlock)
		}
		if p.peekIs(1, Paren, "(") {
			return p.function()
		}
	}
	return &CommandLine{Tokens: p.line(inBlock), Line: tok.Line, Col: tok.Col}, nil
}

// isAssignName accepts shell identifiers, optionally suffixed by "+" for
// appending assignments.
func isAssignName(s string) bool {
	s = strings.TrimSuffix(s, "+")
	if s == "" || !isNameStart(rune(s[0])) {
		return false
	}
	for _, r := range s[1:] {
		if !isNameChar(r) {
			return false
		}
	}
	return true
}

func (p *parser) assignment(inBlock bool) (Statement, error) {
	name := p.next()
	p.pos++ // =
	if p.peekIs(0, Paren, "(") {
		return p.array(name, inBlock)
	}
	return &Assignment{
		Name:  name.Text,
		Value: p.line(inBlock),
		Line:  name.Line,
		Col:   name.Col,
	}, nil
}

func (p *parser) array(name Token, inBlock bool) (Statement, error) {
	open := p.next()
	var elems [][]Token
	var cur []Token
	flush := func() {
		if len(cur) > 0 {
			elems = append(elems, cur)
			cur = nil
		}
	}
	depth := 1
	for depth > 0 {
		if p.eof() {
			return nil, syntaxAt(open, "unterminated array")
		}
		t := p.next()
		switch {
		case t.Kind == Space || t.Kind == Newline:
			flush()
			continue
		case t.Is(Paren, "(") || t.Is(Paren, "$("):
			depth++
		case t.Is(Paren, "$(("):
			depth += 2
		case t.Is(Paren, ")"):
			depth--
		case t.Is(Paren, "))"):
			depth -= 2
		}
		if depth < 0 {
			return nil, syntaxAt(t, "unbalanced )")
		}
		if depth > 0 {
			cur = append(cur, t)
		}
	}
	flush()

	p.skip(Space)
	if !p.eof() {
		t := p.toks[p.pos]
		switch {
		case t.Kind == Newline:
			p.pos++
		case inBlock && t.Is(Paren, "}"):
		default:
			return nil, syntaxAt(t, "expected newline after array")
		}
	}
	return &ArrayAssignment{Name: name.Text, Elements: elems, Line: name.Line, Col: name.Col}, nil
}

func (p *parser) function() (Statement, error) {
	name := p.next()
	p.pos++ // (
	if !p.peekIs(0, Paren, ")") {
		return nil, syntaxAt(name, "malformed function header")
	}
	p.pos++
	p.skip(Space, Newline)
	if !p.peekIs(0, Paren, "{") {
		return nil, syntaxAt(name, "malformed function header")
	}
	open := p.next()
	body, err := p.block(&open)
	if err != nil {
		return nil, err
	}
	return &FunctionDefinition{Name: name.Text, Body: body, Line: name.Line, Col: name.Col}, nil
}

// line collects tokens up to the end of the line. Inside a function body an
// unbalanced "}" ends the line too and is left for the caller.
func (p *parser) line(inBlock bool) []Token {
	var toks []Token
	depth := 0
	for !p.eof() {
		t := p.toks[p.pos]
		if t.Kind == Newline {
			p.pos++
			break
		}
		if t.Kind == Paren {
			switch t.Text {
			case "{", "${":
				depth++
			case "}":
				if depth == 0 && inBlock {
					return trimSpace(toks)
				}
				depth--
			}
		}
		toks = append(toks, t)
		p.pos++
	}
	return trimSpace(toks)
}

func trimSpace(toks []Token) []Token {
	for len(toks) > 0 && toks[len(toks)-1].Kind == Space {
		toks = toks[:len(toks)-1]
	}
	return toks
}

func splitWords(toks []Token) [][]Token {
	var words [][]Token
	var cur []Token
	for _, t := range toks {
		if t.Kind == Space || t.Kind == Newline {
			if len(cur) > 0 {
				words = append(words, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		words = append(words, cur)
	}
	return words
}
