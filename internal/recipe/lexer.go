package recipe

import "strings"

const (
	operatorChars = "=|>&"
	parenChars    = "()[]{}"
)

type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
	toks []Token
}

// Tokenize splits recipe text into tokens. Comments starting a word are
// dropped up to the end of their line.
func Tokenize(src []byte) ([]Token, error) {
	lx := &lexer{src: []rune(string(src)), line: 1, col: 1}
	for lx.pos < len(lx.src) {
		if err := lx.next(); err != nil {
			return nil, err
		}
	}
	return lx.toks, nil
}

func (lx *lexer) peek(off int) rune {
	if lx.pos+off < len(lx.src) {
		return lx.src[lx.pos+off]
	}
	return 0
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.pos < len(lx.src); i++ {
		r := lx.src[lx.pos]
		lx.pos++
		switch {
		case r == '\n':
			lx.line++
			lx.col = 1
		case r == '\r' && lx.peek(0) != '\n':
			lx.line++
			lx.col = 1
		default:
			lx.col++
		}
	}
}

func (lx *lexer) emit(kind Kind, n int) {
	lx.toks = append(lx.toks, Token{
		Kind: kind,
		Text: string(lx.src[lx.pos : lx.pos+n]),
		Line: lx.line,
		Col:  lx.col,
	})
	lx.advance(n)
}

func (lx *lexer) errorf(msg string) error {
	return &SyntaxError{Line: lx.line, Col: lx.col, Msg: msg}
}

// atBoundary reports whether the next rune starts a new word.
func (lx *lexer) atBoundary() bool {
	if len(lx.toks) == 0 {
		return true
	}
	last := lx.toks[len(lx.toks)-1]
	switch last.Kind {
	case Space, Newline:
		return true
	case Paren:
		return strings.HasSuffix(last.Text, "(") || strings.HasSuffix(last.Text, ")")
	}
	return false
}

func isNewline(r rune) bool { return r == '\n' || r == '\r' }

func isBlank(r rune) bool { return r == ' ' || r == '\t' }

func isNameStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNameChar(r rune) bool {
	return isNameStart(r) || (r >= '0' && r <= '9')
}

func (lx *lexer) next() error {
	r := lx.peek(0)
	switch {
	case isNewline(r):
		n := 1
		if r == '\r' && lx.peek(1) == '\n' {
			n = 2
		}
		lx.emit(Newline, n)
	case isBlank(r) || (r == '\\' && isNewline(lx.peek(1))):
		lx.emit(Space, lx.spaceLen())
	case r == '#' && lx.atBoundary():
		for lx.pos < len(lx.src) && !isNewline(lx.peek(0)) {
			lx.advance(1)
		}
	case r == '\'' || r == '"':
		n, ok := lx.quotedLen(r)
		if !ok {
			return lx.errorf("unterminated quote")
		}
		lx.emit(Quoted, n)
	case r == '$':
		lx.dollar()
	case r == ')':
		if lx.peek(1) == ')' {
			lx.emit(Paren, 2)
		} else {
			lx.emit(Paren, 1)
		}
	case strings.ContainsRune(parenChars, r):
		lx.emit(Paren, 1)
	case strings.ContainsRune(operatorChars, r):
		lx.emit(Operator, 1)
	default:
		lx.emit(Word, lx.wordLen())
	}
	return nil
}

// spaceLen measures a run of blanks and backslash-newline continuations.
func (lx *lexer) spaceLen() int {
	n := 0
	for {
		r := lx.peek(n)
		switch {
		case isBlank(r):
			n++
		case r == '\\' && lx.peek(n+1) == '\r' && lx.peek(n+2) == '\n':
			n += 3
		case r == '\\' && isNewline(lx.peek(n+1)):
			n += 2
		default:
			return n
		}
	}
}

func (lx *lexer) quotedLen(q rune) (int, bool) {
	for n := 1; lx.pos+n < len(lx.src); n++ {
		r := lx.peek(n)
		if q == '"' && r == '\\' {
			n++
			continue
		}
		if r == q {
			return n + 1, true
		}
	}
	return 0, false
}

func (lx *lexer) dollar() {
	switch next := lx.peek(1); {
	case next == '(' && lx.peek(2) == '(':
		lx.emit(Paren, 3)
	case next == '(' || next == '{':
		lx.emit(Paren, 2)
	case isNameStart(next):
		n := 2
		for isNameChar(lx.peek(n)) {
			n++
		}
		lx.emit(Variable, n)
	default:
		lx.emit(Word, 1)
	}
}

func (lx *lexer) wordLen() int {
	n := 0
	for lx.pos+n < len(lx.src) {
		r := lx.peek(n)
		if r == '\\' {
			if isNewline(lx.peek(n+1)) {
				break
			}
			n += 2
			continue
		}
		if isBlank(r) || isNewline(r) || r == '$' || r == '\'' || r == '"' ||
			strings.ContainsRune(operatorChars, r) || strings.ContainsRune(parenChars, r) {
			break
		}
		n++
	}
	if n == 0 {
		n = 1
	}
	if lx.pos+n > len(lx.src) {
		n = len(lx.src) - lx.pos
	}
	return n
}
