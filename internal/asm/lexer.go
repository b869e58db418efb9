package asm

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokBytes
	tokIntVar   // $name or $N
	tokFloatVar // %name or %N
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokInt:
		return "integer"
	case tokFloat:
		return "float"
	case tokString:
		return "string"
	case tokBytes:
		return "byte array"
	case tokIntVar, tokFloatVar:
		return "variable"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokenKind
	text string // source text; for punctuation the character itself
	line int
	col  int

	i int64   // tokInt
	f float32 // tokFloat
	s string  // tokString, variable name without sigil
	b []byte  // tokBytes
}

func (t token) is(punct string) bool {
	return t.kind == tokPunct && t.text == punct
}

func (t token) describe() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return strconv.Quote(t.text)
}

// SyntaxError reports malformed text at a source position.
type SyntaxError struct {
	Line    int
	Col     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: line, Col: col, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekByte(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

// skip consumes whitespace and comments.
func (l *lexer) skip() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance(1)
		case c == '/' && l.peekByte(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance(1)
			}
		case c == '/' && l.peekByte(1) == '*':
			line, col := l.line, l.col
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf(line, col, "unterminated comment")
			}
			l.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *lexer) ident() string {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.advance(size)
	}
	return l.src[start:l.pos]
}

func (l *lexer) next() (token, error) {
	if err := l.skip(); err != nil {
		return token{}, err
	}
	tok := token{line: l.line, col: l.col}
	if l.pos >= len(l.src) {
		tok.kind = tokEOF
		return tok, nil
	}

	c := l.src[l.pos]
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	switch {
	case isIdentStart(r):
		tok.kind = tokIdent
		tok.text = l.ident()
		return tok, nil
	case c >= '0' && c <= '9':
		return l.number(tok)
	case c == '"':
		return l.str(tok)
	case c == '#' && l.peekByte(1) == '[':
		return l.bytes(tok)
	case c == '$' || c == '%':
		return l.variable(tok)
	case strings.IndexByte("{}();:,<>+-*/!", c) >= 0:
		l.advance(1)
		tok.kind = tokPunct
		tok.text = string(c)
		return tok, nil
	}
	return tok, l.errorf(tok.line, tok.col, "unexpected character %q", r)
}

func (l *lexer) number(tok token) (token, error) {
	start := l.pos
	if l.peekByte(0) == '0' && (l.peekByte(1) == 'x' || l.peekByte(1) == 'X') {
		l.advance(2)
		for isHexDigit(l.peekByte(0)) {
			l.advance(1)
		}
		tok.text = l.src[start:l.pos]
		v, err := strconv.ParseInt(tok.text, 0, 64)
		if err != nil || len(tok.text) == 2 {
			return tok, l.errorf(tok.line, tok.col, "bad integer %q", tok.text)
		}
		tok.kind = tokInt
		tok.i = v
		return tok, nil
	}

	digits := func() {
		for l.peekByte(0) >= '0' && l.peekByte(0) <= '9' {
			l.advance(1)
		}
	}
	digits()
	isFloat := false
	if l.peekByte(0) == '.' {
		isFloat = true
		l.advance(1)
		digits()
	}
	if c := l.peekByte(0); c == 'e' || c == 'E' {
		isFloat = true
		l.advance(1)
		if c := l.peekByte(0); c == '+' || c == '-' {
			l.advance(1)
		}
		digits()
	}
	body := l.src[start:l.pos]
	if l.peekByte(0) == 'f' {
		l.advance(1)
		tok.text = l.src[start:l.pos]
		v, err := strconv.ParseFloat(body, 32)
		if err != nil {
			return tok, l.errorf(tok.line, tok.col, "bad float %q", tok.text)
		}
		tok.kind = tokFloat
		tok.f = float32(v)
		return tok, nil
	}
	tok.text = body
	if isFloat {
		return tok, l.errorf(tok.line, tok.col, "float %q needs an f suffix", body)
	}
	v, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return tok, l.errorf(tok.line, tok.col, "bad integer %q", body)
	}
	tok.kind = tokInt
	tok.i = v
	return tok, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *lexer) str(tok token) (token, error) {
	start := l.pos
	i := l.pos + 1
	for {
		if i >= len(l.src) || l.src[i] == '\n' {
			return tok, l.errorf(tok.line, tok.col, "unterminated string")
		}
		if l.src[i] == '\\' {
			i += 2
			continue
		}
		if l.src[i] == '"' {
			break
		}
		i++
	}
	l.advance(i + 1 - l.pos)
	tok.text = l.src[start:l.pos]
	s, err := strconv.Unquote(tok.text)
	if err != nil {
		return tok, l.errorf(tok.line, tok.col, "bad string %s", tok.text)
	}
	tok.kind = tokString
	tok.s = s
	return tok, nil
}

func (l *lexer) bytes(tok token) (token, error) {
	start := l.pos
	end := strings.IndexByte(l.src[l.pos:], ']')
	if end < 0 {
		return tok, l.errorf(tok.line, tok.col, "unterminated byte array")
	}
	body := l.src[l.pos+2 : l.pos+end]
	l.advance(end + 1)
	tok.text = l.src[start:l.pos]
	b, err := hex.DecodeString(strings.Join(strings.Fields(body), ""))
	if err != nil {
		return tok, l.errorf(tok.line, tok.col, "bad byte array: %v", err)
	}
	tok.kind = tokBytes
	tok.b = b
	return tok, nil
}

func (l *lexer) variable(tok token) (token, error) {
	sigil := l.peekByte(0)
	start := l.pos
	l.advance(1)
	tok.kind = tokIntVar
	if sigil == '%' {
		tok.kind = tokFloatVar
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	switch {
	case isIdentStart(r):
		tok.s = l.ident()
	case r == '-' || (r >= '0' && r <= '9'):
		numStart := l.pos
		if r == '-' {
			l.advance(1)
		}
		for l.peekByte(0) >= '0' && l.peekByte(0) <= '9' {
			l.advance(1)
		}
		tok.s = l.src[numStart:l.pos]
		if _, err := strconv.ParseInt(tok.s, 10, 32); err != nil {
			return tok, l.errorf(tok.line, tok.col, "bad variable %q", l.src[start:l.pos])
		}
	default:
		return tok, l.errorf(tok.line, tok.col, "expected variable name after %q", sigil)
	}
	tok.text = l.src[start:l.pos]
	return tok, nil
}
