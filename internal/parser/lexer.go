package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// tokenKind enumerates lexical token categories. Keywords are not lexed
// specially: the parser matches identifiers case-insensitively against
// keyword spellings, while field and kind identifiers stay case-sensitive.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokComma
	tokDot
	tokLParen
	tokRParen
	tokStar
	tokEq     // =
	tokNe     // != or <>
	tokLt     // <
	tokLe     // <=
	tokGt     // >
	tokGe     // >=
	tokSemi   // ;
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokComma:
		return "','"
	case tokDot:
		return "'.'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokStar:
		return "'*'"
	case tokEq:
		return "'='"
	case tokNe:
		return "'!='"
	case tokLt:
		return "'<'"
	case tokLe:
		return "'<='"
	case tokGt:
		return "'>'"
	case tokGe:
		return "'>='"
	case tokSemi:
		return "';'"
	default:
		return "token"
	}
}

// token is one lexical token with its 1-based source position.
type token struct {
	kind tokenKind
	text string  // raw text for idents, decoded text for strings
	num  float64 // value for tokNumber
	line int
	col  int
}

// describe renders a token for error messages.
func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of query"
	case tokIdent:
		return fmt.Sprintf("%q", t.text)
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	case tokNumber:
		return fmt.Sprintf("number %s", strconv.FormatFloat(t.num, 'g', -1, 64))
	default:
		return t.kind.String()
	}
}

// lexer tokenizes query text in one forward pass, tracking line/column
// for error positions.
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
	return &SyntaxError{Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

// next returns the next token, or a SyntaxError for malformed input
// (unterminated string, bad number, stray character).
func (l *lexer) next() (token, error) {
	l.skipSpace()
	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == ',':
		l.advance(1)
		return token{kind: tokComma, line: line, col: col}, nil
	case c == '.':
		// A dot starting a number ("." followed by digit) is numeric;
		// otherwise it is a path separator.
		if l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
			return l.lexNumber(line, col)
		}
		l.advance(1)
		return token{kind: tokDot, line: line, col: col}, nil
	case c == '(':
		l.advance(1)
		return token{kind: tokLParen, line: line, col: col}, nil
	case c == ')':
		l.advance(1)
		return token{kind: tokRParen, line: line, col: col}, nil
	case c == '*':
		l.advance(1)
		return token{kind: tokStar, line: line, col: col}, nil
	case c == ';':
		l.advance(1)
		return token{kind: tokSemi, line: line, col: col}, nil
	case c == '=':
		l.advance(1)
		return token{kind: tokEq, line: line, col: col}, nil
	case c == '!':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '=' {
			l.advance(2)
			return token{kind: tokNe, line: line, col: col}, nil
		}
		return token{}, l.errorf(line, col, "unexpected character '!'")
	case c == '<':
		if l.pos+1 < len(l.src) {
			switch l.src[l.pos+1] {
			case '=':
				l.advance(2)
				return token{kind: tokLe, line: line, col: col}, nil
			case '>':
				l.advance(2)
				return token{kind: tokNe, line: line, col: col}, nil
			}
		}
		l.advance(1)
		return token{kind: tokLt, line: line, col: col}, nil
	case c == '>':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '=' {
			l.advance(2)
			return token{kind: tokGe, line: line, col: col}, nil
		}
		l.advance(1)
		return token{kind: tokGt, line: line, col: col}, nil
	case c == '\'' || c == '"':
		return l.lexString(line, col)
	case c == '-' || isDigit(c):
		return l.lexNumber(line, col)
	case isIdentStart(c):
		return l.lexIdent(line, col)
	default:
		r := rune(c)
		if c >= 0x80 {
			r = []rune(l.src[l.pos:])[0]
		}
		return token{}, l.errorf(line, col, "unexpected character %q", r)
	}
}

func (l *lexer) lexIdent(line, col int) (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.advance(1)
	}
	return token{kind: tokIdent, text: l.src[start:l.pos], line: line, col: col}, nil
}

func (l *lexer) lexNumber(line, col int) (token, error) {
	start := l.pos
	if l.pos < len(l.src) && l.src[l.pos] == '-' {
		l.advance(1)
		if l.pos >= len(l.src) || (!isDigit(l.src[l.pos]) && l.src[l.pos] != '.') {
			return token{}, l.errorf(line, col, "unexpected character '-'")
		}
	}
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.advance(1)
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.advance(1)
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.advance(1)
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		l.advance(1)
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.advance(1)
		}
		if l.pos >= len(l.src) || !isDigit(l.src[l.pos]) {
			return token{}, l.errorf(line, col, "malformed number %q", l.src[start:l.pos])
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.advance(1)
		}
	}
	text := l.src[start:l.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, l.errorf(line, col, "malformed number %q", text)
	}
	return token{kind: tokNumber, text: text, num: f, line: line, col: col}, nil
}

// lexString decodes a single- or double-quoted string with backslash
// escapes. String literals are case-sensitive.
func (l *lexer) lexString(line, col int) (token, error) {
	quote := l.src[l.pos]
	l.advance(1)
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.advance(1)
			return token{kind: tokString, text: sb.String(), line: line, col: col}, nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return token{}, l.errorf(line, col, "unterminated string literal")
			}
			esc := l.src[l.pos+1]
			switch esc {
			case '\\', '\'', '"':
				sb.WriteByte(esc)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				return token{}, l.errorf(l.line, l.col, "unknown escape sequence '\\%c'", esc)
			}
			l.advance(2)
		case '\n':
			return token{}, l.errorf(line, col, "unterminated string literal")
		default:
			sb.WriteByte(c)
			l.advance(1)
		}
	}
	return token{}, l.errorf(line, col, "unterminated string literal")
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.advance(1)
			continue
		}
		break
	}
}

// advance moves n bytes forward, maintaining line and column. Columns
// count runes, not bytes: continuation bytes of a multibyte UTF-8
// sequence (inside string literals) do not advance the column.
func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.col = 1
		case c&0xC0 == 0x80:
			// UTF-8 continuation byte: same column.
		default:
			l.col++
		}
		l.pos++
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c)) || isDigit(c)
}
