// Package parser turns query text into an AST.
//
// The grammar is a small SQL subset:
//
//	query      := SELECT [DISTINCT] fieldList FROM kind [WHERE expr]
//	              [ORDER BY key [, key...]] [LIMIT int] [';']
//	fieldList  := '*' | field [AS alias] (',' field [AS alias])*
//	field      := identifier ('.' identifier)*
//	expr       := orExpr
//	orExpr     := andExpr (OR andExpr)*
//	andExpr    := notExpr (AND notExpr)*
//	notExpr    := [NOT] primary
//	primary    := '(' expr ')' | comparison
//	comparison := field compOp literal
//	            | field [NOT] IN '(' literal (',' literal)* ')'
//	            | field [NOT] BETWEEN literal AND literal
//	            | field [NOT] LIKE string
//	            | field IS [NOT] NULL
//	compOp     := '=' | '!=' | '<>' | '<' | '<=' | '>' | '>=' | LIKE
//
// Keywords match case-insensitively; identifiers and string literals are
// case-sensitive. The parser is recursive descent and reports the first
// error with its line and column.
package parser

import (
	"fmt"
	"math"
	"strings"

	"github.com/perch3d/sceneql/internal/ast"
)

// SyntaxError reports malformed query text with a 1-based position.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Parse compiles query text into an AST, or fails with *SyntaxError.
func Parse(text string) (*ast.Query, error) {
	p := &parser{lex: newLexer(text)}
	if err := p.prime(); err != nil {
		return nil, err
	}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	return q, nil
}

type parser struct {
	lex *lexer
	tok token // current token
}

// prime loads the first token.
func (p *parser) prime() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// advance consumes the current token.
func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(tok token, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: tok.line, Column: tok.col, Message: fmt.Sprintf(format, args...)}
}

// atKeyword reports whether the current token is the given keyword
// (case-insensitive identifier match).
func (p *parser) atKeyword(kw string) bool {
	return p.tok.kind == tokIdent && strings.EqualFold(p.tok.text, kw)
}

// expectKeyword consumes the given keyword or fails.
func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return p.errorf(p.tok, "expected %s, found %s", kw, p.tok.describe())
	}
	return p.advance()
}

func (p *parser) parseQuery() (*ast.Query, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	q := &ast.Query{}

	if p.atKeyword("DISTINCT") {
		q.Distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if p.tok.kind == tokStar {
		q.Star = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		fields, err := p.parseFieldList()
		if err != nil {
			return nil, err
		}
		q.Fields = fields
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	if p.tok.kind != tokIdent {
		return nil, p.errorf(p.tok, "expected entity kind after FROM, found %s", p.tok.describe())
	}
	q.From = p.tok.text
	q.FromPos = ast.Pos{Line: p.tok.line, Column: p.tok.col}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.atKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		q.Where = expr
	}

	if p.atKeyword("ORDER") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		keys, err := p.parseOrderKeys()
		if err != nil {
			return nil, err
		}
		q.OrderBy = keys
	}

	if p.atKeyword("LIMIT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseLimit()
		if err != nil {
			return nil, err
		}
		q.Limit = &n
	}

	if p.tok.kind == tokSemi {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf(p.tok, "unexpected %s after query", p.tok.describe())
	}
	return q, nil
}

func (p *parser) parseFieldList() ([]ast.SelectField, error) {
	var fields []ast.SelectField
	for {
		path, err := p.parseFieldPath()
		if err != nil {
			return nil, err
		}
		field := ast.SelectField{Path: path}

		if p.atKeyword("AS") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokIdent {
				return nil, p.errorf(p.tok, "expected alias after AS, found %s", p.tok.describe())
			}
			field.Alias = p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		fields = append(fields, field)

		if p.tok.kind != tokComma {
			return fields, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseFieldPath() (ast.FieldPath, error) {
	if p.tok.kind != tokIdent {
		return ast.FieldPath{}, p.errorf(p.tok, "expected field name, found %s", p.tok.describe())
	}
	path := ast.FieldPath{
		Segments: []string{p.tok.text},
		Pos:      ast.Pos{Line: p.tok.line, Column: p.tok.col},
	}
	if err := p.advance(); err != nil {
		return ast.FieldPath{}, err
	}
	for p.tok.kind == tokDot {
		if err := p.advance(); err != nil {
			return ast.FieldPath{}, err
		}
		if p.tok.kind != tokIdent {
			return ast.FieldPath{}, p.errorf(p.tok, "expected field name after '.', found %s", p.tok.describe())
		}
		path.Segments = append(path.Segments, p.tok.text)
		if err := p.advance(); err != nil {
			return ast.FieldPath{}, err
		}
	}
	return path, nil
}

func (p *parser) parseOrderKeys() ([]ast.OrderKey, error) {
	var keys []ast.OrderKey
	for {
		path, err := p.parseFieldPath()
		if err != nil {
			return nil, err
		}
		key := ast.OrderKey{Path: path}
		if p.atKeyword("ASC") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if p.atKeyword("DESC") {
			key.Desc = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		keys = append(keys, key)

		if p.tok.kind != tokComma {
			return keys, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseLimit() (int, error) {
	if p.tok.kind != tokNumber {
		return 0, p.errorf(p.tok, "expected row count after LIMIT, found %s", p.tok.describe())
	}
	n := p.tok.num
	if n < 0 || n != math.Trunc(n) {
		return 0, p.errorf(p.tok, "LIMIT wants a non-negative integer, found %s", p.tok.text)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	exprs := []ast.Expr{left}
	for p.atKeyword("OR") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &ast.Or{Exprs: exprs}, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	exprs := []ast.Expr{left}
	for p.atKeyword("AND") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &ast.And{Exprs: exprs}, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if p.atKeyword("NOT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	if p.tok.kind == tokLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.errorf(p.tok, "expected ')', found %s", p.tok.describe())
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ast.Expr, error) {
	path, err := p.parseFieldPath()
	if err != nil {
		return nil, err
	}

	// IS [NOT] NULL
	if p.atKeyword("IS") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		negate := false
		if p.atKeyword("NOT") {
			negate = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if !p.atKeyword("NULL") {
			return nil, p.errorf(p.tok, "expected NULL after IS, found %s", p.tok.describe())
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.IsNull{Path: path, Negate: negate}, nil
	}

	// Postfix NOT flips IN / BETWEEN / LIKE.
	negate := false
	if p.atKeyword("NOT") {
		negate = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		if !p.atKeyword("IN") && !p.atKeyword("BETWEEN") && !p.atKeyword("LIKE") {
			return nil, p.errorf(p.tok, "expected IN, BETWEEN or LIKE after NOT, found %s", p.tok.describe())
		}
	}

	switch {
	case p.atKeyword("IN"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		values, err := p.parseLiteralList()
		if err != nil {
			return nil, err
		}
		return &ast.In{Path: path, Values: values, Negate: negate}, nil

	case p.atKeyword("BETWEEN"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		lo, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("AND"); err != nil {
			return nil, err
		}
		hi, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &ast.Between{Path: path, Lo: lo, Hi: hi, Negate: negate}, nil

	case p.atKeyword("LIKE"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		pattern, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		cmp := &ast.Compare{Path: path, Op: ast.OpLike, Value: pattern}
		if negate {
			return &ast.Not{Expr: cmp}, nil
		}
		return cmp, nil
	}

	op, err := p.parseCompareOp()
	if err != nil {
		return nil, err
	}
	value, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &ast.Compare{Path: path, Op: op, Value: value}, nil
}

func (p *parser) parseCompareOp() (ast.CompareOp, error) {
	var op ast.CompareOp
	switch p.tok.kind {
	case tokEq:
		op = ast.OpEq
	case tokNe:
		op = ast.OpNe
	case tokLt:
		op = ast.OpLt
	case tokLe:
		op = ast.OpLe
	case tokGt:
		op = ast.OpGt
	case tokGe:
		op = ast.OpGe
	default:
		return 0, p.errorf(p.tok, "expected comparison operator, found %s", p.tok.describe())
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	return op, nil
}

func (p *parser) parseLiteralList() ([]ast.Literal, error) {
	if p.tok.kind != tokLParen {
		return nil, p.errorf(p.tok, "expected '(', found %s", p.tok.describe())
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var values []ast.Literal
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, lit)
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.tok.kind != tokRParen {
		return nil, p.errorf(p.tok, "expected ')', found %s", p.tok.describe())
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return values, nil
}

func (p *parser) parseLiteral() (ast.Literal, error) {
	pos := ast.Pos{Line: p.tok.line, Column: p.tok.col}
	switch {
	case p.tok.kind == tokString:
		lit := ast.Literal{Kind: ast.LitString, Str: p.tok.text, Pos: pos}
		return lit, p.advance()
	case p.tok.kind == tokNumber:
		lit := ast.Literal{Kind: ast.LitNumber, Num: p.tok.num, Pos: pos}
		return lit, p.advance()
	case p.atKeyword("TRUE"):
		lit := ast.Literal{Kind: ast.LitBool, Bool: true, Pos: pos}
		return lit, p.advance()
	case p.atKeyword("FALSE"):
		lit := ast.Literal{Kind: ast.LitBool, Bool: false, Pos: pos}
		return lit, p.advance()
	case p.atKeyword("NULL"):
		lit := ast.Literal{Kind: ast.LitNull, Pos: pos}
		return lit, p.advance()
	default:
		return ast.Literal{}, p.errorf(p.tok, "expected literal, found %s", p.tok.describe())
	}
}
