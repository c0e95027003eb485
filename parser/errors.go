package parser

import (
	"fmt"

	"github.com/alk0x1/lof/lexer"
)

// UnexpectedTokenError is returned when the parser encounters a token
// that is not valid at the current grammar position.
type UnexpectedTokenError struct {
	Tok lexer.Token
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("unexpected token %s at %s", tokenDesc(e.Tok), e.Tok.Pos)
}

// UnexpectedEOFError is returned when input ends mid-grammar-rule.
type UnexpectedEOFError struct {
	Pos lexer.Position
}

func (e *UnexpectedEOFError) Error() string {
	return fmt.Sprintf("unexpected end of input at %s", e.Pos)
}

// InvalidTypeError is returned when a type expression cannot be parsed.
type InvalidTypeError struct {
	Tok lexer.Token
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid type at %s: %s", e.Tok.Pos, tokenDesc(e.Tok))
}

// InvalidExpressionError is returned when an expression cannot be parsed.
type InvalidExpressionError struct {
	Tok lexer.Token
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid expression at %s: %s", e.Tok.Pos, tokenDesc(e.Tok))
}

func tokenDesc(t lexer.Token) string {
	if t.Type == lexer.EOF {
		return "EOF"
	}
	return fmt.Sprintf("%q", t.Literal)
}
