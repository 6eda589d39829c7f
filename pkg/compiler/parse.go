package compiler

import (
	"lumen/pkg/errors"
	"lumen/pkg/lexer"
)

func (c *Compiler) advance() {
	c.prev = c.cur
	for {
		c.cur = c.lex.NextToken()
		if c.cur.Type != lexer.TokenIllegal {
			break
		}
		c.errorAtCur(c.cur.Lexeme)
	}
}

func (c *Compiler) check(t lexer.TokenType) bool {
	return c.cur.Type == t
}

func (c *Compiler) match(t lexer.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t lexer.TokenType, msg string) {
	if c.cur.Type == t {
		c.advance()
		return
	}
	c.errorAtCur(msg)
}

func (c *Compiler) pos(tok lexer.Token) errors.Position {
	return errors.Position{Line: tok.Line, Column: tok.Column, StartPos: tok.StartPos, EndPos: tok.EndPos, Source: c.src}
}

func (c *Compiler) errorAtCur(msg string) {
	c.errorAt(c.cur, msg)
}

func (c *Compiler) errorAtPrev(msg string) {
	c.errorAt(c.prev, msg)
}

func (c *Compiler) errorAt(tok lexer.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.errs = append(c.errs, errors.NewCompileError(c.pos(tok), "%s", msg))
}

// synchronize skips tokens until a likely statement boundary, so one
// syntax error doesn't cascade into a wall of spurious follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.cur.Type != lexer.TokenEOF {
		if c.prev.Type == lexer.TokenSemicolon {
			return
		}
		switch c.cur.Type {
		case lexer.TokenClass, lexer.TokenFun, lexer.TokenVar, lexer.TokenFor,
			lexer.TokenIf, lexer.TokenWhile, lexer.TokenPrint, lexer.TokenReturn:
			return
		}
		c.advance()
	}
}
