package compiler

import (
	"lumen/pkg/bytecode"
	"lumen/pkg/lexer"
	"lumen/pkg/vm"
	"strconv"
)

func (c *Compiler) number(canAssign bool) {
	n, err := strconv.ParseFloat(c.prev.Lexeme, 64)
	if err != nil {
		c.errorAtPrev("Invalid number literal.")
		return
	}
	c.emitConstant(vm.Number(n))
}

func (c *Compiler) string(canAssign bool) {
	c.emitConstant(vm.Obj(c.vmRef.CopyString(c.prev.Lexeme)))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.prev.Type {
	case lexer.TokenFalse:
		c.emitOp(bytecode.OpFalse)
	case lexer.TokenTrue:
		c.emitOp(bytecode.OpTrue)
	case lexer.TokenNil:
		c.emitOp(bytecode.OpNil)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.prev.Type
	c.parsePrecedence(PrecUnary)
	switch opType {
	case lexer.TokenMinus:
		c.emitOp(bytecode.OpNegate)
	case lexer.TokenBang:
		c.emitOp(bytecode.OpNot)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.prev.Type
	rule := getRule(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case lexer.TokenPlus:
		c.emitOp(bytecode.OpAdd)
	case lexer.TokenMinus:
		c.emitOp(bytecode.OpSubtract)
	case lexer.TokenStar:
		c.emitOp(bytecode.OpMultiply)
	case lexer.TokenSlash:
		c.emitOp(bytecode.OpDivide)
	case lexer.TokenEqualEqual:
		c.emitOp(bytecode.OpEqual)
	case lexer.TokenBangEqual:
		c.emitOp(bytecode.OpEqual)
		c.emitOp(bytecode.OpNot)
	case lexer.TokenGreater:
		c.emitOp(bytecode.OpGreater)
	case lexer.TokenGreaterEqual:
		c.emitOp(bytecode.OpLess)
		c.emitOp(bytecode.OpNot)
	case lexer.TokenLess:
		c.emitOp(bytecode.OpLess)
	case lexer.TokenLessEqual:
		c.emitOp(bytecode.OpGreater)
		c.emitOp(bytecode.OpNot)
	}
}

// and short-circuits: if the left operand is falsey, its value (still on
// the stack) is the result and the right operand is skipped entirely.
func (c *Compiler) and(canAssign bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

// or short-circuits the opposite way: a truthy left operand skips the
// right operand.
func (c *Compiler) or(canAssign bool) {
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	endJump := c.emitJump(bytecode.OpJump)
	c.patchJump(elseJump)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.prev.Lexeme, canAssign)
}

// namedVariable resolves name to a local slot, an upvalue, or a global
// (in that order, matching the lexical scoping rules), emitting the
// matching get/set opcode pair.
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp bytecode.OpCode
	var arg int

	if slot := c.resolveLocal(name); slot != -1 {
		getOp, setOp, arg = bytecode.OpGetLocal, bytecode.OpSetLocal, slot
	} else if up := c.resolveUpvalue(name); up != -1 {
		getOp, setOp, arg = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue, up
	} else {
		getOp, setOp, arg = bytecode.OpGetGlobal, bytecode.OpSetGlobal, int(c.identifierConstant(name))
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitOp(bytecode.OpCall0 + bytecode.OpCode(argCount))
}

// argumentList parses a parenthesized, comma-separated argument list
// (the opening '(' has already been consumed by the caller) and returns
// the argument count, capped at 8 to fit the fused OpCallN encoding.
func (c *Compiler) argumentList() int {
	argCount := 0
	if !c.check(lexer.TokenRightParen) {
		for {
			c.expression()
			if argCount == 8 {
				c.errorAtPrev("Can't have more than 8 arguments.")
			} else {
				argCount++
			}
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightParen, "Expect ')' after arguments.")
	return argCount
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(lexer.TokenIdent, "Expect property name after '.'.")
	name := c.identifierConstant(c.prev.Lexeme)

	switch {
	case canAssign && c.match(lexer.TokenEqual):
		c.expression()
		c.emitOpByte(bytecode.OpSetProperty, name)
	case c.match(lexer.TokenLeftParen):
		argCount := c.argumentList()
		c.emitOpByte(bytecode.OpInvoke0+bytecode.OpCode(argCount), name)
	default:
		c.emitOpByte(bytecode.OpGetProperty, name)
	}
}

func (c *Compiler) this(canAssign bool) {
	if c.class == nil {
		c.errorAtPrev("Can't use 'this' outside of a class.")
		return
	}
	c.namedVariable("this", false)
}

// super handles both `super.method` and the fused `super.method(args)`
// call form.
func (c *Compiler) super(canAssign bool) {
	if c.class == nil {
		c.errorAtPrev("Can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.errorAtPrev("Can't use 'super' in a class with no superclass.")
	}

	c.consume(lexer.TokenDot, "Expect '.' after 'super'.")
	c.consume(lexer.TokenIdent, "Expect superclass method name.")
	name := c.identifierConstant(c.prev.Lexeme)

	c.namedVariable("this", false)
	if c.match(lexer.TokenLeftParen) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emitOpByte(bytecode.OpSuper0+bytecode.OpCode(argCount), name)
	} else {
		c.namedVariable("super", false)
		c.emitOpByte(bytecode.OpGetSuper, name)
	}
}
