package compiler

import (
	"lumen/pkg/bytecode"
	"lumen/pkg/lexer"
	"lumen/pkg/vm"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(lexer.TokenClass):
		c.classDeclaration()
	case c.match(lexer.TokenFun):
		c.funDeclaration()
	case c.match(lexer.TokenVar):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(lexer.TokenPrint):
		c.printStatement()
	case c.match(lexer.TokenIf):
		c.ifStatement()
	case c.match(lexer.TokenWhile):
		c.whileStatement()
	case c.match(lexer.TokenFor):
		c.forStatement()
	case c.match(lexer.TokenReturn):
		c.returnStatement()
	case c.match(lexer.TokenBreak):
		c.breakStatement()
	case c.match(lexer.TokenContinue):
		c.continueStatement()
	case c.match(lexer.TokenLeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after value.")
	c.emitOp(bytecode.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after expression.")
	c.emitOp(bytecode.OpPop)
}

func (c *Compiler) block() {
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		c.declaration()
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after block.")
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(lexer.TokenEqual) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.consume(lexer.TokenSemicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

// parseVariable consumes the variable's name token and, for a local,
// declares it immediately; the constant index it returns is only
// meaningful for a global (defineVariable ignores it for locals).
func (c *Compiler) parseVariable(errMsg string) byte {
	c.consume(lexer.TokenIdent, errMsg)
	name := c.prev.Lexeme
	if c.scopeDepth > 0 {
		c.declareLocal(name)
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(bytecode.OpDefineGlobal, global)
}

func (c *Compiler) ifStatement() {
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)

	if c.match(lexer.TokenElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.beginLoop(loopStart)

	c.consume(lexer.TokenLeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop)
	c.endLoop()
}

// forStatement desugars into the equivalent while loop: an optional
// initializer, a condition that defaults to "true" when omitted, and an
// increment clause spliced in just before the loop repeats.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(lexer.TokenSemicolon):
		// no initializer
	case c.match(lexer.TokenVar):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(lexer.TokenSemicolon) {
		c.expression()
		c.consume(lexer.TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emitOp(bytecode.OpPop)
	}

	if !c.match(lexer.TokenRightParen) {
		bodyJump := c.emitJump(bytecode.OpJump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(bytecode.OpPop)
		c.consume(lexer.TokenRightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.beginLoop(loopStart)
	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(bytecode.OpPop)
	}
	c.endLoop()
	c.endScope()
}

// breakStatement closes any locals the break is unwinding past, then
// jumps to a placeholder patched once the loop's end is known.
func (c *Compiler) breakStatement() {
	if c.loop == nil {
		c.errorAtPrev("Can't use 'break' outside of a loop.")
		return
	}
	c.closeLocalsTo(c.loop.scopeDepth)
	c.consume(lexer.TokenSemicolon, "Expect ';' after 'break'.")
	jump := c.emitJump(bytecode.OpJump)
	c.loop.breakJumps = append(c.loop.breakJumps, jump)
}

// continueStatement closes locals down to the loop's own scope and jumps
// straight back to the loop's test/increment, re-running emitLoop's
// backward-offset math from the current position.
func (c *Compiler) continueStatement() {
	if c.loop == nil {
		c.errorAtPrev("Can't use 'continue' outside of a loop.")
		return
	}
	c.closeLocalsTo(c.loop.scopeDepth)
	c.consume(lexer.TokenSemicolon, "Expect ';' after 'continue'.")
	c.emitLoop(c.loop.loopStart)
}

// closeLocalsTo pops (or closes, if captured) every local declared more
// deeply than targetDepth, without actually truncating c.locals — the
// enclosing endScope call still owns that bookkeeping.
func (c *Compiler) closeLocalsTo(targetDepth int) {
	for i := len(c.locals) - 1; i >= 0 && c.locals[i].depth > targetDepth; i-- {
		if c.locals[i].isCaptured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
	}
}

func (c *Compiler) returnStatement() {
	if c.fnType == FuncTypeScript {
		c.errorAtPrev("Can't return from top-level code.")
	}
	if c.match(lexer.TokenSemicolon) {
		c.emitReturn()
		return
	}
	if c.fnType == FuncTypeInitializer {
		c.errorAtPrev("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after return value.")
	c.emitOp(bytecode.OpReturn)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(FuncTypeFunction, c.prev.Lexeme)
	c.defineVariable(global)
}

// function compiles a function literal's parameter list and body in a
// freshly nested Compiler, then emits OP_CLOSURE with its captured
// upvalue descriptors.
func (c *Compiler) function(fnType FunctionType, name string) {
	child := newChildCompiler(c, fnType, name)

	child.beginScope()
	child.consume(lexer.TokenLeftParen, "Expect '(' after function name.")
	if !child.check(lexer.TokenRightParen) {
		for {
			child.fn.Arity++
			if child.fn.Arity > 255 {
				child.errorAtCur("Can't have more than 255 parameters.")
			}
			paramConst := child.parseVariable("Expect parameter name.")
			child.defineVariable(paramConst)
			if !child.match(lexer.TokenComma) {
				break
			}
		}
	}
	child.consume(lexer.TokenRightParen, "Expect ')' after parameters.")
	child.consume(lexer.TokenLeftBrace, "Expect '{' before function body.")
	child.block()

	fn := child.endCompiler()
	c.errs = append(c.errs, child.errs...)

	c.emitOpByte(bytecode.OpClosure, c.makeConstant(vm.Obj(fn)))
	for _, uv := range child.upvalues {
		isLocal := byte(0)
		if uv.IsLocal {
			isLocal = 1
		}
		c.emitBytes(isLocal, uv.Index)
	}
}

// classDeclaration creates the class up front with OP_CLASS (nil
// superclass) and binds it to its name immediately, the same way a
// function declaration binds before its body is compiled. A superclass
// clause then reloads the class and the superclass, and OP_SUBCLASS
// mutates the former using the latter in place — it does not create a
// second class object.
func (c *Compiler) classDeclaration() {
	c.consume(lexer.TokenIdent, "Expect class name.")
	nameTok := c.prev
	nameConst := c.identifierConstant(nameTok.Lexeme)
	c.declareLocal(nameTok.Lexeme)

	c.emitOpByte(bytecode.OpClass, nameConst)
	c.defineVariable(nameConst)

	cc := &classContext{enclosing: c.class}
	c.class = cc

	if c.match(lexer.TokenLess) {
		c.consume(lexer.TokenIdent, "Expect superclass name.")
		c.variable(false)
		if c.prev.Lexeme == nameTok.Lexeme {
			c.errorAtPrev("A class can't inherit from itself.")
		}

		c.beginScope()
		c.declareLocal("super")
		c.defineVariable(0)

		c.namedVariable(nameTok.Lexeme, false)
		c.emitOp(bytecode.OpSubclass)
		cc.hasSuperclass = true
	}

	c.namedVariable(nameTok.Lexeme, false)
	c.consume(lexer.TokenLeftBrace, "Expect '{' before class body.")
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		c.method()
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after class body.")
	c.emitOp(bytecode.OpPop) // pop the class reference reloaded above for the method-definition loop

	if cc.hasSuperclass {
		c.endScope()
	}
	c.class = cc.enclosing
}

func (c *Compiler) method() {
	c.consume(lexer.TokenIdent, "Expect method name.")
	name := c.prev.Lexeme
	nameConst := c.identifierConstant(name)

	fnType := FuncTypeMethod
	if name == "init" {
		fnType = FuncTypeInitializer
	}
	c.function(fnType, name)
	c.emitOpByte(bytecode.OpMethod, nameConst)
}
