// Package compiler implements a single-pass compiler: no intermediate AST,
// source tokens are parsed and lowered directly into bytecode as the
// parser descends, in the style of a Pratt expression parser wrapped
// around a recursive-descent statement parser.
package compiler

import (
	"lumen/pkg/bytecode"
	"lumen/pkg/errors"
	"lumen/pkg/lexer"
	"lumen/pkg/source"
	"lumen/pkg/vm"
)

const debugCompiler = false

// maxLocals bounds the number of locals (and therefore block-scope depth x
// variable count) a single function body can declare; OP_GET_LOCAL and
// friends encode the slot as one byte.
const maxLocals = 256

// FunctionType distinguishes the few compilation contexts that change how
// `this`, `return`, and the implicit receiver slot behave.
type FunctionType int

const (
	FuncTypeScript FunctionType = iota
	FuncTypeFunction
	FuncTypeMethod
	FuncTypeInitializer
)

type localVar struct {
	name       string
	depth      int // -1 while being declared but not yet defined
	isCaptured bool
}

// loopContext tracks the bytecode offsets a break/continue inside the
// innermost loop needs to patch or jump to.
type loopContext struct {
	enclosing  *loopContext
	loopStart  int
	scopeDepth int
	breakJumps []int
}

type classContext struct {
	enclosing     *classContext
	hasSuperclass bool
}

// Compiler compiles one function body (or the top-level script) into a
// vm.FunctionObj. Compiling a nested function literal creates a child
// Compiler linked via enclosing, mirroring the lexical nesting of
// enclosing-scope upvalue capture.
type Compiler struct {
	enclosing *Compiler
	vmRef     *vm.VM
	src       *source.SourceFile

	fn     *vm.FunctionObj
	fnType FunctionType

	locals     []localVar
	scopeDepth int
	upvalues   []vm.UpvalueDesc

	loop  *loopContext
	class *classContext

	lex  *lexer.Lexer
	cur  lexer.Token
	prev lexer.Token

	errs      []errors.LumenError
	panicMode bool
}

// New creates a top-level compiler whose compiled constants and
// FunctionObjs are allocated on vmInstance's heap, so the running VM's
// collector and interner see them from the moment they're created. Call
// CompileScript to drive it.
func New(src *source.SourceFile, vmInstance *vm.VM) *Compiler {
	return &Compiler{src: src, vmRef: vmInstance}
}

func newChildCompiler(parent *Compiler, fnType FunctionType, name string) *Compiler {
	c := &Compiler{
		enclosing: parent,
		vmRef:     parent.vmRef,
		src:       parent.src,
		fnType:    fnType,
		lex:       parent.lex,
		class:     parent.class,
	}
	c.fn = c.vmRef.NewFunction()
	c.fn.Name = name
	// Slot 0 is reserved for the call's implicit receiver: `this` for a
	// method/initializer, the closure itself (unaddressable) otherwise.
	slotName := ""
	if fnType == FuncTypeMethod || fnType == FuncTypeInitializer {
		slotName = "this"
	}
	c.locals = append(c.locals, localVar{name: slotName, depth: 0})
	c.cur, c.prev = parent.cur, parent.prev
	return c
}

// Roots returns every FunctionObj currently under construction across the
// whole enclosing chain, from innermost to outermost, so the VM can treat
// them as GC roots while compilation of their bodies is still in progress
// (they aren't reachable any other way until OP_CLOSURE runs).
func (c *Compiler) Roots() []vm.Object {
	var roots []vm.Object
	for cur := c; cur != nil; cur = cur.enclosing {
		if cur.fn != nil {
			roots = append(roots, cur.fn)
		}
	}
	return roots
}

// CompileScript compiles an entire source file as the implicit top-level
// function (arity 0, called with no arguments by Interpret).
func (c *Compiler) CompileScript(l *lexer.Lexer) (*vm.FunctionObj, []errors.LumenError) {
	c.lex = l
	c.fnType = FuncTypeScript
	c.fn = c.vmRef.NewFunction()
	c.fn.Name = ""
	c.locals = append(c.locals, localVar{name: "", depth: 0})

	c.advance()
	for !c.match(lexer.TokenEOF) {
		c.declaration()
	}
	fn := c.endCompiler()
	return fn, c.errs
}

func (c *Compiler) endCompiler() *vm.FunctionObj {
	c.emitReturn()
	fn := c.fn
	if debugCompiler {
		name := fn.Name
		if name == "" {
			name = "<script>"
		}
		_ = fn.Chunk.DisassembleChunk(name)
	}
	if c.enclosing != nil {
		c.enclosing.cur, c.enclosing.prev = c.cur, c.prev
	}
	return fn
}

func (c *Compiler) emitReturn() {
	if c.fnType == FuncTypeInitializer {
		// `init()` implicitly returns `this` (slot 0) rather than nil.
		c.emitOpByte(bytecode.OpGetLocal, 0)
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.emitOp(bytecode.OpReturn)
}

func (c *Compiler) chunk() *vm.Chunk { return c.fn.Chunk }
