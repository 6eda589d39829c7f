package compiler

import (
	"lumen/pkg/bytecode"
	"lumen/pkg/vm"
)

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.prev.Line)
}

func (c *Compiler) emitBytes(a, b byte) {
	c.emitByte(a)
	c.emitByte(b)
}

func (c *Compiler) emitOp(op bytecode.OpCode) {
	c.emitByte(byte(op))
}

func (c *Compiler) emitOpByte(op bytecode.OpCode, operand byte) {
	c.emitByte(byte(op))
	c.emitByte(operand)
}

// emitJump writes op followed by a two-byte placeholder offset and returns
// the offset of the first placeholder byte, for patchJump to fill in once
// the jump target is known.
func (c *Compiler) emitJump(op bytecode.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

// patchJump backfills the two-byte offset at jumpOffset so it lands right
// after the current instruction pointer.
func (c *Compiler) patchJump(jumpOffset int) {
	jump := len(c.chunk().Code) - jumpOffset - 2
	if jump > 0xffff {
		c.errorAtPrev("Too much code to jump over.")
		return
	}
	c.chunk().Code[jumpOffset] = byte(jump >> 8)
	c.chunk().Code[jumpOffset+1] = byte(jump)
}

// emitLoop writes OP_LOOP with the backward offset to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(bytecode.OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.errorAtPrev("Loop body too large.")
		return
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

// makeConstant adds v to the current function's constant pool and returns
// its index, faulting if the pool overflows the one-byte index space.
func (c *Compiler) makeConstant(v vm.Value) byte {
	idx := c.chunk().AddConstant(v)
	if idx > 0xff {
		c.errorAtPrev("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) identifierConstant(name string) byte {
	return c.makeConstant(vm.Obj(c.vmRef.CopyString(name)))
}

func (c *Compiler) emitConstant(v vm.Value) {
	c.emitOpByte(bytecode.OpConstant, c.makeConstant(v))
}
