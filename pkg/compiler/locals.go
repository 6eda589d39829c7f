package compiler

import (
	"lumen/pkg/bytecode"
	"lumen/pkg/vm"
)

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope pops every local declared in the scope just ending. A captured
// local is closed over (OP_CLOSE_UPVALUE) instead of merely popped, so any
// closure still holding it keeps working after its stack slot is reused.
func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].isCaptured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// declareLocal registers name as a new local in the current scope. It's
// left at depth -1 ("declared but not defined") until markInitialized
// runs, so a variable's own initializer can't refer to itself in a nested
// scope (`var a = a;` at toplevel is fine since globals skip this path).
func (c *Compiler) declareLocal(name string) {
	if c.scopeDepth == 0 {
		return
	}
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name == name {
			c.errorAtPrev("Already a variable with this name in this scope.")
		}
	}
	if len(c.locals) >= maxLocals {
		c.errorAtPrev("Too many local variables in function.")
		return
	}
	c.locals = append(c.locals, localVar{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

// resolveLocal returns the slot index of name in this function's own
// locals, or -1 if it isn't one.
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				c.errorAtPrev("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue searches enclosing functions for name, threading an
// upvalue descriptor through every intermediate function so a deeply
// nested closure can still reach an outer local (§4.3's "upvalue chain").
func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := c.enclosing.resolveLocal(name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(byte(local), true)
	}
	if up := c.enclosing.resolveUpvalue(name); up != -1 {
		return c.addUpvalue(byte(up), false)
	}
	return -1
}

func (c *Compiler) addUpvalue(index byte, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}
	c.upvalues = append(c.upvalues, vm.UpvalueDesc{IsLocal: isLocal, Index: index})
	c.fn.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}
