package compiler

// beginLoop pushes a new loop context, recording the bytecode offset
// `continue` should jump back to and the scope depth active when the loop
// began (so break/continue know how many scopes they're unwinding out of).
func (c *Compiler) beginLoop(loopStart int) {
	c.loop = &loopContext{enclosing: c.loop, loopStart: loopStart, scopeDepth: c.scopeDepth}
}

// endLoop pops the current loop context, patching every break jump
// recorded inside it to land here (just past the loop).
func (c *Compiler) endLoop() {
	for _, offset := range c.loop.breakJumps {
		c.patchJump(offset)
	}
	c.loop = c.loop.enclosing
}
