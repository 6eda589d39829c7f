package vm

import (
	"fmt"
	"lumen/pkg/bytecode"
	"lumen/pkg/errors"
	"os"
)

// MaxFrames bounds frameCount (invariant 7); exceeding it is a runtime
// fault, not a Go stack overflow.
const MaxFrames = 64

// StackMax bounds the value stack. It's sized generously relative to
// MaxFrames * a typical function's local-variable count; a well-formed
// program never approaches it, and overflowing it is a runtime fault.
const StackMax = MaxFrames * 256

const debugTrace = false // set true to print every instruction as it executes

// InterpretResult distinguishes the three outcomes of Interpret, matching
// §6's {Ok | CompileError | RuntimeError} contract. CompileError is
// reported out-of-band (the compiler returns its own errors before the VM
// ever runs), so this only needs to carry Ok vs RuntimeError to the host.
type InterpretResult int

const (
	InterpretOk InterpretResult = iota
	InterpretRuntimeError
)

// Config controls VM construction: the stress-GC toggle and an optional
// output sink for OP_PRINT (tests redirect this to a buffer).
type Config struct {
	StressGC bool
	Stdout   *os.File
}

// VM is the process-wide interpreter state: one value stack, one frame
// stack, one heap. Re-entrant Interpret calls on a single VM value are not
// supported while a call is in progress (§5); sequential reuse between
// completed calls (as the REPL does) is fine.
type VM struct {
	stack      [StackMax]Value
	stackTop   int
	frames     [MaxFrames]CallFrame
	frameCount int

	openUpvalues *UpvalueObj

	globals    *Table
	strings    *Table
	initString *StringObj

	heap *heap

	compilerRoots func() []Object // set by the compiler while it's building nested functions

	stdout *os.File
}

func NewVM() *VM {
	return NewVMWithConfig(Config{})
}

func NewVMWithConfig(cfg Config) *VM {
	vm := &VM{
		globals: NewTable(),
		strings: NewTable(),
		heap:    newHeap(cfg.StressGC),
		stdout:  cfg.Stdout,
	}
	if vm.stdout == nil {
		vm.stdout = os.Stdout
	}
	vm.initString = vm.CopyString("init")
	registerBuiltins(vm)
	return vm
}

// SetCompilerRoots installs the callback the compiler uses to expose
// in-progress FunctionObjs to the collector while it's still building them
// (§4.7 step 1, "compiler roots").
func (vm *VM) SetCompilerRoots(fn func() []Object) {
	vm.compilerRoots = fn
}

func (vm *VM) push(v Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// Interpret wraps fn in a closure, pushes a top-level call frame for it,
// and runs the dispatch loop to completion. This is the entry operation
// described in §2.
func (vm *VM) Interpret(fn *FunctionObj) (Value, errors.LumenError) {
	vm.push(Obj(fn))
	closure := vm.newClosure(fn)
	vm.pop()
	vm.push(Obj(closure))
	vm.callClosure(closure, 0)
	return vm.run()
}

func (vm *VM) run() (Value, errors.LumenError) {
	frame := &vm.frames[vm.frameCount-1]

	for {
		if debugTrace {
			fmt.Fprintf(os.Stderr, "%04d %s\n", frame.ip, bytecode.OpCode(frame.closure.Fn.Chunk.Code[frame.ip]))
		}

		instruction := bytecode.OpCode(frame.readByte())
		switch {
		case instruction == bytecode.OpConstant:
			vm.push(frame.readConstant())

		case instruction == bytecode.OpNil:
			vm.push(Nil)
		case instruction == bytecode.OpTrue:
			vm.push(True)
		case instruction == bytecode.OpFalse:
			vm.push(False)
		case instruction == bytecode.OpPop:
			vm.pop()

		case instruction == bytecode.OpGetLocal:
			slot := frame.readByte()
			vm.push(vm.stack[frame.base+int(slot)])
		case instruction == bytecode.OpSetLocal:
			slot := frame.readByte()
			vm.stack[frame.base+int(slot)] = vm.peek(0)

		case instruction == bytecode.OpGetGlobal:
			name := frame.readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				if err := vm.runtimeError("Undefined variable '%s'.", name.Chars); err != nil {
					return Nil, err
				}
			}
			vm.push(v)
		case instruction == bytecode.OpDefineGlobal:
			name := frame.readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case instruction == bytecode.OpSetGlobal:
			name := frame.readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				if err := vm.runtimeError("Undefined variable '%s'.", name.Chars); err != nil {
					return Nil, err
				}
			}

		case instruction == bytecode.OpGetUpvalue:
			slot := frame.readByte()
			vm.push(frame.closure.Upvalues[slot].Get())
		case instruction == bytecode.OpSetUpvalue:
			slot := frame.readByte()
			frame.closure.Upvalues[slot].Set(vm.peek(0))

		case instruction == bytecode.OpGetProperty:
			if err := vm.getProperty(frame); err != nil {
				return Nil, err
			}
		case instruction == bytecode.OpSetProperty:
			if err := vm.setProperty(frame); err != nil {
				return Nil, err
			}
		case instruction == bytecode.OpGetSuper:
			name := frame.readString()
			super := vm.pop().AsClass()
			receiver := vm.pop()
			if err := vm.bindMethod(frame, super, name, receiver); err != nil {
				return Nil, err
			}

		case instruction == bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(Bool(Equal(a, b)))
		case instruction == bytecode.OpGreater:
			if err := vm.binaryNumberOp(frame, func(a, b float64) Value { return Bool(a > b) }); err != nil {
				return Nil, err
			}
		case instruction == bytecode.OpLess:
			if err := vm.binaryNumberOp(frame, func(a, b float64) Value { return Bool(a < b) }); err != nil {
				return Nil, err
			}

		case instruction == bytecode.OpAdd:
			if err := vm.add(frame); err != nil {
				return Nil, err
			}
		case instruction == bytecode.OpSubtract:
			if err := vm.binaryNumberOp(frame, func(a, b float64) Value { return Number(a - b) }); err != nil {
				return Nil, err
			}
		case instruction == bytecode.OpMultiply:
			if err := vm.binaryNumberOp(frame, func(a, b float64) Value { return Number(a * b) }); err != nil {
				return Nil, err
			}
		case instruction == bytecode.OpDivide:
			if err := vm.binaryNumberOp(frame, func(a, b float64) Value { return Number(a / b) }); err != nil {
				return Nil, err
			}

		case instruction == bytecode.OpNot:
			vm.push(Bool(vm.pop().IsFalsey()))
		case instruction == bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				if err := vm.runtimeError("Operand must be a number."); err != nil {
					return Nil, err
				}
				break
			}
			vm.push(Number(-vm.pop().AsNumber()))

		case instruction == bytecode.OpPrint:
			fmt.Fprintln(vm.stdout, Print(vm.pop()))

		case instruction == bytecode.OpJump:
			offset := frame.readShort()
			frame.ip += int(offset)
		case instruction == bytecode.OpJumpIfFalse:
			offset := frame.readShort()
			if vm.peek(0).IsFalsey() {
				frame.ip += int(offset)
			}
		case instruction == bytecode.OpLoop:
			offset := frame.readShort()
			frame.ip -= int(offset)

		case instruction >= bytecode.OpCall0 && instruction <= bytecode.OpCall8:
			argCount := bytecode.CallArgCount(instruction)
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return Nil, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case instruction >= bytecode.OpInvoke0 && instruction <= bytecode.OpInvoke8:
			name := frame.readString()
			argCount := bytecode.InvokeArgCount(instruction)
			if err := vm.invoke(name, argCount); err != nil {
				return Nil, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case instruction >= bytecode.OpSuper0 && instruction <= bytecode.OpSuper8:
			name := frame.readString()
			argCount := bytecode.SuperArgCount(instruction)
			super := vm.pop().AsClass()
			if err := vm.invokeFromClass(super, name, argCount); err != nil {
				return Nil, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case instruction == bytecode.OpClosure:
			fn := frame.readConstant().AsFunction()
			closure := vm.newClosure(fn)
			vm.push(Obj(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := frame.readByte()
				index := frame.readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[frame.base+int(index)])
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
		case instruction == bytecode.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[vm.stackTop-1])
			vm.pop()

		case instruction == bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[frame.base])
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return result, nil
			}
			vm.stackTop = frame.base
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case instruction == bytecode.OpClass:
			name := frame.readString()
			vm.push(Obj(vm.newClass(name.Chars, nil)))
		case instruction == bytecode.OpSubclass:
			if err := vm.subclass(); err != nil {
				return Nil, err
			}
		case instruction == bytecode.OpMethod:
			name := frame.readString()
			vm.defineMethod(name)

		default:
			if err := vm.runtimeError("Unknown opcode %d.", instruction); err != nil {
				return Nil, err
			}
		}
	}
}

func (vm *VM) binaryNumberOp(frame *CallFrame, op func(a, b float64) Value) errors.LumenError {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return nil
}

// add implements OP_ADD's overload: string+string concatenates (via
// TakeString, so a novel join becomes canonical), number+number adds,
// anything else faults. Operands are left on the stack (peek, not pop)
// while the result is allocated, so TakeString's new StringObj is linked
// while the operands it was built from are still reachable roots; only
// once the result exists do both operands get popped and the result
// pushed, matching the teacher/original's concatenate ordering.
func (vm *VM) add(frame *CallFrame) errors.LumenError {
	b := vm.peek(0)
	a := vm.peek(1)
	switch {
	case a.IsString() && b.IsString():
		joined := a.AsString().Chars + b.AsString().Chars
		result := vm.TakeString(joined)
		vm.pop()
		vm.pop()
		vm.push(Obj(result))
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(Number(a.AsNumber() + b.AsNumber()))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

// runtimeError builds a RuntimeError carrying the current call stack as a
// trace (innermost frame first), then resets the VM's stacks per §7's
// propagation policy: faults are fatal to the current Interpret call but
// never crash the host.
func (vm *VM) runtimeError(format string, args ...interface{}) errors.LumenError {
	var trace []errors.Frame
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		trace = append(trace, errors.Frame{Line: f.line(), FunctionName: f.closure.Fn.Name})
	}
	line := 0
	if vm.frameCount > 0 {
		line = vm.frames[vm.frameCount-1].line()
	}
	err := errors.NewRuntimeError(errors.Position{Line: line}, trace, format, args...)
	vm.resetStack()
	return err
}
