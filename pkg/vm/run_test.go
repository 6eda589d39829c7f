package vm

import (
	"lumen/pkg/bytecode"
	"os"
	"testing"
)

// scriptFn builds a zero-arity, zero-upvalue top-level function directly out
// of raw bytecode, bypassing the compiler entirely. This exercises the
// dispatch loop's opcode semantics in isolation from parsing/codegen.
func scriptFn(vmInstance *VM, code []byte, constants []Value) *FunctionObj {
	fn := vmInstance.NewFunction()
	fn.Chunk = NewChunk()
	fn.Chunk.Code = code
	fn.Chunk.Constants = constants
	fn.Chunk.Lines = make([]int, len(code))
	return fn
}

func TestRunArithmetic(t *testing.T) {
	// 1 + 2 * 3 -> OP_CONSTANT 1, OP_CONSTANT 2, OP_CONSTANT 3, OP_MULTIPLY, OP_ADD, OP_RETURN
	vmInstance := NewVM()
	constants := []Value{Number(1), Number(2), Number(3)}
	code := []byte{
		byte(bytecode.OpConstant), 0,
		byte(bytecode.OpConstant), 1,
		byte(bytecode.OpConstant), 2,
		byte(bytecode.OpMultiply),
		byte(bytecode.OpAdd),
		byte(bytecode.OpReturn),
	}
	fn := scriptFn(vmInstance, code, constants)

	result, err := vmInstance.Interpret(fn)
	if err != nil {
		t.Fatalf("Interpret returned error: %v", err)
	}
	if result.AsNumber() != 7 {
		t.Fatalf("result = %v, want 7", result.AsNumber())
	}
}

func TestRunStringConcat(t *testing.T) {
	vmInstance := NewVM()
	constants := []Value{Obj(vmInstance.CopyString("foo")), Obj(vmInstance.CopyString("bar"))}
	code := []byte{
		byte(bytecode.OpConstant), 0,
		byte(bytecode.OpConstant), 1,
		byte(bytecode.OpAdd),
		byte(bytecode.OpReturn),
	}
	fn := scriptFn(vmInstance, code, constants)

	result, err := vmInstance.Interpret(fn)
	if err != nil {
		t.Fatalf("Interpret returned error: %v", err)
	}
	if result.AsString().Chars != "foobar" {
		t.Fatalf("result = %q, want \"foobar\"", result.AsString().Chars)
	}
}

func TestRunDivisionByZeroIsNotAFault(t *testing.T) {
	// Lumen numbers are IEEE-754 doubles: 1/0 is +Inf, not a runtime error.
	vmInstance := NewVM()
	constants := []Value{Number(1), Number(0)}
	code := []byte{
		byte(bytecode.OpConstant), 0,
		byte(bytecode.OpConstant), 1,
		byte(bytecode.OpDivide),
		byte(bytecode.OpReturn),
	}
	fn := scriptFn(vmInstance, code, constants)

	result, err := vmInstance.Interpret(fn)
	if err != nil {
		t.Fatalf("Interpret returned error: %v", err)
	}
	if Print(result) != "inf" {
		t.Fatalf("result = %v, want inf", Print(result))
	}
}

func TestRunTypeMismatchFaults(t *testing.T) {
	vmInstance := NewVM()
	constants := []Value{True, Number(1)}
	code := []byte{
		byte(bytecode.OpConstant), 0,
		byte(bytecode.OpConstant), 1,
		byte(bytecode.OpAdd),
		byte(bytecode.OpReturn),
	}
	fn := scriptFn(vmInstance, code, constants)

	_, err := vmInstance.Interpret(fn)
	if err == nil {
		t.Fatalf("expected a runtime error adding a bool to a number")
	}
	if err.Kind() != "Runtime" {
		t.Fatalf("err.Kind() = %q, want \"Runtime\"", err.Kind())
	}
}

func TestRunGlobalUndefinedFaults(t *testing.T) {
	vmInstance := NewVM()
	name := vmInstance.CopyString("nope")
	constants := []Value{Obj(name)}
	code := []byte{
		byte(bytecode.OpGetGlobal), 0,
		byte(bytecode.OpReturn),
	}
	fn := scriptFn(vmInstance, code, constants)

	_, err := vmInstance.Interpret(fn)
	if err == nil {
		t.Fatalf("expected a runtime error reading an undefined global")
	}
}

func TestRunPrintWritesToConfiguredStdout(t *testing.T) {
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("os.Pipe: %v", pipeErr)
	}
	vmInstance := NewVMWithConfig(Config{Stdout: w})
	constants := []Value{Obj(vmInstance.CopyString("hi"))}
	code := []byte{
		byte(bytecode.OpConstant), 0,
		byte(bytecode.OpPrint),
		byte(bytecode.OpNil),
		byte(bytecode.OpReturn),
	}
	fn := scriptFn(vmInstance, code, constants)

	_, err := vmInstance.Interpret(fn)
	w.Close()
	if err != nil {
		t.Fatalf("Interpret returned error: %v", err)
	}

	buf := make([]byte, 16)
	n, _ := r.Read(buf)
	if got := string(buf[:n]); got != "hi\n" {
		t.Fatalf("stdout = %q, want %q", got, "hi\n")
	}
}
