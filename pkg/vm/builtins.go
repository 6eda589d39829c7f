package vm

import (
	"time"
)

// registerBuiltins installs the native functions every VM starts with.
// clock() is the one the language guarantees (used throughout §8's timing
// tests); the rest round out a minimal standard library in the same vein.
func registerBuiltins(vm *VM) {
	define := func(name string, arity int, fn NativeFn) {
		vm.globals.Set(vm.CopyString(name), Obj(vm.newNative(name, fn)))
	}

	define("clock", 0, func(argc int, argv []Value) (Value, error) {
		return Number(float64(time.Now().UnixNano()) / 1e9), nil
	})

	define("str", 1, func(argc int, argv []Value) (Value, error) {
		return Obj(vm.TakeString(Print(argv[0]))), nil
	})

	define("type", 1, func(argc int, argv []Value) (Value, error) {
		return Obj(vm.CopyString(typeName(argv[0]))), nil
	})
}

func typeName(v Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		return "bool"
	case v.IsNumber():
		return "number"
	case v.IsString():
		return "string"
	case v.IsFunction(), v.IsClosure(), v.IsNative():
		return "function"
	case v.IsClass():
		return "class"
	case v.IsInstance():
		return "instance"
	case v.IsBoundMethod():
		return "function"
	default:
		return "object"
	}
}
