package vm

import "lumen/pkg/errors"

// callValue dispatches a call instruction against whatever kind of value
// sits at the call site: a closure runs through callClosure, a class
// constructs an instance (routing through `init` if the class defines
// one), a bound method re-binds its receiver onto the stack and calls the
// underlying closure, a native runs synchronously, and anything else
// faults (§4.4).
func (vm *VM) callValue(callee Value, argCount int) errors.LumenError {
	if callee.IsObj() {
		switch callee.obj.Header().Type {
		case ObjClosure:
			return vm.callClosure(callee.AsClosure(), argCount)
		case ObjClass:
			return vm.callClass(callee.AsClass(), argCount)
		case ObjBoundMethod:
			bound := callee.AsBoundMethod()
			vm.stack[vm.stackTop-argCount-1] = bound.Receiver
			return vm.callClosure(bound.Method, argCount)
		case ObjNative:
			return vm.callNative(callee.AsObj().(*NativeObj), argCount)
		}
	}
	return vm.runtimeError("Can only call functions and classes.")
}

// callClosure pushes a new CallFrame for closure, faulting on arity
// mismatch (extra args are tolerated, matching an Open Question resolved
// toward JS-like permissiveness rather than clox's strict equality) or
// frame-stack overflow (invariant 7).
func (vm *VM) callClosure(closure *ClosureObj, argCount int) errors.LumenError {
	if argCount < closure.Fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Fn.Arity, argCount)
	}
	for argCount > closure.Fn.Arity {
		vm.pop()
		argCount--
	}
	if vm.frameCount == MaxFrames {
		return vm.runtimeError("Stack overflow.")
	}
	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.base = vm.stackTop - argCount - 1
	return nil
}

func (vm *VM) callNative(native *NativeObj, argCount int) errors.LumenError {
	args := vm.stack[vm.stackTop-argCount : vm.stackTop]
	result, err := native.Fn(argCount, args)
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	vm.stackTop -= argCount + 1
	vm.push(result)
	return nil
}

// callClass constructs a fresh instance in place of the class on the
// stack, then dispatches to its `init` method if one exists; a class
// with no initializer rejects any constructor arguments.
func (vm *VM) callClass(class *ClassObj, argCount int) errors.LumenError {
	instance := vm.newInstance(class)
	vm.stack[vm.stackTop-argCount-1] = Obj(instance)
	if init, ok := class.Methods.Get(vm.initString); ok {
		return vm.callClosure(init.AsClosure(), argCount)
	}
	if argCount != 0 {
		return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
	}
	return nil
}

// bindMethod looks up name in class's method table and, if found, wraps
// it together with receiver into a BoundMethodObj pushed on the stack.
func (vm *VM) bindMethod(frame *CallFrame, class *ClassObj, name *StringObj, receiver Value) errors.LumenError {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	vm.push(Obj(vm.newBoundMethod(receiver, method.AsClosure())))
	return nil
}

// invoke fuses "get property, then call it" into a single dispatch,
// avoiding an intermediate BoundMethodObj allocation for the common case
// of calling a method right after looking it up (the OP_INVOKE_n family).
func (vm *VM) invoke(name *StringObj, argCount int) errors.LumenError {
	receiver := vm.peek(argCount)
	if !receiver.IsInstance() {
		return vm.runtimeError("Only instances have methods.")
	}
	instance := receiver.AsInstance()
	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *ClassObj, name *StringObj, argCount int) errors.LumenError {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.callClosure(method.AsClosure(), argCount)
}
