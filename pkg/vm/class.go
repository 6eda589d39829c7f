package vm

import "lumen/pkg/errors"

// getProperty implements OP_GET_PROPERTY: fields shadow methods (§4.5), so
// an instance's field table is checked first and only falls through to the
// class's method table (producing a BoundMethodObj) on a miss.
func (vm *VM) getProperty(frame *CallFrame) errors.LumenError {
	if !vm.peek(0).IsInstance() {
		return vm.runtimeError("Only instances have properties.")
	}
	instance := vm.peek(0).AsInstance()
	name := frame.readString()

	if value, ok := instance.Fields.Get(name); ok {
		vm.pop()
		vm.push(value)
		return nil
	}
	receiver := vm.pop()
	return vm.bindMethod(frame, instance.Class, name, receiver)
}

// setProperty implements OP_SET_PROPERTY: instances are open records, so
// assigning to a property that doesn't exist yet simply creates it.
func (vm *VM) setProperty(frame *CallFrame) errors.LumenError {
	if !vm.peek(1).IsInstance() {
		return vm.runtimeError("Only instances have fields.")
	}
	instance := vm.peek(1).AsInstance()
	name := frame.readString()
	instance.Fields.Set(name, vm.peek(0))

	value := vm.pop()
	vm.pop()
	vm.push(value)
	return nil
}

// subclass implements OP_SUBCLASS. The compiler emits it right after
// reloading the subclass (already created and bound by OP_CLASS) on top
// of its superclass, so TOS is the subclass and TOS-1 its superclass. Its
// whole method table is copied down into the subclass here (§4.6), rather
// than walked at lookup time, and the duplicate subclass reference is
// popped, leaving the superclass as the sole survivor — exactly what the
// compiler's nested "super" scope expects to find there.
func (vm *VM) subclass() errors.LumenError {
	if !vm.peek(1).IsClass() {
		return vm.runtimeError("Superclass must be a class.")
	}
	super := vm.peek(1).AsClass()
	sub := vm.peek(0).AsClass()
	sub.Superclass = super
	sub.Methods.AddAll(super.Methods)
	vm.pop()
	return nil
}

// defineMethod pops a closure off the stack and installs it under name in
// the class currently sitting below it on the stack (left there by the
// compiler until OP_CLASS/OP_SUBCLASS's enclosing method-definition block
// ends).
func (vm *VM) defineMethod(name *StringObj) {
	method := vm.pop()
	class := vm.peek(0).AsClass()
	class.Methods.Set(name, method)
}
