package vm

import (
	"reflect"
	"unsafe"
)

const initialNextGC = 1 << 20 // 1 MiB, per spec's initial threshold

// heap bundles the collector's state: the intrusive list of every live
// object (until swept), the gray worklist driving the mark phase, and the
// byte-counter/threshold pair that decides when to collect.
type heap struct {
	objects        Object // head of the intrusive "every allocated object" list
	gray           []Object
	bytesAllocated int
	nextGC         int
	stress         bool // collect before every allocation, for test coverage (§4.7, §8)
}

func newHeap(stress bool) *heap {
	return &heap{nextGC: initialNextGC, stress: stress}
}

// link accounts approxSize toward the next collection threshold, collects
// if that pushes the VM over threshold (or stress-GC is on), and only then
// threads o onto the object list. The collection must run before o is
// linked: o isn't rooted yet (the caller pushes it per the no-write-barrier
// discipline in §4.7/§9 only after link returns), so a collection that ran
// afterward would trace a heap that doesn't yet know o exists, then find it
// unreached on the very sweep that follows and unlink it — the allocation
// would self-destruct. Matches the original's reallocate-before-allocateObject
// ordering (original_source/c/memory.c).
func (vm *VM) link(o Object, approxSize uintptr) {
	vm.heap.bytesAllocated += int(approxSize)
	if vm.heap.stress || vm.heap.bytesAllocated > vm.heap.nextGC {
		vm.collectGarbage()
	}
	h := o.Header()
	h.Next = vm.heap.objects
	vm.heap.objects = o
}

func (vm *VM) newString(chars string, hash uint32) *StringObj {
	s := &StringObj{Obj: Obj{Type: ObjString}, Chars: chars, Hash: hash}
	vm.link(s, unsafe.Sizeof(*s)+uintptr(len(chars)))
	return s
}

func (vm *VM) newFunction() *FunctionObj {
	f := &FunctionObj{Obj: Obj{Type: ObjFunction}, Chunk: NewChunk()}
	vm.link(f, unsafe.Sizeof(*f))
	return f
}

// NewFunction is newFunction exported for the compiler, which builds
// FunctionObjs directly as it compiles (so they participate in GC and
// collector roots from the moment they exist, per the compiler-roots
// callback registered via SetCompilerRoots).
func (vm *VM) NewFunction() *FunctionObj {
	return vm.newFunction()
}

func (vm *VM) newClosure(fn *FunctionObj) *ClosureObj {
	c := &ClosureObj{Obj: Obj{Type: ObjClosure}, Fn: fn, Upvalues: make([]*UpvalueObj, fn.UpvalueCount)}
	vm.link(c, unsafe.Sizeof(*c))
	return c
}

func (vm *VM) newUpvalue(slot *Value) *UpvalueObj {
	u := &UpvalueObj{Obj: Obj{Type: ObjUpvalue}, Location: slot}
	vm.link(u, unsafe.Sizeof(*u))
	return u
}

func (vm *VM) newNative(name string, fn NativeFn) *NativeObj {
	n := &NativeObj{Obj: Obj{Type: ObjNative}, Name: name, Fn: fn}
	vm.link(n, unsafe.Sizeof(*n))
	return n
}

func (vm *VM) newClass(name string, super *ClassObj) *ClassObj {
	c := &ClassObj{Obj: Obj{Type: ObjClass}, Name: name, Superclass: super, Methods: NewTable()}
	vm.link(c, unsafe.Sizeof(*c))
	return c
}

func (vm *VM) newInstance(class *ClassObj) *InstanceObj {
	i := &InstanceObj{Obj: Obj{Type: ObjInstance}, Class: class, Fields: NewTable()}
	vm.link(i, unsafe.Sizeof(*i))
	return i
}

func (vm *VM) newBoundMethod(receiver Value, method *ClosureObj) *BoundMethodObj {
	b := &BoundMethodObj{Obj: Obj{Type: ObjBoundMethod}, Receiver: receiver, Method: method}
	vm.link(b, unsafe.Sizeof(*b))
	return b
}

// collectGarbage runs one full tri-colour mark-sweep cycle: mark every
// root, trace the gray worklist to black, drop interned strings that
// didn't survive tracing, then sweep the object list.
func (vm *VM) collectGarbage() {
	vm.markRoots()
	vm.traceReferences()
	vm.strings.RemoveWhite()
	vm.sweep()
	vm.heap.nextGC = vm.heap.bytesAllocated * 2
	if vm.heap.nextGC < initialNextGC {
		vm.heap.nextGC = initialNextGC
	}
}

// markRoots grays every root named in §4.7 step 1: the value stack, every
// active frame's closure, the open-upvalue list, the globals table, the
// sentinel "init" string, and any function objects the compiler is still
// building.
func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		vm.markObject(uv)
	}
	vm.markTable(vm.globals)
	vm.markObject(vm.initString)
	if vm.compilerRoots != nil {
		for _, o := range vm.compilerRoots() {
			vm.markObject(o)
		}
	}
}

func (vm *VM) markValue(v Value) {
	if v.kind == KindObj && v.obj != nil {
		vm.markObject(v.obj)
	}
}

// markTable grays both the keys and the values of t. Used for vm.globals
// and for every class's Methods/Fields table: these are real roots, not
// the interner, so their string keys need marking like any other
// reference — only vm.strings itself is key-weak, and it is never passed
// to markTable (it's handled solely by RemoveWhite after tracing).
func (vm *VM) markTable(t *Table) {
	t.ForEach(func(key *StringObj, value Value) {
		vm.markObject(key)
		vm.markValue(value)
	})
}

// markObject grays o: if it's already dark (or nil), this is a no-op;
// otherwise it's marked dark and pushed onto the gray worklist so
// traceReferences can gray its children. "dark" doubles as both "marked"
// and "black" here — there's no separate gray flag; worklist membership
// is what makes an object gray.
func (vm *VM) markObject(o Object) {
	if o == nil || reflect.ValueOf(o).IsNil() {
		return
	}
	h := o.Header()
	if h.Dark {
		return
	}
	h.Dark = true
	vm.heap.gray = append(vm.heap.gray, o)
}

// traceReferences drains the gray worklist, graying each popped object's
// children until the worklist is empty (every reachable object is black).
func (vm *VM) traceReferences() {
	for len(vm.heap.gray) > 0 {
		n := len(vm.heap.gray) - 1
		obj := vm.heap.gray[n]
		vm.heap.gray = vm.heap.gray[:n]
		vm.blacken(obj)
	}
}

func (vm *VM) blacken(o Object) {
	switch obj := o.(type) {
	case *StringObj, *NativeObj:
		// no references to trace
	case *UpvalueObj:
		vm.markValue(obj.Closed)
	case *FunctionObj:
		if obj.Chunk != nil {
			for _, c := range obj.Chunk.Constants {
				vm.markValue(c)
			}
		}
	case *ClosureObj:
		vm.markObject(obj.Fn)
		for _, uv := range obj.Upvalues {
			vm.markObject(uv)
		}
	case *ClassObj:
		vm.markTable(obj.Methods)
	case *InstanceObj:
		vm.markObject(obj.Class)
		vm.markTable(obj.Fields)
	case *BoundMethodObj:
		vm.markValue(obj.Receiver)
		vm.markObject(obj.Method)
	}
}

// sweep walks the intrusive object list, unlinking and discarding every
// object that isn't dark, and clears the mark bit on every survivor so the
// next cycle starts white.
func (vm *VM) sweep() {
	var prev Object
	curr := vm.heap.objects
	for curr != nil {
		h := curr.Header()
		if h.Dark {
			h.Dark = false
			prev = curr
			curr = h.Next
			continue
		}
		unreached := curr
		curr = h.Next
		if prev != nil {
			prev.Header().Next = curr
		} else {
			vm.heap.objects = curr
		}
		_ = unreached // eligible for Go's own GC now that it's unlinked
	}
}
