package vm

// ObjType tags the concrete variant of a heap object.
type ObjType uint8

const (
	ObjString ObjType = iota
	ObjFunction
	ObjClosure
	ObjUpvalue
	ObjNative
	ObjClass
	ObjInstance
	ObjBoundMethod
)

// Obj is the header every heap object embeds: its type tag, the collector's
// mark bit ("dark"), and the intrusive next-pointer linking every live
// object into one singly-linked list rooted at the VM. Embedding Obj by
// value gives every concrete object type a Header method for free via Go's
// method promotion, which is how the collector walks heterogeneous objects
// through the single Object interface below.
type Obj struct {
	Type ObjType
	Dark bool
	Next Object
}

func (o *Obj) Header() *Obj { return o }

// Object is implemented by every heap-allocated type. The collector and the
// intrusive object list only ever see objects through this interface.
type Object interface {
	Header() *Obj
}

// StringObj is an immutable byte sequence. At most one StringObj exists per
// distinct content (the interning invariant, enforced by pkg/vm's table).
type StringObj struct {
	Obj
	Chars string
	Hash  uint32
}

// FunctionObj is a compiled function: its arity, the number of upvalues its
// closures must allocate, its bytecode, constant pool, and per-instruction
// line table, plus an optional name for error messages and Print.
type FunctionObj struct {
	Obj
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         string
}

// UpvalueDesc describes one upvalue captured by a closure at OP_CLOSURE
// time: whether it closes over a local slot of the *enclosing* frame
// (IsLocal) or reuses one of the enclosing closure's own upvalues.
type UpvalueDesc struct {
	IsLocal bool
	Index   byte
}

// ClosureObj pairs a FunctionObj with the upvalues it captured at creation
// time. Its Upvalues slice length always equals Fn.UpvalueCount (invariant
// 5) and is filled before the closure is pushed anywhere reachable.
type ClosureObj struct {
	Obj
	Fn       *FunctionObj
	Upvalues []*UpvalueObj
}

// UpvalueObj is either open (Location points into a live stack slot) or
// closed (Location points at Closed, which the upvalue now owns). Open
// upvalues are additionally linked via NextOpen in the VM's sorted
// open-upvalue list (see frame.go); upvalues sit in both that list and the
// generic object list, so the open-list link is kept separate from the
// header's Next.
type UpvalueObj struct {
	Obj
	Location *Value // points into the stack while open, at Closed once closed
	Closed   Value
	NextOpen *UpvalueObj // next entry in the VM's open-upvalue list
}

func (u *UpvalueObj) Get() Value  { return *u.Location }
func (u *UpvalueObj) Set(v Value) { *u.Location = v }

// NativeFn is the signature every built-in function implements.
type NativeFn func(argc int, argv []Value) (Value, error)

// NativeObj wraps a built-in function pointer.
type NativeObj struct {
	Obj
	Name string
	Fn   NativeFn
}

// ClassObj is a class: its name, optional superclass, and its own method
// table (name -> *ClosureObj). Inherited methods are copied into this table
// at subclass-creation time (§4.5); there is no runtime walk up a
// superclass chain during lookup.
type ClassObj struct {
	Obj
	Name       string
	Superclass *ClassObj
	Methods    *Table
}

// InstanceObj is a live object of some class: the class reference plus its
// own field table (name -> Value).
type InstanceObj struct {
	Obj
	Class  *ClassObj
	Fields *Table
}

// BoundMethodObj pairs a receiver value with the closure to invoke when the
// bound method is called; `this` resolves to Receiver inside the call.
type BoundMethodObj struct {
	Obj
	Receiver Value
	Method   *ClosureObj
}

func printObject(o Object) string {
	switch obj := o.(type) {
	case *StringObj:
		return obj.Chars
	case *FunctionObj:
		if obj.Name == "" {
			return "<script>"
		}
		return "<fn " + obj.Name + ">"
	case *ClosureObj:
		if obj.Fn.Name == "" {
			return "<script>"
		}
		return "<fn " + obj.Fn.Name + ">"
	case *NativeObj:
		return "<native fn>"
	case *ClassObj:
		return "<" + obj.Name + ">"
	case *InstanceObj:
		return "<" + obj.Class.Name + " instance>"
	case *BoundMethodObj:
		return printObject(obj.Method)
	case *UpvalueObj:
		return "<upvalue>"
	default:
		return "<object>"
	}
}
