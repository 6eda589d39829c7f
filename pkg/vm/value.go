// Package vm implements the bytecode virtual machine: the value and object
// model, the hash table and string interner, the call-frame/closure/upvalue
// machinery, the class/method system, the dispatch loop, and the mark-sweep
// collector.
package vm

import (
	"math"
	"strconv"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindBool
	KindNumber
	KindObj
)

// Value is a tagged union over Nil, Bool, Number and Obj (heap reference).
// Values are small and passed by copy on the value stack; only the Obj
// variant indirects through a heap allocation.
type Value struct {
	kind    ValueKind
	boolean bool
	number  float64
	obj     Object
}

var Nil = Value{kind: KindNil}
var True = Value{kind: KindBool, boolean: true}
var False = Value{kind: KindBool, boolean: false}

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

func Obj(o Object) Value { return Value{kind: KindObj, obj: o} }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObj() bool    { return v.kind == KindObj }

func (v Value) IsObjType(t ObjType) bool {
	return v.kind == KindObj && v.obj.Header().Type == t
}

func (v Value) IsString() bool      { return v.IsObjType(ObjString) }
func (v Value) IsClosure() bool     { return v.IsObjType(ObjClosure) }
func (v Value) IsClass() bool       { return v.IsObjType(ObjClass) }
func (v Value) IsInstance() bool    { return v.IsObjType(ObjInstance) }
func (v Value) IsBoundMethod() bool { return v.IsObjType(ObjBoundMethod) }
func (v Value) IsNative() bool      { return v.IsObjType(ObjNative) }
func (v Value) IsFunction() bool    { return v.IsObjType(ObjFunction) }

// AsBool, AsNumber and AsObj are fail-fast downcasts: calling them on a
// Value of the wrong kind indicates an interpreter bug, not a program
// fault, and panics rather than silently misbehaving. The dispatch loop
// always type-tests before downcasting.
func (v Value) AsBool() bool {
	if v.kind != KindBool {
		panic("vm: AsBool on non-bool Value")
	}
	return v.boolean
}

func (v Value) AsNumber() float64 {
	if v.kind != KindNumber {
		panic("vm: AsNumber on non-number Value")
	}
	return v.number
}

func (v Value) AsObj() Object {
	if v.kind != KindObj {
		panic("vm: AsObj on non-obj Value")
	}
	return v.obj
}

func (v Value) AsString() *StringObj {
	s, ok := v.obj.(*StringObj)
	if !ok {
		panic("vm: AsString on non-string Value")
	}
	return s
}

func (v Value) AsClosure() *ClosureObj {
	c, ok := v.obj.(*ClosureObj)
	if !ok {
		panic("vm: AsClosure on non-closure Value")
	}
	return c
}

func (v Value) AsClass() *ClassObj {
	c, ok := v.obj.(*ClassObj)
	if !ok {
		panic("vm: AsClass on non-class Value")
	}
	return c
}

func (v Value) AsInstance() *InstanceObj {
	i, ok := v.obj.(*InstanceObj)
	if !ok {
		panic("vm: AsInstance on non-instance Value")
	}
	return i
}

func (v Value) AsBoundMethod() *BoundMethodObj {
	b, ok := v.obj.(*BoundMethodObj)
	if !ok {
		panic("vm: AsBoundMethod on non-bound-method Value")
	}
	return b
}

func (v Value) AsNative() *NativeObj {
	n, ok := v.obj.(*NativeObj)
	if !ok {
		panic("vm: AsNative on non-native Value")
	}
	return n
}

func (v Value) AsFunction() *FunctionObj {
	f, ok := v.obj.(*FunctionObj)
	if !ok {
		panic("vm: AsFunction on non-function Value")
	}
	return f
}

// IsFalsey reports whether v is one of the language's two falsey values,
// nil and false. Everything else, including 0 and the empty string, is
// truthy.
func (v Value) IsFalsey() bool {
	return v.kind == KindNil || (v.kind == KindBool && !v.boolean)
}

// Equal implements value equality: same variant and equal payload. Obj
// variants compare by identity, except strings, which are always interned
// so identity equality coincides with content equality.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.boolean == b.boolean
	case KindNumber:
		return a.number == b.number // NaN != NaN falls out of this naturally
	case KindObj:
		return a.obj == b.obj
	default:
		return false
	}
}

// Print returns the canonical textual form of v, as produced by the
// OP_PRINT instruction and the top-level REPL.
func Print(v Value) string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.number)
	case KindObj:
		return printObject(v.obj)
	default:
		return "<unknown>"
	}
}

// formatNumber renders the shortest decimal string that round-trips back to
// the same float64, matching IEEE-754 double printing conventions.
func formatNumber(n float64) string {
	if math.IsNaN(n) {
		return "nan"
	}
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

