package vm

import (
	"math"
	"testing"
)

func TestIsFalsey(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", Nil, true},
		{"false", False, true},
		{"true", True, false},
		{"zero", Number(0), false},
		{"nonzero", Number(1), false},
	}
	for _, c := range cases {
		if got := c.v.IsFalsey(); got != c.want {
			t.Errorf("%s: IsFalsey() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestEqual(t *testing.T) {
	vmInstance := NewVM()
	a := vmInstance.CopyString("hi")
	b := vmInstance.CopyString("hi")

	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil==nil", Nil, Nil, true},
		{"true==true", True, True, true},
		{"true==false", True, False, false},
		{"1==1", Number(1), Number(1), true},
		{"1==2", Number(1), Number(2), false},
		{"nan!=nan", Number(math.NaN()), Number(math.NaN()), false},
		{"interned strings equal", Obj(a), Obj(b), true},
		{"different kinds", Number(0), Nil, false},
	}
	for _, c := range cases {
		if got := Equal(c.a, c.b); got != c.want {
			t.Errorf("%s: Equal() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestPrint(t *testing.T) {
	vmInstance := NewVM()
	s := vmInstance.CopyString("hi")
	cases := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{True, "true"},
		{False, "false"},
		{Number(3), "3"},
		{Number(2.5), "2.5"},
		{Number(math.NaN()), "nan"},
		{Number(math.Inf(1)), "inf"},
		{Number(math.Inf(-1)), "-inf"},
		{Obj(s), "hi"},
	}
	for _, c := range cases {
		if got := Print(c.v); got != c.want {
			t.Errorf("Print(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestAsXxxPanicsOnWrongKind(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("AsNumber on a bool Value should panic")
		}
	}()
	True.AsNumber()
}

func TestIsObjTypeHelpers(t *testing.T) {
	vmInstance := NewVM()
	s := Obj(vmInstance.CopyString("x"))
	if !s.IsString() {
		t.Fatalf("IsString() should be true for a StringObj value")
	}
	if s.IsClass() || s.IsInstance() || s.IsClosure() {
		t.Fatalf("a string Value should not report as any other object type")
	}
}
