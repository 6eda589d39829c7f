package vm

import "testing"

func TestTableSetGetDelete(t *testing.T) {
	tbl := NewTable()
	foo := &StringObj{Chars: "foo", Hash: fnvHash("foo")}
	bar := &StringObj{Chars: "bar", Hash: fnvHash("bar")}

	if isNew := tbl.Set(foo, Number(1)); !isNew {
		t.Fatalf("Set on absent key should report isNew=true")
	}
	if isNew := tbl.Set(foo, Number(2)); isNew {
		t.Fatalf("Set on present key should report isNew=false")
	}

	v, ok := tbl.Get(foo)
	if !ok || v.AsNumber() != 2 {
		t.Fatalf("Get(foo) = %v, %v; want 2, true", v, ok)
	}

	if _, ok := tbl.Get(bar); ok {
		t.Fatalf("Get(bar) should miss before bar is set")
	}

	if !tbl.Delete(foo) {
		t.Fatalf("Delete(foo) should report true")
	}
	if _, ok := tbl.Get(foo); ok {
		t.Fatalf("Get(foo) should miss after Delete")
	}
	if tbl.Delete(foo) {
		t.Fatalf("Delete(foo) twice should report false")
	}
}

// TestTableSetReportsIsNewOnTombstoneReuse checks that re-inserting a
// previously-deleted key is reported as isNew=true, matching clox: the key
// is absent as far as any caller can observe (Get already misses it), even
// though its slot is a tombstone rather than a never-used empty entry.
func TestTableSetReportsIsNewOnTombstoneReuse(t *testing.T) {
	tbl := NewTable()
	foo := &StringObj{Chars: "foo", Hash: fnvHash("foo")}

	tbl.Set(foo, Number(1))
	tbl.Delete(foo)

	if isNew := tbl.Set(foo, Number(2)); !isNew {
		t.Fatalf("Set reusing a tombstone slot should report isNew=true")
	}
	if v, ok := tbl.Get(foo); !ok || v.AsNumber() != 2 {
		t.Fatalf("Get(foo) = %v, %v; want 2, true", v, ok)
	}
}

// TestTableTombstoneProbing checks that a probe chain broken by a deleted
// entry still finds a later-inserted key hashing to the same bucket.
func TestTableTombstoneProbing(t *testing.T) {
	tbl := NewTable()
	a := &StringObj{Chars: "a", Hash: 0}
	b := &StringObj{Chars: "b", Hash: 0}
	c := &StringObj{Chars: "c", Hash: 0}

	tbl.Set(a, Number(1))
	tbl.Set(b, Number(2))
	tbl.Delete(a)
	tbl.Set(c, Number(3))

	if v, ok := tbl.Get(b); !ok || v.AsNumber() != 2 {
		t.Fatalf("Get(b) = %v, %v; want 2, true", v, ok)
	}
	if v, ok := tbl.Get(c); !ok || v.AsNumber() != 3 {
		t.Fatalf("Get(c) = %v, %v; want 3, true", v, ok)
	}
}

func TestTableGrowPreservesEntries(t *testing.T) {
	tbl := NewTable()
	keys := make([]*StringObj, 0, 64)
	for i := 0; i < 64; i++ {
		s := string(rune('a' + i%26))
		k := &StringObj{Chars: s + string(rune('A'+i/26)), Hash: fnvHash(s)}
		keys = append(keys, k)
		tbl.Set(k, Number(float64(i)))
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		if !ok || v.AsNumber() != float64(i) {
			t.Fatalf("key %d: Get = %v, %v; want %d, true", i, v, ok, i)
		}
	}
	if tbl.Count() != 64 {
		t.Fatalf("Count() = %d; want 64", tbl.Count())
	}
}

func TestTableAddAll(t *testing.T) {
	src := NewTable()
	dst := NewTable()
	x := &StringObj{Chars: "x", Hash: fnvHash("x")}
	y := &StringObj{Chars: "y", Hash: fnvHash("y")}
	src.Set(x, Number(1))
	src.Set(y, Number(2))
	dst.Set(x, Number(99)) // pre-existing entry must still be overwritten

	dst.AddAll(src)

	if v, _ := dst.Get(x); v.AsNumber() != 1 {
		t.Fatalf("AddAll did not overwrite existing key x: got %v", v)
	}
	if v, ok := dst.Get(y); !ok || v.AsNumber() != 2 {
		t.Fatalf("AddAll did not copy key y: got %v, %v", v, ok)
	}
}

func TestTableFindString(t *testing.T) {
	tbl := NewTable()
	s := &StringObj{Chars: "hello", Hash: fnvHash("hello")}
	tbl.Set(s, Nil)

	if found := tbl.FindString("hello", fnvHash("hello")); found != s {
		t.Fatalf("FindString did not return the canonical instance")
	}
	if found := tbl.FindString("goodbye", fnvHash("goodbye")); found != nil {
		t.Fatalf("FindString found a key that was never inserted")
	}
}
