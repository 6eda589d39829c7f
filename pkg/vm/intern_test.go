package vm

import "testing"

func TestCopyStringInterns(t *testing.T) {
	vmInstance := NewVM()
	a := vmInstance.CopyString("hello")
	b := vmInstance.CopyString("hello")
	if a != b {
		t.Fatalf("CopyString returned distinct instances for equal content")
	}
}

func TestTakeStringInternsAgainstExisting(t *testing.T) {
	vmInstance := NewVM()
	canonical := vmInstance.CopyString("foobar")
	taken := vmInstance.TakeString("foo" + "bar")
	if canonical != taken {
		t.Fatalf("TakeString should return the pre-existing canonical instance")
	}
}

func TestFnvHashStable(t *testing.T) {
	if fnvHash("abc") != fnvHash("abc") {
		t.Fatalf("fnvHash is not deterministic")
	}
	if fnvHash("abc") == fnvHash("abd") {
		t.Fatalf("fnvHash collided on distinct short strings")
	}
}
