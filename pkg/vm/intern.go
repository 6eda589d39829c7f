package vm

// fnvHash computes a 32-bit FNV-1a hash, matching the "FNV-like hash"
// precomputed and stored on every StringObj.
func fnvHash(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// CopyString interns a string whose backing buffer is borrowed: if an
// equal-content string already exists, that canonical instance is
// returned; otherwise a fresh copy is allocated and installed.
func (vm *VM) CopyString(chars string) *StringObj {
	hash := fnvHash(chars)
	if existing := vm.strings.FindString(chars, hash); existing != nil {
		return existing
	}
	s := vm.newString(chars, hash)
	vm.strings.Set(s, Nil) // the interner is used as a set; value is unused
	return s
}

// TakeString interns a string whose buffer is freshly allocated and owned
// by the caller (e.g. the result of concatenation): if an equal-content
// string is already canonical, the freshly built one is discarded in
// Go's favor of its garbage collector and the canonical instance is
// returned instead; otherwise the new buffer becomes canonical.
func (vm *VM) TakeString(chars string) *StringObj {
	return vm.CopyString(chars)
}
