package native

// span.go centralizes the unsafe pointer arithmetic for crossing the
// ABI. Everything that turns a uintptr into Go-visible memory, or a
// Go slice into a (pointer, length) pair, lives here.

import "unsafe"

// Span reinterprets an engine pointer as a read-only byte slice of n
// bytes. The result aliases engine memory; it is valid only as long
// as the underlying allocation.
func Span(p uintptr, n int) []byte {
	if p == 0 || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), n)
}

// GoString copies a NUL-terminated engine string into a Go string.
func GoString(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	return string(Span(p, n))
}

// BytesPtr returns the address and length of a slice's backing array.
// Callers must keep the slice reachable across the native call
// (runtime.KeepAlive) since the address alone does not pin it.
func BytesPtr(b []byte) (uintptr, int) {
	if len(b) == 0 {
		return 0, 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b))), len(b)
}
