package quarry

// byteview.go implements the ownership-aware view over contiguous
// bytes that every key and value crossing the engine boundary travels
// through. A view is either a pure borrow, never released, or an
// owner that must be released exactly once through the engine's free
// routine.

import (
	"unsafe"

	"github.com/quarrykv/quarry/internal/native"
)

// ByteView is a typed view over a contiguous byte range. Owned views
// hold an engine allocation and release it through the engine's
// dedicated free routine, never a generic allocator.
type ByteView struct {
	ptr      uintptr
	n        int
	owned    bool
	released bool
	free     func(uintptr)
	pin      any // keeps borrowed Go memory reachable
}

// BorrowedView creates a non-owning view over memory the caller
// guarantees outlives the view.
func BorrowedView(ptr unsafe.Pointer, n int) *ByteView {
	return &ByteView{ptr: uintptr(ptr), n: n}
}

// borrowedBytes creates a non-owning view over a Go slice, pinning it
// for the view's lifetime.
func borrowedBytes(b []byte) *ByteView {
	p, n := native.BytesPtr(b)
	return &ByteView{ptr: p, n: n, pin: b}
}

// OwnedView creates an owning view over an engine allocation. The
// view promises to release it through free exactly once.
func OwnedView(ptr uintptr, n int, free func(uintptr)) *ByteView {
	return &ByteView{ptr: ptr, n: n, owned: true, free: free}
}

// Owned reports whether the view owns its allocation.
func (v *ByteView) Owned() bool { return v.owned }

// Len returns the view's length in bytes.
func (v *ByteView) Len() int { return v.n }

// Bytes returns a read-only slice over the viewed range. The slice
// aliases the underlying memory and is invalidated by Release.
func (v *ByteView) Bytes() ([]byte, error) {
	if v.released {
		return nil, ErrViewReleased
	}
	return native.Span(v.ptr, v.n), nil
}

// Release frees an owned view's allocation. Releasing twice is a
// programming error and is reported as ErrViewReleased rather than
// reaching the engine a second time. Releasing a borrowed view only
// invalidates it.
func (v *ByteView) Release() error {
	if v.released {
		return ErrViewReleased
	}
	v.released = true
	if v.owned && v.ptr != 0 {
		v.free(v.ptr)
	}
	v.ptr = 0
	v.pin = nil
	return nil
}

// ViewAs reinterprets the viewed bytes as a value of type T. It fails
// with an EncodingError when the view is shorter than T.
func ViewAs[T any](v *ByteView) (T, error) {
	var out T
	if v.released {
		return out, ErrViewReleased
	}
	size := int(unsafe.Sizeof(out))
	if size > v.n {
		return out, encodingErrf("view of %d bytes too small for %T (%d bytes)", v.n, out, size)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out)), size), native.Span(v.ptr, v.n))
	return out, nil
}
