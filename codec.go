package quarry

// codec.go implements the type-driven codec that decides how a Go
// value becomes a byte span for the engine and how an engine span
// becomes a Go value again. Dispatch runs over a closed set of shape
// variants chosen by an explicit classifier, so every supported type
// maps to exactly one auditable strategy.

import (
	"reflect"
	"unsafe"
)

// Shape classifies how a value type maps to bytes.
type Shape uint8

const (
	// ShapeScalar is a fixed-width numeric, boolean, or similar
	// single-word value. Encoded by borrowing its own storage.
	ShapeScalar Shape = iota

	// ShapeByteSequence is a string or a slice of fixed-width
	// elements. Encoded by borrowing the backing array; decoded by
	// copying the span into a fresh sequence.
	ShapeByteSequence

	// ShapeFixedLayout is an aggregate with no internal indirection
	// (a struct or array containing no pointers). Encoded and decoded
	// like a scalar of its full size.
	ShapeFixedLayout

	// ShapeIndirect is a value reached through a pointer whose length
	// cannot be derived from the type; the caller supplies it.
	ShapeIndirect
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "Scalar"
	case ShapeByteSequence:
		return "ByteSequence"
	case ShapeFixedLayout:
		return "FixedLayout"
	case ShapeIndirect:
		return "Indirect"
	default:
		return "Unknown"
	}
}

// Codec encodes and decodes values of one concrete type.
type Codec[T any] struct {
	shape    Shape
	size     int // encoded size for Scalar/FixedLayout, element size for sequences
	elemKind reflect.Kind
}

// CodecOf classifies T and returns its codec. Types that cannot cross
// the boundary safely (maps, channels, functions, nested pointers,
// interfaces) are rejected with an EncodingError.
func CodecOf[T any]() (Codec[T], error) {
	var zero T
	t := reflect.TypeOf(&zero).Elem()
	return codecForType[T](t)
}

func codecForType[T any](t reflect.Type) (Codec[T], error) {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return Codec[T]{shape: ShapeScalar, size: int(t.Size())}, nil

	case reflect.String:
		return Codec[T]{shape: ShapeByteSequence, size: 1, elemKind: reflect.String}, nil

	case reflect.Slice:
		elem := t.Elem()
		if hasIndirection(elem) {
			return Codec[T]{}, encodingErrf("slice element type %s contains indirection", elem)
		}
		return Codec[T]{shape: ShapeByteSequence, size: int(elem.Size()), elemKind: reflect.Slice}, nil

	case reflect.Struct, reflect.Array:
		if hasIndirection(t) {
			return Codec[T]{}, encodingErrf("type %s contains indirection and has no fixed layout", t)
		}
		return Codec[T]{shape: ShapeFixedLayout, size: int(t.Size())}, nil

	case reflect.Pointer:
		if hasIndirection(t.Elem()) {
			return Codec[T]{}, encodingErrf("pointee type %s contains indirection", t.Elem())
		}
		return Codec[T]{shape: ShapeIndirect}, nil

	default:
		return Codec[T]{}, encodingErrf("type %s has no supported shape", t)
	}
}

// hasIndirection reports whether a value of type t contains pointers,
// making a flat byte copy unsafe.
func hasIndirection(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return hasIndirection(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasIndirection(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Shape returns the codec's shape classification.
func (c Codec[T]) Shape() Shape { return c.shape }

// Encode produces a borrowed view over v's own storage, without
// copying. Indirect values need EncodeIndirect since their length is
// not derivable from the type.
func (c Codec[T]) Encode(v *T) (*ByteView, error) {
	switch c.shape {
	case ShapeScalar, ShapeFixedLayout:
		return BorrowedView(unsafe.Pointer(v), c.size), nil

	case ShapeByteSequence:
		if c.elemKind == reflect.String {
			s := *(*string)(unsafe.Pointer(v))
			if len(s) == 0 {
				return BorrowedView(nil, 0), nil
			}
			return BorrowedView(unsafe.Pointer(unsafe.StringData(s)), len(s)), nil
		}
		// All slices share one header layout; the element size scales
		// the byte length.
		hdr := (*sliceHeader)(unsafe.Pointer(v))
		return BorrowedView(hdr.data, hdr.len*c.size), nil

	case ShapeIndirect:
		return nil, encodingErrf("indirect value requires an explicit length; use EncodeIndirect")

	default:
		return nil, encodingErrf("unclassified shape %d", c.shape)
	}
}

// EncodeIndirect produces a borrowed view over the n bytes behind an
// indirect value's pointer.
func (c Codec[T]) EncodeIndirect(v *T, n int) (*ByteView, error) {
	if c.shape != ShapeIndirect {
		return nil, encodingErrf("EncodeIndirect on %s shape", c.shape)
	}
	p := *(*unsafe.Pointer)(unsafe.Pointer(v))
	if p == nil {
		return nil, encodingErrf("nil indirect value")
	}
	return BorrowedView(p, n), nil
}

// Decode reconstructs a value from an engine span. Scalar and
// FixedLayout targets are bounds-checked reinterpretations: a span
// smaller or larger than the target is an error, never a silent
// truncation. ByteSequence targets copy the span; a trailing partial
// element is dropped, since the source may carry extra length
// information.
func (c Codec[T]) Decode(span []byte) (T, error) {
	var out T
	switch c.shape {
	case ShapeScalar, ShapeFixedLayout:
		if len(span) < c.size {
			return out, encodingErrf("span of %d bytes too small for %T (%d bytes)", len(span), out, c.size)
		}
		if len(span) > c.size {
			return out, encodingErrf("span of %d bytes does not match %T (%d bytes)", len(span), out, c.size)
		}
		copy(unsafe.Slice((*byte)(unsafe.Pointer(&out)), c.size), span)
		return out, nil

	case ShapeByteSequence:
		if c.elemKind == reflect.String {
			s := string(span)
			*(*string)(unsafe.Pointer(&out)) = s
			return out, nil
		}
		n := len(span) / c.size
		buf := make([]byte, n*c.size)
		copy(buf, span)
		hdr := (*sliceHeader)(unsafe.Pointer(&out))
		if n > 0 {
			hdr.data = unsafe.Pointer(unsafe.SliceData(buf))
		}
		hdr.len = n
		hdr.cap = n
		return out, nil

	case ShapeIndirect:
		return out, encodingErrf("indirect values cannot be decoded into fresh storage")

	default:
		return out, encodingErrf("unclassified shape %d", c.shape)
	}
}

// sliceHeader mirrors the runtime slice layout for shape-generic
// slice access.
type sliceHeader struct {
	data unsafe.Pointer
	len  int
	cap  int
}
