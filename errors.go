package quarry

// errors.go defines the error taxonomy and the adapter that converts
// the engine's out-error-pointer convention into Go errors.

import (
	"errors"
	"fmt"

	"github.com/quarrykv/quarry/internal/native"
)

// ErrInvalidState is the class of errors for operations attempted on
// a closed, released, or otherwise unusable object. Concrete
// conditions below wrap it, so errors.Is(err, ErrInvalidState)
// matches all of them.
var ErrInvalidState = errors.New("quarry: invalid state")

var (
	// ErrNotFound is returned by Get for a key with no value. Absence
	// is reported only by the byte-level Get; the typed helpers map
	// it to a caller-supplied default.
	ErrNotFound = errors.New("quarry: key not found")

	// ErrDBClosed is returned for operations on a closed DB.
	ErrDBClosed = fmt.Errorf("%w: database is closed", ErrInvalidState)

	// ErrIteratorClosed is returned for operations on a closed iterator.
	ErrIteratorClosed = fmt.Errorf("%w: iterator is closed", ErrInvalidState)

	// ErrIteratorInvalid is returned by Key and Value when the
	// iterator is not positioned on an entry.
	ErrIteratorInvalid = fmt.Errorf("%w: iterator is not positioned", ErrInvalidState)

	// ErrSnapshotReleased is returned when a released snapshot is
	// attached to read options.
	ErrSnapshotReleased = fmt.Errorf("%w: snapshot already released", ErrInvalidState)

	// ErrBatchClosed is returned for operations on a closed write batch.
	ErrBatchClosed = fmt.Errorf("%w: write batch is closed", ErrInvalidState)

	// ErrViewReleased is returned when a released ByteView is used.
	ErrViewReleased = fmt.Errorf("%w: byte view already released", ErrInvalidState)
)

// EngineError carries a native-reported failure. The message is the
// engine's status string, verbatim.
type EngineError struct {
	Message string
}

func (e *EngineError) Error() string {
	return "quarry: engine: " + e.Message
}

// OpenError reports a failure to open, destroy, or repair a database
// at a path.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("quarry: open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// EncodingError reports a value that cannot be encoded to or decoded
// from a byte span: a span too small for the target, an oversized
// span for a fixed-size target, or a type outside the supported
// shapes.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string {
	return "quarry: encoding: " + e.Reason
}

func encodingErrf(format string, args ...any) *EncodingError {
	return &EncodingError{Reason: fmt.Sprintf(format, args...)}
}

// takeError adapts the engine's error convention: a non-zero pointer
// after a call means failure and owns a heap string that must be
// released through the engine's free routine. Conversion happens
// immediately at every call site; there is no shared error state.
func takeError(eng native.Engine, errptr uintptr) error {
	if errptr == 0 {
		return nil
	}
	msg := native.GoString(errptr)
	eng.Free(errptr)
	return &EngineError{Message: msg}
}
