package migrate

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("migration already running")

// ErrorKind classifies a pipeline error by how it is recovered.
type ErrorKind int

const (
	// KindMalformed is a row that could not be projected. Counted and skipped.
	KindMalformed ErrorKind = iota + 1
	// KindUnresolved is an asset reference with no candidate. Left untouched.
	KindUnresolved
	// KindWrite is a failed target or object store call. The batch is
	// recorded as failed and the run continues.
	KindWrite
	// KindFatal aborts the run.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindUnresolved:
		return "unresolved"
	case KindWrite:
		return "write"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

// Error is a classified pipeline error.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError classifies err. It returns nil for a nil err.
func WrapError(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
