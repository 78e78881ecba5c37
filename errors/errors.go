// Package errors implements the curated error scheme used throughout the
// machine substrate. Errors are created against a fixed message pattern and
// carry values for later formatting, rather than being formatted eagerly, so
// that callers can test for a particular category of failure with Is/Has
// without string matching.
package errors

import (
	"fmt"
	"strings"
)

// Errno identifies a category of error. The zero value is never used for a
// real error; packages define their own Errno constants in this block so
// that the full taxonomy from spec.md section 7 lives in one place.
type Errno int

const (
	_ Errno = iota

	// Memory access table (ReadError / WriteError / PreviewError)
	Denied
	OutOfBus
	Impossible

	// Machine builder (BuildError)
	InvalidConfig
	DuplicatePath
	InvalidAddressSpaceWidth

	// Save/snapshot (SaveError)
	InvalidVersion
	CorruptData
	IoFailure

	// Registry
	WrongComponentType
	WrongThread
	ReentrantBorrow

	// Scheduler
	UnknownTask
)

var names = map[Errno]string{
	Denied:                   "denied",
	OutOfBus:                 "out of bus",
	Impossible:               "impossible",
	InvalidConfig:            "invalid config",
	DuplicatePath:            "duplicate component path",
	InvalidAddressSpaceWidth: "invalid address space width",
	InvalidVersion:           "invalid version",
	CorruptData:              "corrupt data",
	IoFailure:                "io failure",
	WrongComponentType:       "wrong component type",
	WrongThread:              "wrong thread",
	ReentrantBorrow:          "reentrant borrow",
	UnknownTask:              "unknown task",
}

func (e Errno) String() string {
	if s, ok := names[e]; ok {
		return s
	}
	return "unknown error"
}

// Values is the argument list supplied to a curated error's pattern.
type Values []interface{}

// curated is an implementation of the go language error interface. The
// message is not formatted until Error() is called, so a curated error can
// be cheaply constructed and compared against with Is/Has.
type curated struct {
	errno   Errno
	message string
	values  Values
}

// Errorf creates a new curated error of the given category. message is a
// fmt-style pattern; values are its arguments.
func Errorf(errno Errno, message string, values ...interface{}) error {
	return curated{errno: errno, message: message, values: values}
}

// Error implements the go language error interface. It normalises the
// message by removing a duplicated adjacent error message part, which
// happens often when wrapping a lower curated error with %s.
func (e curated) Error() string {
	s := fmt.Errorf(e.message, e.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}
	return strings.Join(p, ": ")
}

// Category returns the error's Errno, or 0 if err is not a curated error.
func Category(err error) Errno {
	if e, ok := err.(curated); ok {
		return e.errno
	}
	return 0
}

// Is reports whether err is a curated error of the given category.
func Is(err error, errno Errno) bool {
	if err == nil {
		return false
	}
	e, ok := err.(curated)
	return ok && e.errno == errno
}

// Has reports whether err, or any curated error wrapped in its values, is of
// the given category.
func Has(err error, errno Errno) bool {
	if err == nil {
		return false
	}
	e, ok := err.(curated)
	if !ok {
		return false
	}
	if e.errno == errno {
		return true
	}
	for _, v := range e.values {
		if w, ok := v.(error); ok && Has(w, errno) {
			return true
		}
	}
	return false
}

// Head returns the unformatted message pattern of a curated error, or the
// result of Error() if err is a plain error. Useful in switches.
func Head(err error) string {
	if e, ok := err.(curated); ok {
		return e.message
	}
	return err.Error()
}
