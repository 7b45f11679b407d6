package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrUnroutable is returned for a call addressed to a module index that does not exist.
	ErrUnroutable = errors.New("unroutable call")
	// ErrUnknownCall is returned by modules for a function index they do not define.
	ErrUnknownCall = errors.New("unknown call")

	ErrDuplicateIndex  = errors.New("duplicate module index")
	ErrDuplicateName   = errors.New("duplicate module name")
	ErrPrefixCollision = errors.New("module storage prefix collision")
	ErrCapability      = errors.New("declared capability not implemented")
)

// DispatchErrorKind classifies failures of an admitted extrinsic.
type DispatchErrorKind uint8

const (
	Other DispatchErrorKind = iota
	BadOrigin
	CannotLookup
	ModuleError
	Arithmetic
)

func (k DispatchErrorKind) String() string {
	switch k {
	case Other:
		return "other"
	case BadOrigin:
		return "bad origin"
	case CannotLookup:
		return "cannot lookup"
	case ModuleError:
		return "module"
	case Arithmetic:
		return "arithmetic"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// DispatchError is the outcome of a call that was included but failed.
// It is recorded in the block's events and never aborts the block.
type DispatchError struct {
	Kind DispatchErrorKind
	// Index and Code identify a module error.
	Index uint8
	Code  uint8
	// Message is informative and not part of the identity of the error.
	Message string
}

func (e *DispatchError) Error() string {
	switch e.Kind {
	case ModuleError:
		if e.Message != "" {
			return fmt.Sprintf("dispatch error: module %d code %d (%s)", e.Index, e.Code, e.Message)
		}
		return fmt.Sprintf("dispatch error: module %d code %d", e.Index, e.Code)
	case Other:
		if e.Message != "" {
			return "dispatch error: " + e.Message
		}
	}
	return "dispatch error: " + e.Kind.String()
}

// Is matches on kind, and on module index and code for module errors.
func (e *DispatchError) Is(target error) bool {
	t, ok := target.(*DispatchError)
	if !ok || t.Kind != e.Kind {
		return false
	}
	if e.Kind == ModuleError {
		return t.Index == e.Index && t.Code == e.Code
	}
	return true
}

var (
	ErrBadOrigin    = &DispatchError{Kind: BadOrigin}
	ErrCannotLookup = &DispatchError{Kind: CannotLookup}
	ErrArithmetic   = &DispatchError{Kind: Arithmetic}
)

// NewModuleError is a module-defined failure.
func NewModuleError(index, code uint8, msg string) *DispatchError {
	return &DispatchError{Kind: ModuleError, Index: index, Code: code, Message: msg}
}

// OtherError is a failure outside the other categories.
func OtherError(msg string) *DispatchError {
	return &DispatchError{Kind: Other, Message: msg}
}

// AsDispatchError converts any module failure into a DispatchError.
func AsDispatchError(err error) *DispatchError {
	if err == nil {
		return nil
	}
	var de *DispatchError
	if errors.As(err, &de) {
		return de
	}
	return OtherError(err.Error())
}
