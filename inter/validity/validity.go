// Package validity describes the verdicts of transaction validation.
package validity

import (
	"fmt"
	"math"
)

// Kind enumerates validation failure reasons.
type Kind uint8

const (
	// Invalid: the transaction can never be included as is.
	Call Kind = iota
	Payment
	Future
	Stale
	BadProof
	AncientBirthBlock
	ExhaustsResources
	Expired
	BadMandatory
	MandatoryDispatch
	Custom

	// Unknown: validity could not be determined.
	CannotLookup
	NoUnsignedValidator
	UnknownCustom
)

var kindNames = map[Kind]string{
	Call:                "call",
	Payment:             "payment",
	Future:              "future",
	Stale:               "stale",
	BadProof:            "bad proof",
	AncientBirthBlock:   "ancient birth block",
	ExhaustsResources:   "exhausts resources",
	Expired:             "expired",
	BadMandatory:        "bad mandatory",
	MandatoryDispatch:   "mandatory dispatch",
	Custom:              "custom",
	CannotLookup:        "cannot lookup",
	NoUnsignedValidator: "no unsigned validator",
	UnknownCustom:       "unknown custom",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is a transaction validity error.
type Error struct {
	Kind Kind
	Code uint8
}

func (e *Error) Error() string {
	if e.Kind == Custom || e.Kind == UnknownCustom {
		return fmt.Sprintf("invalid transaction: %s(%d)", e.Kind, e.Code)
	}
	if e.Unknown() {
		return "unknown transaction validity: " + e.Kind.String()
	}
	return "invalid transaction: " + e.Kind.String()
}

// Is matches errors of the same kind and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Code == e.Code
}

// Unknown reports whether validity could not be determined, as opposed to being invalid.
func (e *Error) Unknown() bool {
	return e.Kind >= CannotLookup
}

var (
	ErrCall                = &Error{Kind: Call}
	ErrPayment             = &Error{Kind: Payment}
	ErrFuture              = &Error{Kind: Future}
	ErrStale               = &Error{Kind: Stale}
	ErrBadProof            = &Error{Kind: BadProof}
	ErrAncientBirthBlock   = &Error{Kind: AncientBirthBlock}
	ErrExhaustsResources   = &Error{Kind: ExhaustsResources}
	ErrExpired             = &Error{Kind: Expired}
	ErrBadMandatory        = &Error{Kind: BadMandatory}
	ErrMandatoryDispatch   = &Error{Kind: MandatoryDispatch}
	ErrCannotLookup        = &Error{Kind: CannotLookup}
	ErrNoUnsignedValidator = &Error{Kind: NoUnsignedValidator}
)

func CustomError(code uint8) *Error {
	return &Error{Kind: Custom, Code: code}
}

// Source tells where a transaction came from.
type Source uint8

const (
	InBlock Source = iota
	Local
	External
)

func (s Source) String() string {
	switch s {
	case InBlock:
		return "in-block"
	case Local:
		return "local"
	case External:
		return "external"
	}
	return fmt.Sprintf("source(%d)", uint8(s))
}

// Tag is an opaque dependency label used by the pool for ordering.
type Tag []byte

// ValidTransaction is what the pool learns about an admissible transaction.
type ValidTransaction struct {
	Priority  uint64
	Requires  []Tag
	Provides  []Tag
	Longevity uint64
	Propagate bool
}

// Default is the neutral element of Combine.
func Default() ValidTransaction {
	return ValidTransaction{Longevity: math.MaxUint64, Propagate: true}
}

// Combine merges the verdicts of two checks on the same transaction.
func (v ValidTransaction) Combine(o ValidTransaction) ValidTransaction {
	out := ValidTransaction{
		Priority:  v.Priority,
		Requires:  append(append([]Tag{}, v.Requires...), o.Requires...),
		Provides:  append(append([]Tag{}, v.Provides...), o.Provides...),
		Longevity: v.Longevity,
		Propagate: v.Propagate && o.Propagate,
	}
	if math.MaxUint64-out.Priority < o.Priority {
		out.Priority = math.MaxUint64
	} else {
		out.Priority += o.Priority
	}
	if o.Longevity < out.Longevity {
		out.Longevity = o.Longevity
	}
	return out
}
