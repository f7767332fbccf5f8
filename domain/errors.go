package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an operation was rejected.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	// KindValidation is a malformed argument, mismatched identity or wrong
	// lifecycle state for the requested transition.
	KindValidation
	// KindArithmetic is an overflow, underflow or undefined division.
	KindArithmetic
	// KindAuthorization is a caller not matching the required owner or authority.
	KindAuthorization
	// KindState is an insufficient balance for the requested reduction.
	KindState
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindArithmetic:
		return "arithmetic"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the typed result of a rejected operation. Sentinels are compared
// with errors.Is, so wrap them with %w rather than building new ones.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = NewError(KindInternal, "Internal", "internal server error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = NewError(KindNotFound, "NotFound", "requested item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = NewError(KindConflict, "Conflict", "item already exists")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = NewError(KindValidation, "BadParamInput", "given param is not valid")

	ErrInvalidAddress = NewError(KindValidation, "InvalidAddress", "invalid address")
	ErrInvalidAmount  = NewError(KindValidation, "InvalidAmount", "amount must be greater than zero")
	ErrMathOverflow   = NewError(KindArithmetic, "MathOverflow", "calculation overflow detected")
	ErrUnauthorized   = NewError(KindAuthorization, "Unauthorized", "caller is not authorized to perform this action")

	// ErrMissingSignature is returned when an address the request relies on
	// did not sign it.
	ErrMissingSignature = NewError(KindAuthorization, "MissingSignature", "required signer did not sign the request")
)
