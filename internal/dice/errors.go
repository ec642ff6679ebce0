package dice

import (
	"errors"
	"fmt"
)

// User input errors. Each is reported to the caller and leaves the engine
// usable for the next expression.
var (
	ErrInvalidCharacter     = errors.New("invalid character")
	ErrMalformedNumber      = errors.New("malformed number")
	ErrMalformedDiceSpec    = errors.New("malformed dice spec")
	ErrUnbalancedParens     = errors.New("unbalanced parentheses")
	ErrUnexpectedToken      = errors.New("unexpected token")
	ErrIncompleteExpression = errors.New("incomplete expression")
	ErrEmptyExpression      = errors.New("empty expression")
	ErrDivisionByZero       = errors.New("division by zero")
)

// Internal errors. They mean the converter produced an RPN sequence the
// evaluator cannot consume and are never caused by user input alone.
var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrStackOverflow  = errors.New("stack overflow")
)

// Error locates a failure in the source expression. It unwraps to one of the
// package sentinels so callers can use errors.Is.
type Error struct {
	Err    error
	Pos    int    // byte offset in the input, -1 when unknown
	Text   string // offending substring
	Reason string // optional detail
}

// Error returns the error string representation.
func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Text != "" {
		msg += fmt.Sprintf(" %q", e.Text)
	}
	if e.Pos >= 0 {
		msg += fmt.Sprintf(" at position %d", e.Pos+1)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap returns the sentinel error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(err error, pos int, text, reason string) *Error {
	return &Error{Err: err, Pos: pos, Text: text, Reason: reason}
}

// IsInternal reports whether err signals an inconsistency between the
// converter and the evaluator rather than bad input.
func IsInternal(err error) bool {
	return errors.Is(err, ErrStackUnderflow) || errors.Is(err, ErrStackOverflow)
}
