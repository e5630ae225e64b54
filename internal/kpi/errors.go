package kpi

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	Unauthorized Kind = "unauthorized"
	Forbidden    Kind = "forbidden"
	InvalidInput Kind = "invalid_input"
	NotFound     Kind = "not_found"
	Conflict     Kind = "conflict"
	Internal     Kind = "internal"
)

// Error is the engine's error type. Violations carries every validation
// problem found, not just the first.
type Error struct {
	Kind       Kind
	Msg        string
	Violations []string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Violations) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Violations, "; "))
		b.WriteString("]")
	}
	if e.Err != nil && e.Kind != Internal {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Public is the message safe to show an untrusted caller.
func (e *Error) Public() string {
	if e.Kind == Internal {
		return "internal error"
	}
	return e.Error()
}

func Errorf(k Kind, format string, args ...any) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Invalid(msg string, violations ...string) error {
	return &Error{Kind: InvalidInput, Msg: msg, Violations: violations}
}

// Wrap tags an unexpected failure as Internal, keeping the cause for logs.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	var ke *Error
	if errors.As(err, &ke) {
		return err
	}
	return &Error{Kind: Internal, Msg: op, Err: err}
}

// KindOf returns Internal for errors that are not *Error.
func KindOf(err error) Kind {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return Internal
}

func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
