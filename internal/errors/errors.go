// Package errors defines the superblock manager's error taxonomy.
//
// Every Manager-facing operation returns one of the Kinds below instead of
// a bare I/O or driver error, in the style of github.com/containerd/errdefs:
// callers branch on KindOf(err) rather than on error strings.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a Manager error. See spec.md §7.
type Kind string

const (
	InvalidArgs  Kind = "invalid-args"
	BadState     Kind = "bad-state"
	NotSupported Kind = "not-supported"
	NoSpace      Kind = "no-space"
	AccessDenied Kind = "access-denied"
	IO           Kind = "io"
	NoMemory     Kind = "no-memory"
	Internal     Kind = "internal"
)

// Error is a Manager error carrying a Kind alongside the usual message/cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a Kind-classified error with no underlying cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a Kind-classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error under Kind, preserving it as the cause.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or "" if err was not produced by this
// package (or any error in its chain).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err (or any error it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
