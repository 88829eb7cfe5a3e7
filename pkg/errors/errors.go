// Copyright © 2018 One Concern

// Package errors augments the standard errors
// provided by fmt (https://golang.org/src/fmt/errors.go)
// with a Wrap() method to wrap errors without resorting
// to fmt.Errorf("%w", err), and with a closed set of error kinds
// that command boundaries match on.
package errors

import (
	stderr "errors"
	"fmt"

	"go.uber.org/zap"
)

var _ error = New("")

// New Error
func New(msg string) *Error {
	return &Error{msg: msg}
}

// NewKind builds an error of a given kind
func NewKind(kind Kind, msg string) *Error {
	return &Error{msg: msg, kind: kind}
}

// Error augments the standard error interface with a Wrap method.
//
// The main difference with github.com/pkg/errors is that we are wrapping
// errors from errors, not from text.
type Error struct {
	msg  string
	kind Kind
	err  error
}

// Error message
func (e *Error) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Kind of this error, or the first kind found in the chain of wrapped errors
func (e *Error) Kind() Kind {
	if e == nil {
		return KindUnknown
	}
	if e.kind != KindUnknown {
		return e.kind
	}
	return KindOf(e.err)
}

// Wrap a nested error.
//
// Sentinels are never mutated: a copy is returned.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, kind: e.kind, err: err}
}

// WrapMessage wraps a formatted detail message
func (e *Error) WrapMessage(format string, args ...interface{}) *Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

// WrapWithLog wraps a nested error and logs it at the error level
func (e *Error) WrapWithLog(l *zap.Logger, err error, fields ...zap.Field) *Error {
	wrapped := e.Wrap(err)
	if l != nil {
		l.Error(e.msg, append(fields, zap.Error(err))...)
	}
	return wrapped
}

// Is of some error type?
func (e *Error) Is(target error) bool {
	if e == target {
		return true
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	// copies made by Wrap still match their sentinel
	return e.msg == t.msg && e.kind == t.kind && t.err == nil
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.As)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
