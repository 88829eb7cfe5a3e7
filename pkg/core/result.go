package core

import (
	"fmt"

	"github.com/oneconcern/datalink/pkg/errors"
)

// Result codes
const (
	CodeOK = 0

	// CodeFailure reports an expected condition, such as a missing setting or a missing content copy
	CodeFailure = 1

	// CodeFatal reports a failure of an external tool or of the catalog, to be looked at by a human
	CodeFatal = 2
)

// Result of a command
type Result struct {
	Code   int
	Output string
	Err    error

	// NothingToSync is set when a sync found the catalog up to date
	NothingToSync bool

	// AlreadyExists is set when the content copy was already registered
	AlreadyExists bool

	DataSetID string
	Path      string
}

// Success of the command
func (r Result) Success() bool {
	return r.Code == CodeOK
}

// Failure of the command
func (r Result) Failure() bool {
	return !r.Success()
}

// Kind of the failure, if any
func (r Result) Kind() errors.Kind {
	return errors.KindOf(r.Err)
}

func (r Result) String() string {
	return r.Output
}

func success(format string, args ...interface{}) Result {
	return Result{Code: CodeOK, Output: fmt.Sprintf(format, args...)}
}

// failure converts an error into a result. Errors of unknown kind are reported as fatal.
func failure(err error) Result {
	code := CodeFailure
	if !errors.KindOf(err).IsRecoverable() {
		code = CodeFatal
	}
	return Result{Code: code, Output: err.Error(), Err: err}
}
