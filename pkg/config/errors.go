package config

import (
	"github.com/oneconcern/datalink/pkg/errors"
)

var (
	// ErrDuplicateKey indicates that two keys of a JSON setting collide once upper-cased
	ErrDuplicateKey = errors.NewKind(errors.KindDuplicateKey, "duplicate key after case folding")

	// ErrInvalidValue indicates a value that cannot be parsed for its parameter
	ErrInvalidValue = errors.NewKind(errors.KindInvalidValue, "invalid value")

	// ErrUnknownParameter indicates a parameter not declared in its category
	ErrUnknownParameter = errors.NewKind(errors.KindInvalidValue, "unknown parameter")

	// ErrNotGlobal indicates a parameter which may only be set on a working copy
	ErrNotGlobal = errors.NewKind(errors.KindInvalidValue, "parameter cannot be set globally")

	// ErrNoWorkingCopy indicates a local operation without a working copy
	ErrNoWorkingCopy = errors.NewKind(errors.KindInvalidRepository, "not in a working copy")

	// ErrMissingParameters indicates required parameters without a value
	ErrMissingParameters = errors.NewKind(errors.KindMissingParameters, "missing required parameters")

	// ErrReadSettings indicates a failure when reading a settings document
	ErrReadSettings = errors.New("failed to read settings")

	// ErrWriteSettings indicates a failure when writing a settings document
	ErrWriteSettings = errors.New("failed to write settings")
)
