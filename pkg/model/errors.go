package model

import (
	"github.com/oneconcern/datalink/pkg/errors"
)

var (
	// ErrMissingField indicates a record built without one of its required fields
	ErrMissingField = errors.NewKind(errors.KindMissingParameters, "missing required field")

	// ErrInvalidIndex indicates a content copy index out of range
	ErrInvalidIndex = errors.NewKind(errors.KindInvalidValue, "content copy index out of range")

	// ErrAmbiguousIndex indicates that a content copy must be selected by its index
	ErrAmbiguousIndex = errors.NewKind(errors.KindAmbiguousContentCopy, "several content copies, an index is required")
)
