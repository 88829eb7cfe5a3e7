// Package status declares error constants returned by
// the checksum package.
package status

import (
	"github.com/oneconcern/datalink/pkg/errors"
)

var (
	// ErrUnsupportedBackend indicates a checksum backend we do not know how to handle
	ErrUnsupportedBackend = errors.NewKind(errors.KindUnsupportedBackend, "unsupported checksum backend")

	// ErrEmptyFile indicates a zero-length file presented for checksumming
	ErrEmptyFile = errors.NewKind(errors.KindEmptyFile, "cannot checksum an empty file")

	// ErrReadFile indicates a failure when reading the file to checksum
	ErrReadFile = errors.New("failed to read file")

	// ErrInvalidKey indicates an annex key which cannot be split into its components
	ErrInvalidKey = errors.NewKind(errors.KindInvalidValue, "invalid annex key")

	// ErrAnnex indicates a failure when querying the annex
	ErrAnnex = errors.New("failed to query annex")
)
