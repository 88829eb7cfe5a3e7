// Package status declares error constants returned by
// content transfers.
package status

import (
	"github.com/oneconcern/datalink/pkg/errors"
)

var (
	// ErrCopy indicates that copying a content copy with rsync failed
	ErrCopy = errors.NewKind(errors.KindSubprocess, "rsync failed")

	// ErrDestinationExists indicates a clone into a non-empty folder
	ErrDestinationExists = errors.NewKind(errors.KindInvalidValue, "destination already exists")

	// ErrDownload indicates that a file could not be fetched
	ErrDownload = errors.NewKind(errors.KindTransport, "download failed")

	// ErrLengthMismatch indicates a transferred file with an unexpected size
	ErrLengthMismatch = errors.NewKind(errors.KindTransport, "file length does not match the catalog")

	// ErrChecksumMismatch indicates a transferred file with unexpected content
	ErrChecksumMismatch = errors.NewKind(errors.KindTransport, "checksum does not match the catalog")
)
