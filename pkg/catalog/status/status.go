// Package status declares error constants returned by
// catalog clients.
package status

import (
	"github.com/oneconcern/datalink/pkg/errors"
)

var (
	// ErrDataSetNotFound indicates that the catalog has no such data set
	ErrDataSetNotFound = errors.NewKind(errors.KindDataSetNotFound, "data set not found")

	// ErrContentCopyExists indicates that the location is already registered for the data set
	ErrContentCopyExists = errors.NewKind(errors.KindContentCopyExists, "content copy already exists")

	// ErrContentCopyNotFound indicates that no content copy of the data set matches the location
	ErrContentCopyNotFound = errors.NewKind(errors.KindContentCopyNotFound, "content copy not found")

	// ErrExternalDMSNotFound indicates a content copy referring to an unknown location
	ErrExternalDMSNotFound = errors.NewKind(errors.KindInvalidValue, "external data management system not found")

	// ErrFileNotFound indicates a file which is not part of the data set
	ErrFileNotFound = errors.NewKind(errors.KindInvalidValue, "file not found in data set")

	// ErrTransport indicates a failure talking to the catalog
	ErrTransport = errors.NewKind(errors.KindTransport, "catalog request failed")

	// ErrUnsupportedURL indicates a catalog URL that no client can handle
	ErrUnsupportedURL = errors.NewKind(errors.KindInvalidValue, "unsupported catalog URL")
)
