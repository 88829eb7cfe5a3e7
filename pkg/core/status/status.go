// Package status exports errors produced by the core package.
package status

import (
	"github.com/oneconcern/datalink/pkg/errors"
)

var (
	// ErrNotWorkingCopy indicates a path outside of any working copy
	ErrNotWorkingCopy = errors.NewKind(errors.KindInvalidRepository, "not a datalink working copy")

	// ErrAlreadyInitialized indicates an init on an existing working copy
	ErrAlreadyInitialized = errors.NewKind(errors.KindInvalidRepository, "folder is already a datalink working copy")

	// ErrNotSynchronized indicates a working copy without any data set yet
	ErrNotSynchronized = errors.NewKind(errors.KindInvalidRepository, "working copy has no data set, commit first")

	// ErrNotLinked indicates a data set whose content is not held in content copies
	ErrNotLinked = errors.NewKind(errors.KindKindMismatch, "data set is not a linked data set")

	// ErrMissingParent indicates a parent data set unknown to the catalog
	ErrMissingParent = errors.NewKind(errors.KindDataSetNotFound, "parent data set not found")

	// ErrNotInParent indicates an analysis folder outside of its parent working copy
	ErrNotInParent = errors.NewKind(errors.KindInvalidValue, "analysis folder must be inside the parent working copy")

	// ErrFileNotInDataSet indicates a download of a file the data set does not hold
	ErrFileNotInDataSet = errors.NewKind(errors.KindInvalidValue, "file not found in data set")

	// ErrInit indicates a failure writing the files of a new working copy
	ErrInit = errors.New("failed to initialize working copy")

	// ErrManifest indicates a failure listing the content of a working copy
	ErrManifest = errors.New("failed to build the file manifest")
)
