package errors

// Kind classifies the expected failure conditions that commands recover into
// structured results. The set is closed: callers switch on it instead of
// matching substrings.
type Kind string

const (
	// KindUnknown is the zero value: an unclassified (programming or I/O) error
	KindUnknown Kind = ""

	// Configuration errors.

	// KindMissingParameters indicates that required parameters are not set
	KindMissingParameters Kind = "MISSING_PARAMETERS"

	// KindDuplicateKey indicates that two JSON keys collide after case folding
	KindDuplicateKey Kind = "DUPLICATE_KEY"

	// KindInvalidValue indicates a value that cannot be parsed for its parameter
	KindInvalidValue Kind = "INVALID_VALUE"

	// Protocol-consistency errors.

	// KindContentCopyExists indicates that the (external dms, path) pair is already registered
	KindContentCopyExists Kind = "CONTENT_COPY_EXISTS"

	// KindContentCopyNotFound indicates that no content copy matches the location
	KindContentCopyNotFound Kind = "CONTENT_COPY_NOT_FOUND"

	// KindAmbiguousContentCopy indicates that a content copy index is required
	KindAmbiguousContentCopy Kind = "AMBIGUOUS_CONTENT_COPY"

	// KindKindMismatch indicates that a data set is not a linked data set
	KindKindMismatch Kind = "KIND_MISMATCH"

	// KindDataSetNotFound indicates that the catalog has no such data set
	KindDataSetNotFound Kind = "DATA_SET_NOT_FOUND"

	// KindInvalidRepository indicates a path that is not a valid working copy
	KindInvalidRepository Kind = "INVALID_REPOSITORY"

	// Checksum errors.

	// KindUnsupportedBackend indicates a checksum backend we do not know how to handle
	KindUnsupportedBackend Kind = "UNSUPPORTED_BACKEND"

	// KindEmptyFile indicates a zero-length file presented for checksumming
	KindEmptyFile Kind = "EMPTY_FILE"

	// Transport and subprocess errors.

	// KindSubprocess indicates a non-zero exit of an external tool
	KindSubprocess Kind = "SUBPROCESS"

	// KindTransport indicates a failure talking to the catalog
	KindTransport Kind = "TRANSPORT"
)

// KindOf returns the kind of the first classified error in the chain
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok && e != nil && e.kind != KindUnknown {
			return e.kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return KindUnknown
		}
		err = u.Unwrap()
	}
	return KindUnknown
}

// IsRecoverable tells if an error of this kind is an expected outcome,
// to be reported as a failed result rather than surfaced as a fault.
func (k Kind) IsRecoverable() bool {
	switch k {
	case KindUnknown, KindSubprocess, KindTransport:
		return false
	default:
		return true
	}
}
