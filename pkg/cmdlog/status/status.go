// Package status declares error constants returned by
// the command log.
package status

import (
	"github.com/oneconcern/datalink/pkg/errors"
)

var (
	// ErrUnfinished indicates that an earlier command on the same working copy did not complete
	ErrUnfinished = errors.NewKind(errors.KindInvalidRepository, "an earlier command did not complete, run recover first")

	ErrKSUID      = errors.New("failed to generate command token")
	ErrAddEntry   = errors.New("failed to write command log entry")
	ErrReadEntry  = errors.New("failed to read command log entry")
	ErrCloseEntry = errors.New("failed to remove command log entry")
)
