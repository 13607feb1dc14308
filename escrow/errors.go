package escrow

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrRemoteUnavailable indicates the escrow service could not be
	// reached at all.
	ErrRemoteUnavailable = errors.New("escrow service unavailable")
	// ErrTimeout indicates the escrow service did not answer within the
	// request deadline.
	ErrTimeout = errors.New("escrow service timeout")
)

// RejectedError is returned when the escrow service answered but refused
// the operation. AlreadyApplied is set when the remote reports the target
// state is already in effect, which callers treat as a no-op success.
type RejectedError struct {
	Reason         string
	AlreadyApplied bool
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("escrow service rejected request: %s", e.Reason)
}

// IsRejected unwraps a RejectedError from err if present.
func IsRejected(err error) (*RejectedError, bool) {
	re := &RejectedError{}
	if errors.As(err, &re) {
		return re, true
	}

	return nil, false
}

// IsRemoteFailure reports whether err belongs to the gateway failure
// taxonomy, i.e. the remote call itself failed rather than a local check.
func IsRemoteFailure(err error) bool {
	if errors.Is(err, ErrRemoteUnavailable) || errors.Is(err, ErrTimeout) {
		return true
	}

	_, ok := IsRejected(err)
	return ok
}
