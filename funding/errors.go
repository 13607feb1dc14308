package funding

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrValidation marks malformed input, caught before any state read.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an absent campaign or milestone.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks a role mismatch between the caller and the
	// requested transition.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition marks a legal pair of states connected by an
	// illegal edge, or a transition lost to a concurrent writer.
	ErrInvalidTransition = errors.New("invalid transition")
)

// PayoutSumError rejects a campaign submission whose milestone payout
// percentages do not sum to 100. The actual total is carried so the
// message is deterministic.
type PayoutSumError struct {
	Total float64
}

func (e *PayoutSumError) Error() string {
	return fmt.Sprintf(
		"milestone payout percentages must sum to 100, got %.2f",
		e.Total,
	)
}

// GatewayError marks a failed remote escrow call. The cause keeps the
// full gateway payload for operator diagnosis; user facing messages stay
// generic.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("escrow gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsGatewayFailure reports whether err is a remote gateway failure.
func IsGatewayFailure(err error) bool {
	ge := &GatewayError{}
	return errors.As(err, &ge)
}
