package service

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/photon-storage/go-common/log"

	"github.com/fundlock/fundlock/funding"
)

var (
	errSystem           = errors.New("system error")
	errUnauthenticated  = errors.New("authentication required")
	errMissingCampaign  = errors.New("missing campaign id")
	errMissingMilestone = errors.New("missing milestone id")
	errUnknownStatus    = errors.New("unknown target status")
)

// ErrorCode maps service and funding errors to stable client codes.
// RemoteGatewayFailure deliberately gets a code distinct from
// InvalidTransition so clients can tell "retry later" from "illegal
// request".
var ErrorCode = map[error]int{
	errSystem:                    1000,
	funding.ErrValidation:        1001,
	funding.ErrNotFound:          1002,
	errUnauthenticated:           1003,
	funding.ErrForbidden:         1004,
	funding.ErrInvalidTransition: 1005,
	errMissingCampaign:           1007,
	errMissingMilestone:          1008,
	errUnknownStatus:             1009,
}

// remoteGatewayCode is the client code for failed escrow calls.
const remoteGatewayCode = 1006

// ErrorResponse resolves an error into an HTTP status, a client code and
// a user facing message. Remote gateway payloads are logged in full for
// operator diagnosis but never surfaced to the client.
func ErrorResponse(err error) (int, int, string) {
	if funding.IsGatewayFailure(err) {
		log.Error("escrow gateway failure", "error", err)
		return http.StatusBadGateway, remoteGatewayCode, "escrow service unavailable"
	}

	pse := &funding.PayoutSumError{}
	if errors.As(err, &pse) {
		return http.StatusBadRequest, ErrorCode[funding.ErrValidation], pse.Error()
	}

	switch {
	case errors.Is(err, funding.ErrValidation):
		return http.StatusBadRequest, ErrorCode[funding.ErrValidation], err.Error()

	case errors.Is(err, funding.ErrNotFound):
		return http.StatusNotFound, ErrorCode[funding.ErrNotFound], err.Error()

	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, ErrorCode[errUnauthenticated], err.Error()

	case errors.Is(err, funding.ErrForbidden):
		return http.StatusForbidden, ErrorCode[funding.ErrForbidden], err.Error()

	case errors.Is(err, funding.ErrInvalidTransition):
		return http.StatusConflict, ErrorCode[funding.ErrInvalidTransition], err.Error()

	case errors.Is(err, errMissingCampaign):
		return http.StatusBadRequest, ErrorCode[errMissingCampaign], err.Error()

	case errors.Is(err, errMissingMilestone):
		return http.StatusBadRequest, ErrorCode[errMissingMilestone], err.Error()

	case errors.Is(err, errUnknownStatus):
		return http.StatusBadRequest, ErrorCode[errUnknownStatus], err.Error()
	}

	log.Error("unexpected service error", "error", err)
	return http.StatusInternalServerError, ErrorCode[errSystem], errSystem.Error()
}
