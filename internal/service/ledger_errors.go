package service

import (
	"errors"
	"net/http"

	"github.com/spec-kit/ledger-gateway/internal/ledger"
	apperrors "github.com/spec-kit/ledger-gateway/pkg/util/errorutil"
)

// ledgerError maps a ledger failure onto the HTTP error it surfaces as.
func ledgerError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *ledger.ApplicationError
	switch {
	case errors.As(err, &appErr):
		return withCause(apperrors.NewDomainError("LEDGER_APPLICATION_ERROR", appErr.Description, http.StatusBadGateway,
			map[string]any{"ledger_code": appErr.Code}), err)
	case errors.Is(err, ledger.ErrMalformedPayload):
		return apperrors.NewMalformedRequest("payload could not be encoded for the ledger", err)
	case errors.Is(err, ledger.ErrCommitStatusUnknown):
		return withCause(apperrors.NewDomainError("COMMIT_STATUS_UNKNOWN",
			"the transaction was sent but its commit status could not be confirmed", http.StatusGatewayTimeout,
			map[string]any{"retryable": false}), err)
	case errors.Is(err, ledger.ErrEndorsementFailed):
		return withCause(apperrors.NewDomainError("ENDORSEMENT_FAILED", err.Error(), http.StatusBadGateway,
			map[string]any{"retryable": true}), err)
	case errors.Is(err, ledger.ErrSubmissionFailed):
		return withCause(apperrors.NewDomainError("SUBMISSION_FAILED", err.Error(), http.StatusBadGateway,
			map[string]any{"retryable": true}), err)
	case errors.Is(err, ledger.ErrCommitRejected):
		return withCause(apperrors.NewDomainError("COMMIT_REJECTED", err.Error(), http.StatusBadGateway,
			map[string]any{"retryable": false}), err)
	case errors.Is(err, ledger.ErrGatewayUnavailable):
		return withCause(apperrors.NewDomainError("GATEWAY_UNAVAILABLE", err.Error(), http.StatusServiceUnavailable,
			map[string]any{"retryable": true}), err)
	case errors.Is(err, ledger.ErrPageLimitExceeded):
		return withCause(apperrors.NewDomainError("PAGE_LIMIT_EXCEEDED", err.Error(), http.StatusBadGateway, nil), err)
	case errors.Is(err, ledger.ErrProtocolViolation):
		return withCause(apperrors.NewDomainError("PROTOCOL_VIOLATION", "ledger returned an invalid response",
			http.StatusInternalServerError, nil), err)
	default:
		return apperrors.NewInternalError(err)
	}
}

func withCause(de *apperrors.DomainError, err error) error {
	de.Err = err
	return de
}
