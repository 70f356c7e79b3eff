package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload means a payload could not be encoded or decoded.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrProtocolViolation means the ledger answered outside the envelope contract.
	ErrProtocolViolation = errors.New("ledger protocol violation")
	// ErrGatewayUnavailable means the ledger could not be reached or failed in transport.
	ErrGatewayUnavailable = errors.New("ledger gateway unavailable")
	// ErrEndorsementFailed means endorsement was rejected. The transaction never
	// reached ordering and may be retried.
	ErrEndorsementFailed = errors.New("ledger endorsement failed")
	// ErrSubmissionFailed means the endorsed transaction was not accepted for
	// ordering and may be retried.
	ErrSubmissionFailed = errors.New("ledger submission failed")
	// ErrCommitRejected means the transaction committed with an invalid status.
	ErrCommitRejected = errors.New("ledger commit rejected")
	// ErrCommitStatusUnknown means the outcome of a submit could not be confirmed.
	// It must not be retried blindly.
	ErrCommitStatusUnknown = errors.New("ledger commit status unknown")
	// ErrPageLimitExceeded means a paged read hit the configured page cap.
	ErrPageLimitExceeded = errors.New("ledger page limit exceeded")
)

// ApplicationError is the ledger's own Failure variant surfaced to callers.
type ApplicationError struct {
	Code        int32
	Description string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("ledger error %d: %s", e.Code, e.Description)
}

// CallError carries the failure kind of a remote call together with its cause.
type CallError struct {
	Kind     error
	Op       string
	Function string
	Err      error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Function, e.Kind)
	}
	return fmt.Sprintf("ledger %s %s: %v: %v", e.Op, e.Function, e.Kind, e.Err)
}

func (e *CallError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Phase names the stage of a submit at which the remote client failed.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseEndorse
	PhaseSubmit
	PhaseCommitStatus
	PhaseCommit
)

func (p Phase) String() string {
	switch p {
	case PhaseEndorse:
		return "endorse"
	case PhaseSubmit:
		return "submit"
	case PhaseCommitStatus:
		return "commit_status"
	case PhaseCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// PhaseError is returned by Remote implementations that can tell which submit
// phase failed.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a failed call is known not to have changed ledger state.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrCommitStatusUnknown), errors.Is(err, ErrCommitRejected):
		return false
	case errors.Is(err, ErrEndorsementFailed),
		errors.Is(err, ErrSubmissionFailed),
		errors.Is(err, ErrGatewayUnavailable):
		return true
	default:
		return false
	}
}
