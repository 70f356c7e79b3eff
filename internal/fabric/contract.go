package fabric

import (
	"errors"

	"github.com/hyperledger/fabric-gateway/pkg/client"

	"github.com/spec-kit/ledger-gateway/internal/ledger"
)

type contractCaller interface {
	EvaluateTransaction(name string, args ...string) ([]byte, error)
	SubmitTransaction(name string, args ...string) ([]byte, error)
}

// Contract adapts a Fabric contract to ledger.Remote, tagging submit failures
// with the phase that produced them.
type Contract struct {
	caller contractCaller
}

func (c *Contract) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	return c.caller.EvaluateTransaction(name, args...)
}

func (c *Contract) SubmitTransaction(name string, args ...string) ([]byte, error) {
	result, err := c.caller.SubmitTransaction(name, args...)
	if err != nil {
		return nil, &ledger.PhaseError{Phase: PhaseOf(err), Err: err}
	}
	return result, nil
}

// PhaseOf reports the submit phase a Fabric client error belongs to.
func PhaseOf(err error) ledger.Phase {
	var (
		endorseErr      *client.EndorseError
		submitErr       *client.SubmitError
		commitStatusErr *client.CommitStatusError
		commitErr       *client.CommitError
	)
	switch {
	case errors.As(err, &endorseErr):
		return ledger.PhaseEndorse
	case errors.As(err, &submitErr):
		return ledger.PhaseSubmit
	case errors.As(err, &commitStatusErr):
		return ledger.PhaseCommitStatus
	case errors.As(err, &commitErr):
		return ledger.PhaseCommit
	default:
		return ledger.PhaseUnknown
	}
}
