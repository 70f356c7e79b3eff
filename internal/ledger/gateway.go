package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPageSize is used by ReadAllPaged when no size is given.
	DefaultPageSize = 100

	opEvaluate = "evaluate"
	opSubmit   = "submit"
)

// Remote is the two-call surface of a smart contract. *client.Contract from the
// Fabric gateway SDK satisfies it and is safe for concurrent use.
type Remote interface {
	EvaluateTransaction(name string, args ...string) ([]byte, error)
	SubmitTransaction(name string, args ...string) ([]byte, error)
}

// CallRecorder receives one observation per remote call.
type CallRecorder interface {
	RecordLedgerCall(contract, function, outcome string, duration time.Duration)
}

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
	// Name labels the contract in logs and metrics.
	Name     string
	PageSize int
	// MaxPages caps ReadAllPaged; 0 leaves it bounded only by the short-page signal.
	MaxPages int
	Recorder CallRecorder
}

// Gateway executes evaluate and submit calls against one named contract.
// It never retries.
type Gateway struct {
	remote   Remote
	name     string
	pageSize int
	maxPages int
	recorder CallRecorder
	logger   *zap.Logger
}

// NewGateway wraps remote. A nil remote yields a gateway whose calls fail with
// ErrGatewayUnavailable.
func NewGateway(remote Remote, opts GatewayOptions, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages < 0 {
		opts.MaxPages = 0
	}
	return &Gateway{
		remote:   remote,
		name:     opts.Name,
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		recorder: opts.Recorder,
		logger:   logger.With(zap.String("contract", opts.Name)),
	}
}

// Available reports whether a remote is attached.
func (g *Gateway) Available() bool {
	return g != nil && g.remote != nil
}

// Evaluate runs a read-only transaction. Any remote failure is ErrGatewayUnavailable.
func (g *Gateway) Evaluate(ctx context.Context, function string, args Message) (Envelope, error) {
	argv, err := g.prepare(ctx, opEvaluate, function, args)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := g.remote.EvaluateTransaction(function, argv...)
	if err != nil {
		g.observe(function, "unavailable", start)
		g.logger.Warn("ledger evaluate failed", zap.String("function", function), zap.Error(err))
		return nil, &CallError{Kind: ErrGatewayUnavailable, Op: opEvaluate, Function: function, Err: err}
	}
	return g.unwrap(opEvaluate, function, raw, start)
}

// Submit runs a state-changing transaction through endorsement and commit.
// Failures keep their phase: endorsement and submission failures are safe to
// retry, a commit-status failure is not.
func (g *Gateway) Submit(ctx context.Context, function string, args Message) (Envelope, error) {
	argv, err := g.prepare(ctx, opSubmit, function, args)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := g.remote.SubmitTransaction(function, argv...)
	if err != nil {
		kind := classifySubmit(err)
		g.observe(function, outcomeFor(kind), start)
		g.logger.Warn("ledger submit failed",
			zap.String("function", function),
			zap.String("kind", kind.Error()),
			zap.Bool("retryable", Retryable(kind)),
			zap.Error(err))
		return nil, &CallError{Kind: kind, Op: opSubmit, Function: function, Err: err}
	}
	return g.unwrap(opSubmit, function, raw, start)
}

// ReadAllPaged evaluates function with page numbers 1, 2, 3… and concatenates the
// returned assets, stopping at the first page shorter than pageSize.
func (g *Gateway) ReadAllPaged(ctx context.Context, function string, pageSize int) ([][]byte, error) {
	if pageSize <= 0 {
		pageSize = g.pageSize
	}

	items := make([][]byte, 0, pageSize)
	for page := 1; ; page++ {
		if g.maxPages > 0 && page > g.maxPages {
			g.logger.Error("paged read hit page cap",
				zap.String("function", function),
				zap.Int("max_pages", g.maxPages),
				zap.Int("items", len(items)))
			return nil, &CallError{Kind: ErrPageLimitExceeded, Op: opEvaluate, Function: function,
				Err: fmt.Errorf("stopped after %d full pages", g.maxPages)}
		}

		env, err := g.Evaluate(ctx, function, &PageRequest{PageNumber: int32(page), PageSize: int32(pageSize)})
		if err != nil {
			return nil, err
		}
		var result AssetPage
		if err := Result(env, &result); err != nil {
			return nil, err
		}

		items = append(items, result.Assets...)
		if len(result.Assets) < pageSize {
			return items, nil
		}
	}
}

// Result decodes a Success into into, or returns the Failure as *ApplicationError.
func Result(env Envelope, into Message) error {
	_, err := Match(env,
		func(s Success) (struct{}, error) {
			if err := DecodeString(s.Message, into); err != nil {
				return struct{}{}, fmt.Errorf("%w: success payload: %v", ErrProtocolViolation, err)
			}
			return struct{}{}, nil
		},
		func(f Failure) (struct{}, error) {
			return struct{}{}, f.Err()
		},
	)
	return err
}

func (g *Gateway) prepare(ctx context.Context, op, function string, args Message) ([]string, error) {
	if g.remote == nil {
		return nil, &CallError{Kind: ErrGatewayUnavailable, Op: op, Function: function, Err: errors.New("ledger not configured")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &CallError{Kind: ErrGatewayUnavailable, Op: op, Function: function, Err: err}
	}
	if args == nil {
		return nil, nil
	}
	encoded, err := Encode(args)
	if err != nil {
		return nil, &CallError{Kind: ErrMalformedPayload, Op: op, Function: function, Err: err}
	}
	return []string{encoded}, nil
}

func (g *Gateway) unwrap(op, function string, raw []byte, start time.Time) (Envelope, error) {
	env, err := UnwrapEnvelope(raw)
	if err != nil {
		g.observe(function, "protocol_violation", start)
		g.logger.Error("ledger returned an invalid envelope", zap.String("op", op), zap.String("function", function), zap.Error(err))
		return nil, err
	}
	outcome, _ := Match(env,
		func(Success) (string, error) { return "success", nil },
		func(Failure) (string, error) { return "application_error", nil },
	)
	g.observe(function, outcome, start)
	g.logger.Debug("ledger call completed", zap.String("op", op), zap.String("function", function), zap.String("outcome", outcome))
	return env, nil
}

func (g *Gateway) observe(function, outcome string, start time.Time) {
	if g.recorder == nil {
		return
	}
	g.recorder.RecordLedgerCall(g.name, function, outcome, time.Since(start))
}

// classifySubmit maps a submit failure onto its kind. Failures that do not name
// a phase may have happened after the transaction was sent, so their outcome is
// unknown.
func classifySubmit(err error) error {
	var phaseErr *PhaseError
	if !errors.As(err, &phaseErr) {
		return ErrCommitStatusUnknown
	}
	switch phaseErr.Phase {
	case PhaseEndorse:
		return ErrEndorsementFailed
	case PhaseSubmit:
		return ErrSubmissionFailed
	case PhaseCommit:
		return ErrCommitRejected
	default:
		return ErrCommitStatusUnknown
	}
}

func outcomeFor(kind error) string {
	switch {
	case errors.Is(kind, ErrEndorsementFailed):
		return "endorse_failed"
	case errors.Is(kind, ErrSubmissionFailed):
		return "submit_failed"
	case errors.Is(kind, ErrCommitRejected):
		return "commit_rejected"
	default:
		return "commit_status_unknown"
	}
}
