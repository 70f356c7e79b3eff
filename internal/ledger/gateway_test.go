package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type call struct {
	function string
	args     []string
}

// fakeRemote answers evaluate calls from evaluateFn and submit calls from submitFn.
type fakeRemote struct {
	mu         sync.Mutex
	evaluates  []call
	submits    []call
	evaluateFn func(function string, args []string) ([]byte, error)
	submitFn   func(function string, args []string) ([]byte, error)
}

func (f *fakeRemote) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.evaluates = append(f.evaluates, call{function: name, args: args})
	f.mu.Unlock()
	return f.evaluateFn(name, args)
}

func (f *fakeRemote) SubmitTransaction(name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.submits = append(f.submits, call{function: name, args: args})
	f.mu.Unlock()
	return f.submitFn(name, args)
}

type recordedCall struct {
	contract, function, outcome string
}

type fakeRecorder struct {
	calls []recordedCall
}

func (r *fakeRecorder) RecordLedgerCall(contract, function, outcome string, _ time.Duration) {
	r.calls = append(r.calls, recordedCall{contract, function, outcome})
}

// pagedRemote serves pages whose lengths are given by sizes, then empty pages.
func pagedRemote(t *testing.T, sizes ...int) *fakeRemote {
	t.Helper()
	return &fakeRemote{
		evaluateFn: func(_ string, args []string) ([]byte, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("want one argument, got %d", len(args))
			}
			var req PageRequest
			if err := DecodeString(args[0], &req); err != nil {
				return nil, err
			}

			n := 0
			if idx := int(req.PageNumber) - 1; idx >= 0 && idx < len(sizes) {
				n = sizes[idx]
			}
			page := &AssetPage{}
			for i := 0; i < n; i++ {
				page.Assets = append(page.Assets, []byte(fmt.Sprintf("p%d-%d", req.PageNumber, i)))
			}
			return successEnvelope(t, page), nil
		},
	}
}

func successEnvelope(t *testing.T, msg Message) []byte {
	t.Helper()
	encoded, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	raw, err := WrapEnvelope(Success{Message: encoded})
	if err != nil {
		t.Fatalf("WrapEnvelope: %v", err)
	}
	return raw
}

func pageNumbers(t *testing.T, calls []call) []int32 {
	t.Helper()
	out := make([]int32, 0, len(calls))
	for _, c := range calls {
		var req PageRequest
		if err := DecodeString(c.args[0], &req); err != nil {
			t.Fatalf("decode page request: %v", err)
		}
		out = append(out, req.PageNumber)
	}
	return out
}

func TestReadAllPagedStopsOnShortPage(t *testing.T) {
	remote := pagedRemote(t, 100, 100, 37)
	gw := NewGateway(remote, GatewayOptions{Name: "devicedata"}, zap.NewNop())

	items, err := gw.ReadAllPaged(context.Background(), "ReadQueries", 100)
	if err != nil {
		t.Fatalf("ReadAllPaged: %v", err)
	}
	if len(items) != 237 {
		t.Fatalf("items = %d, want 237", len(items))
	}
	if string(items[0]) != "p1-0" || string(items[236]) != "p3-36" {
		t.Fatalf("items out of order: first %q last %q", items[0], items[236])
	}

	got := pageNumbers(t, remote.evaluates)
	want := []int32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
	for _, c := range remote.evaluates {
		if c.function != "ReadQueries" {
			t.Fatalf("function = %q", c.function)
		}
	}
}

func TestReadAllPagedEmptyFirstPage(t *testing.T) {
	remote := pagedRemote(t, 0)
	gw := NewGateway(remote, GatewayOptions{}, zap.NewNop())

	items, err := gw.ReadAllPaged(context.Background(), "ReadQueries", 100)
	if err != nil {
		t.Fatalf("ReadAllPaged: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("items = %#v, want empty non-nil slice", items)
	}
	if len(remote.evaluates) != 1 {
		t.Fatalf("calls = %d, want 1", len(remote.evaluates))
	}
}

func TestReadAllPagedUsesDefaultPageSize(t *testing.T) {
	remote := pagedRemote(t, 2)
	gw := NewGateway(remote, GatewayOptions{PageSize: 2}, zap.NewNop())

	items, err := gw.ReadAllPaged(context.Background(), "ReadQueries", 0)
	if err != nil {
		t.Fatalf("ReadAllPaged: %v", err)
	}
	if len(items) != 2 || len(remote.evaluates) != 2 {
		t.Fatalf("items = %d calls = %d, want 2 and 2", len(items), len(remote.evaluates))
	}
}

func TestReadAllPagedHonoursPageCap(t *testing.T) {
	remote := pagedRemote(t, 10, 10, 10, 10, 10)
	gw := NewGateway(remote, GatewayOptions{MaxPages: 3}, zap.NewNop())

	_, err := gw.ReadAllPaged(context.Background(), "ReadQueries", 10)
	if !errors.Is(err, ErrPageLimitExceeded) {
		t.Fatalf("err = %v, want ErrPageLimitExceeded", err)
	}
	if len(remote.evaluates) != 3 {
		t.Fatalf("calls = %d, want 3", len(remote.evaluates))
	}
}

func TestReadAllPagedPropagatesApplicationError(t *testing.T) {
	remote := &fakeRemote{
		evaluateFn: func(string, []string) ([]byte, error) {
			return WrapEnvelope(Failure{Code: 7, Description: "no access"})
		},
	}
	gw := NewGateway(remote, GatewayOptions{}, zap.NewNop())

	_, err := gw.ReadAllPaged(context.Background(), "ReadQueries", 100)
	var appErr *ApplicationError
	if !errors.As(err, &appErr) || appErr.Code != 7 {
		t.Fatalf("err = %v, want application error 7", err)
	}
}

func TestEvaluateTransportFault(t *testing.T) {
	remote := &fakeRemote{
		evaluateFn: func(string, []string) ([]byte, error) {
			return nil, errors.New("connection refused")
		},
	}
	rec := &fakeRecorder{}
	gw := NewGateway(remote, GatewayOptions{Name: "config", Recorder: rec}, zap.NewNop())

	_, err := gw.Evaluate(context.Background(), "GetPlatformConfig", nil)
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
	if len(remote.evaluates[0].args) != 0 {
		t.Fatalf("args = %v, want none", remote.evaluates[0].args)
	}
	if len(rec.calls) != 1 || rec.calls[0] != (recordedCall{"config", "GetPlatformConfig", "unavailable"}) {
		t.Fatalf("recorded = %+v", rec.calls)
	}
}

func TestEvaluatePassesEncodedArgs(t *testing.T) {
	remote := &fakeRemote{
		evaluateFn: func(_ string, args []string) ([]byte, error) {
			var in Raw
			if err := DecodeString(args[0], &in); err != nil {
				return nil, err
			}
			return WrapEnvelope(Success{Message: args[0]})
		},
	}
	gw := NewGateway(remote, GatewayOptions{}, zap.NewNop())

	env, err := gw.Evaluate(context.Background(), "Echo", &Raw{1, 2, 3})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	var out Raw
	if err := Result(env, &out); err != nil {
		t.Fatalf("Result: %v", err)
	}
	if string(out) != "\x01\x02\x03" {
		t.Fatalf("out = %x", []byte(out))
	}
}

func TestSubmitTransportFaultIsCommitStatusUnknown(t *testing.T) {
	remote := &fakeRemote{
		submitFn: func(string, []string) ([]byte, error) {
			return nil, errors.New("stream reset mid-call")
		},
	}
	gw := NewGateway(remote, GatewayOptions{}, zap.NewNop())

	env, err := gw.Submit(context.Background(), "Query", &Raw{1})
	if env != nil {
		t.Fatalf("env = %#v, want nil", env)
	}
	if !errors.Is(err, ErrCommitStatusUnknown) {
		t.Fatalf("err = %v, want ErrCommitStatusUnknown", err)
	}
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		t.Fatalf("err = %v, must not be an application error", err)
	}
	if Retryable(err) {
		t.Fatal("commit status unknown must not be retryable")
	}
}

func TestSubmitClassifiesPhases(t *testing.T) {
	tests := []struct {
		phase     Phase
		want      error
		retryable bool
	}{
		{phase: PhaseEndorse, want: ErrEndorsementFailed, retryable: true},
		{phase: PhaseSubmit, want: ErrSubmissionFailed, retryable: true},
		{phase: PhaseCommitStatus, want: ErrCommitStatusUnknown, retryable: false},
		{phase: PhaseCommit, want: ErrCommitRejected, retryable: false},
		{phase: PhaseUnknown, want: ErrCommitStatusUnknown, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			cause := errors.New("remote said no")
			remote := &fakeRemote{
				submitFn: func(string, []string) ([]byte, error) {
					return nil, fmt.Errorf("submit: %w", &PhaseError{Phase: tt.phase, Err: cause})
				},
			}
			gw := NewGateway(remote, GatewayOptions{}, zap.NewNop())

			_, err := gw.Submit(context.Background(), "UpdatePlatformConfig", nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, cause) {
				t.Fatalf("err = %v, lost its cause", err)
			}
			if got := Retryable(err); got != tt.retryable {
				t.Fatalf("Retryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestSubmitReturnsFailureEnvelope(t *testing.T) {
	remote := &fakeRemote{
		submitFn: func(string, []string) ([]byte, error) {
			return WrapEnvelope(Failure{Code: 2, Description: "invalid query"})
		},
	}
	gw := NewGateway(remote, GatewayOptions{}, zap.NewNop())

	env, err := gw.Submit(context.Background(), "Query", &Raw{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if f, ok := env.(Failure); !ok || f.Description != "invalid query" {
		t.Fatalf("env = %#v", env)
	}
}

func TestGatewayWithoutRemote(t *testing.T) {
	gw := NewGateway(nil, GatewayOptions{}, nil)
	if gw.Available() {
		t.Fatal("Available() = true without a remote")
	}

	if _, err := gw.Evaluate(context.Background(), "GetPlatformConfig", nil); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("Evaluate err = %v", err)
	}
	if _, err := gw.Submit(context.Background(), "Query", nil); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("Submit err = %v", err)
	}
}

func TestGatewaySkipsCallOnCancelledContext(t *testing.T) {
	remote := pagedRemote(t, 1)
	gw := NewGateway(remote, GatewayOptions{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := gw.Evaluate(ctx, "ReadQueries", nil); !errors.Is(err, ErrGatewayUnavailable) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(remote.evaluates) != 0 {
		t.Fatalf("calls = %d, want 0", len(remote.evaluates))
	}
}

func TestEvaluateProtocolViolation(t *testing.T) {
	remote := &fakeRemote{
		evaluateFn: func(string, []string) ([]byte, error) {
			return []byte("AAAA"), nil
		},
	}
	gw := NewGateway(remote, GatewayOptions{}, zap.NewNop())

	_, err := gw.Evaluate(context.Background(), "GetNetworkConfig", nil)
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("err = %v, want ErrProtocolViolation", err)
	}
}
