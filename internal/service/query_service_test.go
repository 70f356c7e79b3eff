package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/spec-kit/ledger-gateway/internal/auth"
	"github.com/spec-kit/ledger-gateway/internal/domain"
	"github.com/spec-kit/ledger-gateway/internal/ledger"
)

func researcher() *auth.Identity {
	return &auth.Identity{
		Subject: "0b7d7b6e-5d0c-4a3e-8c1e-2b1f3c4d5e6f",
		Role:    domain.RoleResearcher,
		User:    &domain.User{Username: "jdoe", Role: domain.RoleResearcher},
	}
}

func TestSubmitQuerySetsSubmitter(t *testing.T) {
	result, _ := structpb.NewStruct(map[string]any{"result": 42.0})
	contract := &fakeContract{env: successOf(ledger.Proto{Message: result})}
	svc := NewQueryService(contract, nil, 100, nil)

	out, err := svc.Submit(context.Background(), researcher(), []byte(`{"query_type":"COUNT","submitter":"mallory"}`))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(contract.submitted) != 1 || contract.submitted[0] != "Query" {
		t.Fatalf("submitted = %v", contract.submitted)
	}

	sent := contract.lastArgs.(ledger.Proto).Message.(*structpb.Struct)
	if got := sent.Fields["submitter"].GetStringValue(); got != "jdoe" {
		t.Fatalf("submitter = %q, want jdoe", got)
	}
	if got := sent.Fields["query_type"].GetStringValue(); got != "COUNT" {
		t.Fatalf("query_type = %q", got)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if decoded["result"] != 42.0 {
		t.Fatalf("result = %v", decoded)
	}
}

func TestSubmitQueryErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		env    ledger.Envelope
		err    error
		status int
		code   string
	}{
		{name: "not an object", body: `[1,2]`, status: http.StatusBadRequest, code: "MALFORMED_REQUEST"},
		{name: "empty body", body: ``, status: http.StatusBadRequest, code: "MALFORMED_REQUEST"},
		{name: "ledger failure", body: `{}`, env: ledger.Failure{Code: 4, Description: "bad query"}, status: http.StatusBadGateway, code: "LEDGER_APPLICATION_ERROR"},
		{
			name:   "transport fault",
			body:   `{}`,
			err:    &ledger.CallError{Kind: ledger.ErrCommitStatusUnknown, Op: "submit", Function: "Query", Err: errors.New("eof")},
			status: http.StatusGatewayTimeout,
			code:   "COMMIT_STATUS_UNKNOWN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewQueryService(&fakeContract{env: tt.env, err: tt.err}, nil, 100, nil)
			_, err := svc.Submit(context.Background(), researcher(), []byte(tt.body))
			got := domainErr(err)
			if got == nil || got.HTTPStatus != tt.status || got.Code != tt.code {
				t.Fatalf("err = %+v, want %d %s", got, tt.status, tt.code)
			}
		})
	}
}

func TestReadAllQueries(t *testing.T) {
	var pages [][]byte
	for _, id := range []string{"q1", "q2"} {
		doc, _ := structpb.NewStruct(map[string]any{"id": id})
		raw, err := proto.Marshal(doc)
		if err != nil {
			t.Fatal(err)
		}
		pages = append(pages, raw)
	}
	contract := &fakeContract{pages: pages}
	svc := NewQueryService(contract, nil, 100, nil)

	out, err := svc.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(out) != 2 || contract.evaluated[0] != "ReadQueries" {
		t.Fatalf("out = %s calls = %v", out, contract.evaluated)
	}
	var first map[string]string
	if err := json.Unmarshal(out[0], &first); err != nil || first["id"] != "q1" {
		t.Fatalf("first = %s (%v)", out[0], err)
	}
}

func TestReadAllRejectsUndecodableAsset(t *testing.T) {
	svc := NewQueryService(&fakeContract{pages: [][]byte{{0x0a, 0x10}}}, nil, 100, nil)
	_, err := svc.ReadAll(context.Background())
	if got := domainErr(err); got == nil || got.Code != "PROTOCOL_VIOLATION" {
		t.Fatalf("err = %v", err)
	}
}

func TestConfigService(t *testing.T) {
	doc, _ := structpb.NewStruct(map[string]any{"query_limit": 10.0})
	contract := &fakeContract{env: successOf(ledger.Proto{Message: doc})}
	svc := NewConfigService(contract, nil, nil)
	ctx := context.Background()

	out, err := svc.Get(ctx, ConfigPlatform)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(out) == "" || contract.evaluated[0] != "GetPlatformConfig" {
		t.Fatalf("out = %s calls = %v", out, contract.evaluated)
	}
	if contract.lastArgs != nil {
		t.Fatalf("getter sent args %v", contract.lastArgs)
	}

	if _, err := svc.Update(ctx, researcher(), ConfigNetwork, []byte(`{"peers":3}`)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if contract.submitted[0] != "UpdateNetworkConfig" {
		t.Fatalf("submitted = %v", contract.submitted)
	}

	if _, err := svc.Get(ctx, ConfigKind("interface")); domainErr(err).HTTPStatus != http.StatusNotFound {
		t.Fatalf("unknown kind err = %v", err)
	}
}

func TestLedgerErrorMapping(t *testing.T) {
	wrap := func(kind error) error {
		return &ledger.CallError{Kind: kind, Op: "submit", Function: "Query", Err: errors.New("cause")}
	}
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{err: &ledger.ApplicationError{Code: 1, Description: "denied"}, status: http.StatusBadGateway, code: "LEDGER_APPLICATION_ERROR"},
		{err: wrap(ledger.ErrMalformedPayload), status: http.StatusBadRequest, code: "MALFORMED_REQUEST"},
		{err: wrap(ledger.ErrCommitStatusUnknown), status: http.StatusGatewayTimeout, code: "COMMIT_STATUS_UNKNOWN"},
		{err: wrap(ledger.ErrEndorsementFailed), status: http.StatusBadGateway, code: "ENDORSEMENT_FAILED"},
		{err: wrap(ledger.ErrSubmissionFailed), status: http.StatusBadGateway, code: "SUBMISSION_FAILED"},
		{err: wrap(ledger.ErrCommitRejected), status: http.StatusBadGateway, code: "COMMIT_REJECTED"},
		{err: wrap(ledger.ErrGatewayUnavailable), status: http.StatusServiceUnavailable, code: "GATEWAY_UNAVAILABLE"},
		{err: wrap(ledger.ErrPageLimitExceeded), status: http.StatusBadGateway, code: "PAGE_LIMIT_EXCEEDED"},
		{err: ledger.ErrProtocolViolation, status: http.StatusInternalServerError, code: "PROTOCOL_VIOLATION"},
		{err: errors.New("other"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		got := domainErr(ledgerError(tt.err))
		if got.HTTPStatus != tt.status || got.Code != tt.code {
			t.Errorf("ledgerError(%v) = %d %s, want %d %s", tt.err, got.HTTPStatus, got.Code, tt.status, tt.code)
		}
	}

	appErr := domainErr(ledgerError(&ledger.ApplicationError{Code: 9, Description: "no such device"}))
	if appErr.Message != "no such device" || appErr.Details["ledger_code"] != int32(9) {
		t.Fatalf("application error = %+v", appErr)
	}
}
