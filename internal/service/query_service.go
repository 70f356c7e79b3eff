package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/spec-kit/ledger-gateway/internal/auth"
	"github.com/spec-kit/ledger-gateway/internal/events"
	"github.com/spec-kit/ledger-gateway/internal/ledger"
	apperrors "github.com/spec-kit/ledger-gateway/pkg/util/errorutil"
)

const (
	fnQuery       = "Query"
	fnReadQueries = "ReadQueries"

	submitterField = "submitter"
)

// LedgerContract is the part of ledger.Gateway used by the services.
type LedgerContract interface {
	Evaluate(ctx context.Context, function string, args ledger.Message) (ledger.Envelope, error)
	Submit(ctx context.Context, function string, args ledger.Message) (ledger.Envelope, error)
	ReadAllPaged(ctx context.Context, function string, pageSize int) ([][]byte, error)
}

// QueryService submits researcher queries to the device-data contract and
// reads back the recorded ones.
type QueryService struct {
	data       LedgerContract
	dispatcher events.Dispatcher
	pageSize   int
	logger     *zap.Logger
}

// NewQueryService constructs the service.
func NewQueryService(data LedgerContract, dispatcher events.Dispatcher, pageSize int, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{data: data, dispatcher: dispatcher, pageSize: pageSize, logger: logger}
}

// Submit sends a JSON query document to the ledger with the caller as submitter
// and returns the ledger's JSON result.
func (s *QueryService) Submit(ctx context.Context, caller *auth.Identity, body []byte) (json.RawMessage, error) {
	query, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	submitter := callerName(caller)
	query.Fields[submitterField] = structpb.NewStringValue(submitter)

	env, err := s.data.Submit(ctx, fnQuery, ledger.Proto{Message: query})
	if err != nil {
		return nil, ledgerError(err)
	}
	result := &structpb.Struct{}
	if err := ledger.Result(env, ledger.Proto{Message: result}); err != nil {
		return nil, ledgerError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventQuerySubmitted,
			SubjectID: submitter,
			Actor:     actorOf(caller),
			Timestamp: time.Now().UTC(),
			Payload:   events.QuerySubmittedPayload{Submitter: submitter, Function: fnQuery},
		})
	}
	return toJSON(result)
}

// ReadAll returns every recorded query, fetched page by page.
func (s *QueryService) ReadAll(ctx context.Context) ([]json.RawMessage, error) {
	assets, err := s.data.ReadAllPaged(ctx, fnReadQueries, s.pageSize)
	if err != nil {
		return nil, ledgerError(err)
	}

	out := make([]json.RawMessage, 0, len(assets))
	for i, asset := range assets {
		doc := &structpb.Struct{}
		if err := proto.Unmarshal(asset, doc); err != nil {
			return nil, ledgerError(fmt.Errorf("%w: query %d: %v", ledger.ErrProtocolViolation, i, err))
		}
		raw, err := toJSON(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	s.logger.Debug("read recorded queries", zap.Int("count", len(out)))
	return out, nil
}

// parseDocument decodes a JSON object into a protobuf Struct.
func parseDocument(body []byte) (*structpb.Struct, error) {
	doc := &structpb.Struct{}
	if len(body) == 0 {
		return nil, apperrors.NewMalformedRequest("request body must be a JSON object", nil)
	}
	if err := protojson.Unmarshal(body, doc); err != nil {
		return nil, apperrors.NewMalformedRequest("request body must be a JSON object", err)
	}
	if doc.Fields == nil {
		doc.Fields = map[string]*structpb.Value{}
	}
	return doc, nil
}

func toJSON(doc *structpb.Struct) (json.RawMessage, error) {
	raw, err := protojson.Marshal(doc)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return raw, nil
}

func callerName(caller *auth.Identity) string {
	if caller == nil {
		return ""
	}
	if caller.User != nil && caller.User.Username != "" {
		return caller.User.Username
	}
	return caller.Subject
}
