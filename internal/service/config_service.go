package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/spec-kit/ledger-gateway/internal/auth"
	"github.com/spec-kit/ledger-gateway/internal/events"
	"github.com/spec-kit/ledger-gateway/internal/ledger"
	apperrors "github.com/spec-kit/ledger-gateway/pkg/util/errorutil"
)

// ConfigKind names a configuration document held by the config contract.
type ConfigKind string

const (
	ConfigPlatform ConfigKind = "platform"
	ConfigNetwork  ConfigKind = "network"
)

type configFunctions struct {
	get    string
	update string
}

var configContract = map[ConfigKind]configFunctions{
	ConfigPlatform: {get: "GetPlatformConfig", update: "UpdatePlatformConfig"},
	ConfigNetwork:  {get: "GetNetworkConfig", update: "UpdateNetworkConfig"},
}

// ConfigService reads and updates ledger-held configuration.
type ConfigService struct {
	contract   LedgerContract
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewConfigService constructs the service.
func NewConfigService(contract LedgerContract, dispatcher events.Dispatcher, logger *zap.Logger) *ConfigService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigService{contract: contract, dispatcher: dispatcher, logger: logger}
}

// Get evaluates the getter of kind and returns the document as JSON.
func (s *ConfigService) Get(ctx context.Context, kind ConfigKind) (json.RawMessage, error) {
	fns, ok := configContract[kind]
	if !ok {
		return nil, apperrors.NewNotFound("config", map[string]any{"kind": string(kind)})
	}

	env, err := s.contract.Evaluate(ctx, fns.get, nil)
	if err != nil {
		return nil, ledgerError(err)
	}
	doc := &structpb.Struct{}
	if err := ledger.Result(env, ledger.Proto{Message: doc}); err != nil {
		return nil, ledgerError(err)
	}
	return toJSON(doc)
}

// Update submits a JSON document as the new configuration of kind.
func (s *ConfigService) Update(ctx context.Context, caller *auth.Identity, kind ConfigKind, body []byte) (json.RawMessage, error) {
	fns, ok := configContract[kind]
	if !ok {
		return nil, apperrors.NewNotFound("config", map[string]any{"kind": string(kind)})
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	env, err := s.contract.Submit(ctx, fns.update, ledger.Proto{Message: doc})
	if err != nil {
		return nil, ledgerError(err)
	}
	result := &structpb.Struct{}
	if err := ledger.Result(env, ledger.Proto{Message: result}); err != nil {
		return nil, ledgerError(err)
	}

	s.logger.Info("ledger config updated", zap.String("kind", string(kind)), zap.String("by", callerName(caller)))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventLedgerConfigUpdate,
			SubjectID: string(kind),
			Actor:     actorOf(caller),
			Timestamp: time.Now().UTC(),
			Payload:   events.ConfigUpdatedPayload{Kind: string(kind)},
		})
	}
	return toJSON(result)
}
