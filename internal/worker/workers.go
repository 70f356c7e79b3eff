package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ledger-gateway/internal/events"
	"github.com/spec-kit/ledger-gateway/internal/service"
)

var auditedEvents = []events.EventType{
	events.EventUserRegistered,
	events.EventUserUpdated,
	events.EventUserDeleted,
	events.EventPasswordChanged,
	events.EventQuerySubmitted,
	events.EventLedgerConfigUpdate,
}

// Start registers the notification handlers and the audit log subscriber.
func Start(dispatcher events.Dispatcher, notifications *service.NotificationService, logger *zap.Logger) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if dispatcher == nil {
		return
	}
	audit := auditHandler(logger.Named("audit"))
	for _, eventType := range auditedEvents {
		dispatcher.Subscribe(eventType, audit)
	}
}

// auditHandler logs event metadata only; payloads may hold credentials.
func auditHandler(logger *zap.Logger) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		logger.Info("event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.String("actor", event.Actor.Username),
			zap.String("actor_role", string(event.Actor.Role)),
			zap.Time("at", event.Timestamp))
		return nil
	}
}
