package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ledger-gateway/internal/config"
	"github.com/spec-kit/ledger-gateway/internal/events"
)

// Mailer delivers a plain-text email.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// LogMailer records outgoing mail metadata instead of delivering it. Bodies are
// never logged.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) Send(_ context.Context, from, to, subject, body string) error {
	m.Logger.Info("email queued (stub)",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     Mailer
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer Mailer, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return fmt.Errorf("user_registered: unexpected payload %T", event.Payload)
	}
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || n.mailer == nil {
		n.logger.Warn("no mail sender configured; credentials not delivered", zap.String("user_id", event.SubjectID))
		return nil
	}
	return n.mailer.Send(ctx, n.cfg.EmailFrom, payload.Email, "Welcome to the ledger gateway", credentialsBody(payload))
}

func credentialsBody(p events.UserRegisteredPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", p.FirstName)
	b.WriteString("You have been registered. Your initial credentials are:\n\n")
	fmt.Fprintf(&b, "\tUsername: %s\n\tPassword: %s\n\n", p.Username, p.Password)
	b.WriteString("Change your password after the first login.\n")
	return b.String()
}
