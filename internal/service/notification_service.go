package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/campusvoice/feedback-service/internal/config"
	"github.com/campusvoice/feedback-service/internal/events"
)

// NotificationService handles emitting notifications for lifecycle events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIssueCreated, n.handleIssueEvent)
	n.dispatcher.Subscribe(events.EventIssueDuplicate, n.handleIssueEvent)
	n.dispatcher.Subscribe(events.EventIssueEscalated, n.handleIssueEvent)
	n.dispatcher.Subscribe(events.EventIssueStatusChanged, n.handleIssueEvent)
	n.dispatcher.Subscribe(events.EventIssueUpdateAdded, n.handleIssueEvent)
}

func (n *NotificationService) handleIssueEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("issue event",
		zap.String("type", string(event.Type)),
		zap.String("issue_id", event.IssueID),
		zap.String("actor_role", string(event.ActorRole)),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("webhook notification",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("issue_id", event.IssueID),
		zap.String("event_type", string(event.Type)))
}
