package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/points-service/internal/config"
	"github.com/spec-kit/points-service/internal/events"
	"github.com/spec-kit/points-service/internal/observability"
)

// NotificationService logs domain events and forwards them to the message bus.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  events.MessagePublisher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. publisher may be nil.
func NewNotificationService(dispatcher events.Dispatcher, publisher events.MessagePublisher, metrics *observability.Metrics, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	var forward events.EventHandler
	if n.publisher != nil {
		forward = events.NATSForwarder(n.publisher, n.cfg.SubjectPrefix)
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handleEvent)
		if forward != nil {
			n.dispatcher.Subscribe(eventType, forward)
		}
	}
}

func (n *NotificationService) handleEvent(_ context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))
	n.logger.Info("domain event",
		zap.String("event_type", string(event.Type)),
		zap.String("subject_id", event.SubjectID),
		zap.String("department", string(event.Department)),
		zap.String("actor", event.Actor),
		zap.Any("payload", event.Payload))
	return nil
}
