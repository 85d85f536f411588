package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/points-service/internal/config"
	"github.com/spec-kit/points-service/internal/events"
	"github.com/spec-kit/points-service/internal/observability"
	"github.com/spec-kit/points-service/internal/persistence"
	"github.com/spec-kit/points-service/internal/service"
)

// StartNotificationWorker subscribes the event log and, when a bus connection is open,
// the NATS forwarder to every domain event.
func StartNotificationWorker(dispatcher events.Dispatcher, bus *persistence.NATS, metrics *observability.Metrics, logger *zap.Logger, cfg config.NotificationConfig) *service.NotificationService {
	var publisher events.MessagePublisher
	if bus != nil && bus.Conn != nil {
		publisher = bus.Conn
	}
	notifications := service.NewNotificationService(dispatcher, publisher, metrics, logger, cfg)
	notifications.RegisterHandlers()
	logger.Info("notification worker started",
		zap.Int("event_types", len(events.AllEventTypes)),
		zap.Bool("forwarding", publisher != nil))
	return notifications
}
