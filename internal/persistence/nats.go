package persistence

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/points-service/internal/config"
)

// NATS wraps the event bus connection. Conn is nil when NATS is not configured.
type NATS struct {
	Conn *nats.Conn
}

// NewNATS connects to the configured NATS server with reconnect handling.
func NewNATS(cfg config.NotificationConfig, appName string, logger *zap.Logger) (*NATS, error) {
	if cfg.NATSURL == "" {
		logger.Info("NATS_URL not provided; events stay in process")
		return &NATS{}, nil
	}

	opts := []nats.Option{
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			logger.Error("nats async error", fields...)
		}),
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats at %s: %w", cfg.NATSURL, err)
	}
	logger.Info("connected to nats", zap.String("url", conn.ConnectedUrl()))
	return &NATS{Conn: conn}, nil
}

// Close drains pending messages before closing.
func (n *NATS) Close() {
	if n == nil || n.Conn == nil {
		return
	}
	if err := n.Conn.Drain(); err != nil {
		n.Conn.Close()
	}
}
