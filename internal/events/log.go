package events

import (
	"context"

	"github.com/abduss/cloudbin/internal/config"
	"go.uber.org/zap"
)

// LogPublisher writes events to the logger. Used when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.log.Info("storage event",
		zap.String("type", event.Type),
		zap.String("storage_id", event.StorageID),
		zap.String("item_id", event.ItemID),
		zap.String("item_type", event.ItemType),
		zap.Time("at", event.At))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// New picks Kafka when brokers are configured and the logger otherwise.
func New(cfg config.KafkaConfig, log *zap.Logger) Publisher {
	if len(cfg.Brokers) == 0 {
		return NewLogPublisher(log)
	}
	return NewKafkaPublisher(cfg, log)
}
