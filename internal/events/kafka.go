package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abduss/cloudbin/internal/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	writeTimeout   = 10 * time.Second
	batchTimeout   = 5 * time.Millisecond
	publishTimeout = 2 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a single topic keyed by storage id, so one
// user's changes stay ordered within a partition.
type KafkaPublisher struct {
	writer  messageWriter
	log     *zap.Logger
	timeout time.Duration
}

// NewKafkaPublisher builds a publisher for cfg.Brokers and cfg.Topic.
func NewKafkaPublisher(cfg config.KafkaConfig, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: batchTimeout,
			WriteTimeout: writeTimeout,
			ReadTimeout:  writeTimeout,
		},
		log:     log,
		timeout: publishTimeout,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg := kafka.Message{
		Key:   []byte(event.StorageID),
		Value: value,
		Time:  event.At,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.log.Debug("published event",
		zap.String("type", event.Type),
		zap.String("storage_id", event.StorageID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
