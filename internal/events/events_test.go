package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/abduss/cloudbin/internal/config"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysByStorageID(t *testing.T) {
	writer := &recordingWriter{}
	pub := &KafkaPublisher{writer: writer, log: zap.NewNop()}
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	err := pub.Publish(context.Background(), Event{
		Type: FileAdded, StorageID: "alice", ItemID: "f1", ItemType: "file", At: at,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "alice", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, FileAdded, decoded.Type)
	assert.Equal(t, "f1", decoded.ItemID)

	require.NoError(t, pub.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	boom := errors.New("broker down")
	pub := &KafkaPublisher{writer: &recordingWriter{err: boom}, log: zap.NewNop()}

	err := pub.Publish(context.Background(), Event{Type: ItemDeleted, StorageID: "alice"})
	assert.ErrorIs(t, err, boom)
}

func TestLogPublisherLogsEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	pub := NewLogPublisher(zap.New(core))

	require.NoError(t, pub.Publish(context.Background(), Event{Type: StorageCreated, StorageID: "bob"}))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "storage event", entries[0].Message)
	assert.Equal(t, "bob", entries[0].ContextMap()["storage_id"])
}

func TestNewSelectsBackend(t *testing.T) {
	assert.IsType(t, &LogPublisher{}, New(config.KafkaConfig{}, zap.NewNop()))

	pub := New(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}, zap.NewNop())
	assert.IsType(t, &KafkaPublisher{}, pub)
	assert.NoError(t, pub.Close())
}

type blockingWriter struct{}

func (blockingWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingWriter) Close() error { return nil }

func TestKafkaPublisherBoundsSlowBrokers(t *testing.T) {
	pub := &KafkaPublisher{writer: blockingWriter{}, log: zap.NewNop(), timeout: 20 * time.Millisecond}

	start := time.Now()
	err := pub.Publish(context.Background(), Event{Type: FileAdded, StorageID: "alice"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewKafkaPublisherFlushesPromptly(t *testing.T) {
	pub := NewKafkaPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}, zap.NewNop())
	t.Cleanup(func() { _ = pub.Close() })

	writer, ok := pub.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, batchTimeout, writer.BatchTimeout)
	assert.Less(t, writer.BatchTimeout, 100*time.Millisecond)
	assert.Equal(t, publishTimeout, pub.timeout)
}
