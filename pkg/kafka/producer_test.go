package kafka

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kledje/storefront-backend/pkg/config"
	"github.com/kledje/storefront-backend/pkg/outbox"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishMapsMessage(t *testing.T) {
	writer := &fakeWriter{}
	producer := &Producer{writer: writer}

	err := producer.Publish(context.Background(), outbox.Message{
		Topic:      "storefront.order-events",
		Key:        "order-1",
		Data:       []byte(`{"ok":true}`),
		Attributes: map[string]string{"event_type": "order_created"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if msg.Topic != "storefront.order-events" || string(msg.Key) != "order-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(msg.Headers) != 1 || msg.Headers[0].Key != "event_type" || string(msg.Headers[0].Value) != "order_created" {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("leader not available")
	producer := &Producer{writer: &fakeWriter{err: boom}}

	err := producer.Publish(context.Background(), outbox.Message{Topic: "t"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped writer error, got %v", err)
	}
}

func TestPublishRequiresTopic(t *testing.T) {
	producer := &Producer{writer: &fakeWriter{}}
	if err := producer.Publish(context.Background(), outbox.Message{}); err == nil {
		t.Fatal("expected missing topic error")
	}
}

func TestPingReportsUnreachableBrokers(t *testing.T) {
	boom := errors.New("connection refused")
	producer := &Producer{
		brokers: []string{"a:9092", "b:9092"},
		dial: func(context.Context, string, string) (*kafkago.Conn, error) {
			return nil, boom
		},
	}
	if err := producer.Ping(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected dial error, got %v", err)
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(config.KafkaConfig{Brokers: []string{" "}}, nil); err == nil {
		t.Fatal("expected error without brokers")
	}
	producer, err := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
