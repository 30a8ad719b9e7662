package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kledje/storefront-backend/pkg/config"
	"github.com/kledje/storefront-backend/pkg/logger"
	"github.com/kledje/storefront-backend/pkg/outbox"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type dialFunc func(ctx context.Context, network, address string) (*kafkago.Conn, error)

// Producer writes outbox messages to Kafka. The message key is the aggregate
// id so events for one order land on one partition in order.
type Producer struct {
	writer  messageWriter
	brokers []string
	dial    dialFunc
}

// NewProducer builds a producer for the configured brokers.
func NewProducer(cfg config.KafkaConfig, logg *logger.Logger) (*Producer, error) {
	brokers := cleanBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	if logg != nil {
		logg.Info(logg.WithField(context.Background(), "brokers", strings.Join(brokers, ",")), "kafka producer initialized")
	}
	return &Producer{writer: writer, brokers: brokers, dial: kafkago.DialContext}, nil
}

// Publish writes one message and blocks until the brokers acknowledge it.
func (p *Producer) Publish(ctx context.Context, msg outbox.Message) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka producer not initialized")
	}
	if strings.TrimSpace(msg.Topic) == "" {
		return errors.New("kafka topic is required")
	}
	headers := make([]kafkago.Header, 0, len(msg.Attributes))
	for k, v := range msg.Attributes {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	err := p.writer.WriteMessages(ctx, kafkago.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Data,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("writing to %s: %w", msg.Topic, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (p *Producer) Ping(ctx context.Context) error {
	if p == nil || p.dial == nil {
		return errors.New("kafka producer not initialized")
	}
	var lastErr error
	for _, broker := range p.brokers {
		conn, err := p.dial(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

// Close flushes pending writes.
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func cleanBrokers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
