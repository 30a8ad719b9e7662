package outbox

import (
	"context"

	"github.com/kledje/storefront-backend/pkg/logger"
)

// Message is a broker-neutral representation of one outbox row ready to send.
type Message struct {
	Topic      string
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Sink delivers messages to a broker.
type Sink interface {
	Publish(ctx context.Context, msg Message) error
	Ping(ctx context.Context) error
	Close() error
}

// LogSink writes messages to the structured log. Used when no broker is configured.
type LogSink struct {
	logg *logger.Logger
}

func NewLogSink(logg *logger.Logger) *LogSink {
	return &LogSink{logg: logg}
}

func (s *LogSink) Publish(ctx context.Context, msg Message) error {
	if s.logg == nil {
		return nil
	}
	fields := map[string]any{
		"topic":   msg.Topic,
		"key":     msg.Key,
		"payload": string(msg.Data),
	}
	for k, v := range msg.Attributes {
		fields["attr_"+k] = v
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "outbox message")
	return nil
}

func (s *LogSink) Ping(context.Context) error { return nil }

func (s *LogSink) Close() error { return nil }
