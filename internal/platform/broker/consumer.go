package broker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"swiftDropWs/internal/modules/relay/domain"
)

// KafkaConsumer reads committed-change envelopes published by the REST layer.
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
	}
}

func (c *KafkaConsumer) Consume(ctx context.Context, handler func(*domain.Message) error) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			slog.Warn("kafka read error", slog.Any("error", err))
			continue
		}
		msg := decodeEnvelope(m)
		slog.Info("kafka message consumed",
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.String("entity", msg.Entity),
			slog.String("action", msg.Action),
			slog.String("resourceId", msg.ResourceID),
		)
		if err := handler(msg); err != nil {
			slog.Warn("kafka handler error", slog.String("topic", m.Topic), slog.Any("error", err))
		}
	}
}

// envelope is the committed-change record the REST layer publishes after a
// successful write. The relay only ever announces what is already committed.
type envelope struct {
	Entity     string          `json:"entity"`
	Action     string          `json:"action"`
	ResourceID string          `json:"resourceId"`
	Metadata   domain.Metadata `json:"metadata"`
	Data       any             `json:"data"`
}

func decodeEnvelope(m kafka.Message) *domain.Message {
	msg := &domain.Message{Timestamp: time.Now().UTC()}

	var event envelope
	if err := json.Unmarshal(m.Value, &event); err != nil {
		slog.Warn("kafka envelope decode failed", slog.String("topic", m.Topic), slog.Any("error", err))
		msg.Entity = inferEntity(m.Topic)
		msg.Action = "unknown"
		msg.Data = string(m.Value)
		return msg
	}

	msg.Entity = firstNonEmpty(event.Entity, inferEntity(m.Topic))
	msg.Action = firstNonEmpty(event.Action, "unknown")
	msg.ResourceID = strings.TrimSpace(event.ResourceID)
	msg.Metadata = event.Metadata
	msg.Data = event.Data
	return msg
}

func inferEntity(topic string) string {
	if idx := strings.LastIndex(topic, "."); idx >= 0 {
		topic = topic[:idx]
	}
	return strings.TrimSpace(topic)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
