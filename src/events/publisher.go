package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	logger "github.com/sirupsen/logrus"

	"ordersapi/src/model"
)

// Publisher mirrors committed audit entries to an external stream.
type Publisher interface {
	PublishOrderLog(ctx context.Context, entry *model.OrderLog) error
	Close() error
}

// NopPublisher discards every entry.
type NopPublisher struct{}

func (NopPublisher) PublishOrderLog(context.Context, *model.OrderLog) error { return nil }

func (NopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes audit entries as JSON, keyed by orderId so entries of
// the same order land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher writing to topic on the given brokers.
func NewKafkaPublisher(cfg Config) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.KafkaWriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w, topic: cfg.KafkaTopic}
}

// NewPublisher returns a Kafka publisher when brokers are configured, a no-op otherwise.
func NewPublisher() Publisher {
	cfg := GetConfig()
	if len(cfg.KafkaBrokers) == 0 {
		logger.WithField("component", "events").Info("KAFKA_BROKERS not set, audit events are not mirrored")
		return NopPublisher{}
	}

	logger.WithFields(map[string]interface{}{
		"component": "events",
		"brokers":   cfg.KafkaBrokers,
		"topic":     cfg.KafkaTopic,
	}).Info("Mirroring audit events to kafka")

	return NewKafkaPublisher(cfg)
}

func (p *KafkaPublisher) PublishOrderLog(ctx context.Context, entry *model.OrderLog) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal order log %s: %w", entry.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(entry.OrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "transactionType", Value: []byte(entry.TransactionType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order log %s to %s: %w", entry.ID, p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
