package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordersapi/src/model"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
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

func sampleEntry() *model.OrderLog {
	return &model.OrderLog{
		ID:              "log-1",
		DocID:           "doc-1",
		OrderID:         "1746442975000",
		Symbol:          "XAUUSD",
		OrderType:       "OP_BUY_STOP",
		OpenPrice:       1900.5,
		StopLossPrice:   1890,
		TakeProfitPrice: 1920,
		OrderSize:       0.1,
		TransactionType: model.TransactionTypeAdd,
		CreatedAt:       time.Date(2025, 5, 5, 11, 2, 55, 0, time.UTC),
	}
}

func TestKafkaPublisher_PublishOrderLog(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "orders_log"}

	require.NoError(t, p.PublishOrderLog(context.Background(), sampleEntry()))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "1746442975000", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "ADD", string(msg.Headers[0].Value))

	var decoded model.OrderLog
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "doc-1", decoded.DocID)
	assert.Equal(t, 1900.5, decoded.OpenPrice)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: assert.AnError}
	p := &KafkaPublisher{writer: w, topic: "orders_log"}

	err := p.PublishOrderLog(context.Background(), sampleEntry())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewPublisher_DisabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	_, ok := NewPublisher().(NopPublisher)
	assert.True(t, ok)
}

func TestNewPublisher_KafkaWithBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092,localhost:9093")
	t.Setenv("KAFKA_TOPIC", "audit")

	p, ok := NewPublisher().(*KafkaPublisher)
	require.True(t, ok)
	assert.Equal(t, "audit", p.topic)
}
