package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrPublish membedakan kegagalan broker dari error validasi; caller
// (relay) tinggal log + retry lewat outbox.
var ErrPublish = errors.New("kafka publish failed")

type Producer struct {
	w *kafka.Writer
}

// NewProducer: writer sinkron.
// - Hash + key: delta 1 order jatuh ke partition yang sama.
// - RequireAll: tunggu ack ISR, bukan downstream processing.
// - MaxAttempts 1: tanpa retry di layer ini; retry urusan outbox relay.
// - WriteTimeout: batasi lama nunggu ack di request path.
func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  1,
			WriteTimeout: 5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }
