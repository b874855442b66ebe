package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler memproses satu pesan. Error dari handler = pesan di-drop
// (tetap commit offset), bukan di-retry.
type Handler func(ctx context.Context, m kafka.Message) error

// reader = irisan *kafka.Reader yang dipakai loop consume.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer: satu worker sequential per process. Semua mutasi stok dari
// consumer jadi serial terhadap satu sama lain.
type Consumer struct {
	log       *slog.Logger
	topic     string
	newReader func() reader
	retryWait time.Duration
}

func NewConsumer(log *slog.Logger, brokers []string, group, topic string) *Consumer {
	return &Consumer{
		log:   log,
		topic: topic,
		newReader: func() reader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:  brokers,
				GroupID:  group,
				Topic:    topic,
				MinBytes: 1,
				MaxBytes: 10e6,
			})
		},
		retryWait: time.Second,
	}
}

// Run: buat reader (subscribe) -> loop consume; error protokol menutup
// subscription lalu subscribe ulang; ctx selesai -> keluar tanpa
// subscribe ulang. Cancel dicek di antara pesan, tidak di tengah
// transaksi handler.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		r := c.newReader()
		err := c.consume(ctx, r, h)
		_ = r.Close()

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		c.log.Error("consumer disconnected, resubscribing", "topic", c.topic, "err", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.retryWait):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, r reader, h Handler) error {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			return err
		}
		if err := h(ctx, m); err != nil {
			// Pesan rusak atau product-nya hilang: drop dan lanjut.
			c.log.Error("message dropped",
				"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "err", err)
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			return err
		}
	}
}
