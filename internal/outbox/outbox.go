package outbox

import (
	"context"
	"time"
)

// Message = satu pesan keluar yang tersimpan durable di tabel outbox,
// ditulis dalam transaksi yang sama dengan perubahan state pemicunya.
type Message struct {
	ID         int64
	Topic      string
	Key        []byte
	Payload    []byte
	Status     string
	RetryCount int
	LastError  string
	CreatedAt  time.Time
}

// Store membuka satu transaksi per drain. PendingBatch di dalam
// transaksi mengunci row (skip locked), jadi dua relay yang jalan
// berbarengan tidak pernah mengambil row yang sama.
type Store interface {
	WithinTx(ctx context.Context, fn func(Tx) error) error
}

type Tx interface {
	// PendingBatch ambil pesan tertua yang belum terkirim, urut id,
	// dikunci sampai transaksi selesai.
	PendingBatch(ctx context.Context, limit int) ([]Message, error)
	MarkSent(ctx context.Context, ids []int64) error
	// MarkFailed catat error dan biarkan status pending, supaya dicoba
	// lagi di tick berikutnya (at-least-once, tanpa dead-letter).
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}
