package outbox

import (
	"context"
	"log/slog"
	"time"
)

// Relay menguras tabel outbox dan publish ke broker. Satu relay per
// process; commit lokal yang sukses tapi publish-nya gagal tinggal
// menunggu tick berikutnya, bukan hilang.
type Relay struct {
	log       *slog.Logger
	store     Store
	pub       Publisher
	batchSize int
	interval  time.Duration
}

func NewRelay(log *slog.Logger, store Store, pub Publisher) *Relay {
	return &Relay{
		log:       log,
		store:     store,
		pub:       pub,
		batchSize: 100,
		interval:  500 * time.Millisecond,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopping")
			return nil
		case <-t.C:
			r.drain(ctx)
		}
	}
}

// drain: ambil + tandai dalam satu transaksi. Row pending yang
// terkunci di sini dilewati relay lain (skip locked), jadi tiap row
// di-publish paling banyak sekali per tick lintas replica.
func (r *Relay) drain(ctx context.Context) {
	err := r.store.WithinTx(ctx, func(tx Tx) error {
		msgs, err := tx.PendingBatch(ctx, r.batchSize)
		if err != nil {
			return err
		}

		var sent []int64
		for _, m := range msgs {
			if err := r.pub.Publish(ctx, m.Topic, m.Key, m.Payload); err != nil {
				// Order/status sudah commit tapi delta belum sampai broker:
				// wajib ke log, dan row-nya tetap pending untuk retry.
				r.log.Error("outbox publish failed", "message_id", m.ID, "topic", m.Topic, "err", err)
				if err := tx.MarkFailed(ctx, m.ID, err.Error()); err != nil {
					return err
				}
				continue
			}
			sent = append(sent, m.ID)
		}
		if len(sent) == 0 {
			return nil
		}
		return tx.MarkSent(ctx, sent)
	})
	if err != nil {
		r.log.Error("outbox drain", "err", err)
	}
}
