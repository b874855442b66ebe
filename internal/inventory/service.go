package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"moto_backend/internal/orders"
	"moto_backend/internal/redisx"
)

// Service menerapkan batch delta stok dari broker ke tabel products.
type Service struct {
	Store orders.Store
	Redis *redis.Client
	Group string
	Log   *slog.Logger
}

// HandleDeltaMessage dipasang sebagai handler consumer.
func (s *Service) HandleDeltaMessage(ctx context.Context, m kafkago.Message) error {
	// Transport at-least-once: offset yang sudah sukses jangan diproses dua kali.
	dkey := fmt.Sprintf(redisx.KeyDedup, s.Group, m.Topic, m.Partition, m.Offset)
	if s.Redis != nil {
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
	}

	deltas, err := orders.DecodeDeltas(m.Value)
	if err != nil {
		return fmt.Errorf("decode deltas: %w", err)
	}
	if err := s.Apply(ctx, deltas); err != nil {
		return err
	}

	if s.Redis != nil {
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	s.Log.Info("delta batch applied", "lines", len(deltas), "offset", m.Offset)
	return nil
}

// Apply: satu transaksi untuk seluruh batch, semua-atau-tidak-sama-sekali.
//   - batch kosong = no-op
//   - ada product id yang tidak resolve -> seluruh pesan dibuang
//   - ada baris yang bikin stok negatif -> batalkan semua baris, termasuk
//     yang sebenarnya aman
func (s *Service) Apply(ctx context.Context, deltas []orders.ProductDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	// Gabung delta per product; hitungan resolve pakai id distinct.
	merged := make(map[int64]int, len(deltas))
	for _, d := range deltas {
		merged[d.ProductID] += d.Quantity
	}
	ids := make([]int64, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return s.Store.WithinTx(ctx, func(tx orders.Tx) error {
		prods, err := tx.ProductsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if len(prods) != len(ids) {
			// Product dihapus setelah pesannya diproduksi.
			return fmt.Errorf("%w: resolved %d of %d", orders.ErrProductNotFound, len(prods), len(ids))
		}
		for _, p := range prods {
			newQty := p.Quantity + merged[p.ID]
			if newQty < 0 {
				return fmt.Errorf("%w: product %d (%d%+d)", orders.ErrInsufficientStock, p.ID, p.Quantity, merged[p.ID])
			}
			if err := tx.UpdateProductQuantity(ctx, p.ID, newQty); err != nil {
				return err
			}
		}
		return nil
	})
}
