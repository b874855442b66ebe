package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
)

type Service struct {
	store Store
	log   *slog.Logger
	topic string
}

func NewService(log *slog.Logger, store Store, topic string) *Service {
	if topic == "" {
		topic = TopicProductUpdate
	}
	return &Service{store: store, log: log, topic: topic}
}

type PlacementLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderInput struct {
	UserID     string
	AddressID  int64
	ExternalID string
	Lines      []PlacementLine
}

// PlaceOrder: validasi berurutan, lalu satu transaksi atomik:
// hapus cart, snapshot alamat, buat order + detail dengan harga sekarang,
// dan antre delta stok (negatif) di outbox. Gagal di validasi mana pun =
// tanpa side effect sama sekali.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (int64, error) {
	if in.UserID == "" || in.AddressID <= 0 || len(in.Lines) == 0 {
		return 0, ErrInvalidInput
	}
	reqQty := make(map[int64]int, len(in.Lines))
	for _, l := range in.Lines {
		if l.ProductID <= 0 || l.Quantity <= 0 {
			return 0, fmt.Errorf("%w: product_id and quantity must be positive", ErrInvalidInput)
		}
		if _, dup := reqQty[l.ProductID]; dup {
			return 0, fmt.Errorf("%w: duplicate product %d", ErrInvalidInput, l.ProductID)
		}
		reqQty[l.ProductID] = l.Quantity
	}

	// Idempotent lewat external_id: request ulang balikin order yang sudah ada.
	if in.ExternalID != "" {
		o, err := s.store.OrderByExternalID(ctx, in.ExternalID)
		if err == nil {
			return o.ID, nil
		}
		if !errors.Is(err, ErrOrderNotFound) {
			return 0, err
		}
	}

	var orderID int64
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		// 1) alamat harus milik caller
		addr, err := tx.UserAddress(ctx, in.UserID, in.AddressID)
		if err != nil {
			return err
		}

		// 2) set product id request harus sama persis dengan isi cart
		//    (dua arah); cart basi/parsial ditolak seluruhnya.
		cart, err := tx.CartItems(ctx, in.UserID)
		if err != nil {
			return err
		}
		if len(cart) != len(reqQty) {
			return ErrStaleCart
		}
		cartQty := make(map[int64]int, len(cart))
		for _, c := range cart {
			cartQty[c.ProductID] = c.Quantity
		}
		for pid := range reqQty {
			if _, ok := cartQty[pid]; !ok {
				return ErrStaleCart
			}
		}

		// 3) qty per baris harus sama dengan cart (jaga-jaga race dengan
		//    edit cart yang berbarengan)
		for pid, qty := range reqQty {
			if cartQty[pid] != qty {
				return ErrStaleCart
			}
		}

		// 4) product harus ada dan stoknya cukup
		ids := make([]int64, 0, len(reqQty))
		for pid := range reqQty {
			ids = append(ids, pid)
		}
		// urutkan id supaya urutan lock konsisten antar transaksi
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		prods, err := tx.ProductsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if len(prods) != len(ids) {
			return ErrProductNotFound
		}
		priceByID := make(map[int64]decimal.Decimal, len(prods))
		for _, p := range prods {
			if p.Quantity < reqQty[p.ID] {
				return fmt.Errorf("%w: product %d", ErrInsufficientStock, p.ID)
			}
			priceByID[p.ID] = p.Price
		}

		// Efek, masih di transaksi yang sama.
		if err := tx.DeleteCartItems(ctx, in.UserID, ids); err != nil {
			return err
		}
		shipID, err := tx.InsertShippingAddress(ctx, ShippingAddress{
			StateID:      addr.StateID,
			DistrictID:   addr.DistrictID,
			WardID:       addr.WardID,
			NameContact:  addr.NameContact,
			PhoneContact: addr.PhoneContact,
			Detail:       addr.Detail,
		})
		if err != nil {
			return err
		}

		total := decimal.Zero
		details := make([]OrderDetail, 0, len(ids))
		for _, pid := range ids {
			price := priceByID[pid]
			qty := reqQty[pid]
			total = total.Add(price.Mul(decimal.NewFromInt(int64(qty))))
			details = append(details, OrderDetail{ProductID: pid, Quantity: qty, Price: price})
		}

		orderID, err = tx.InsertOrder(ctx, Order{
			ExternalID: in.ExternalID,
			UserID:     in.UserID,
			AddressID:  shipID,
			Total:      total,
			Status:     StatusPending,
		})
		if err != nil {
			return err
		}
		for i := range details {
			details[i].OrderID = orderID
		}
		if err := tx.InsertOrderDetails(ctx, details); err != nil {
			return err
		}

		payload, err := EncodeDeltas(PurchaseDeltas(details))
		if err != nil {
			return err
		}
		return tx.EnqueueOutbox(ctx, s.topic, PartitionKey(orderID), payload)
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// UpdateStatus: transisi operator. expected = status yang caller kira
// masih berlaku (optimistic check terhadap transisi berbarengan).
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, next, expected int) error {
	return s.store.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		return s.transition(ctx, tx, o, next, expected)
	})
}

// Refuse: aksi customer. Hanya boleh selama status tersimpan masih 0,
// next dipaksa -3, dan order harus milik caller.
func (s *Service) Refuse(ctx context.Context, orderID int64, userID string, next, expected int) error {
	if next != StatusRefusedCustomer {
		return ErrInvalidTransition
	}
	return s.store.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrNotOrderOwner
		}
		if o.Status != StatusPending {
			return ErrInvalidTransition
		}
		return s.transition(ctx, tx, o, next, expected)
	})
}

func (s *Service) transition(ctx context.Context, tx Tx, o Order, next, expected int) error {
	if o.Status != expected {
		return ErrStatusConflict
	}
	if !IsValidTransition(o.Status, next) {
		return ErrInvalidTransition
	}
	if err := tx.SetOrderStatus(ctx, o.ID, next); err != nil {
		return err
	}
	if !IsCancelClass(next) {
		return nil
	}

	// Kompensasi: restock semua baris order lewat outbox, di transaksi
	// yang sama dengan perubahan status.
	details, err := tx.OrderDetails(ctx, o.ID)
	if err != nil {
		return err
	}
	payload, err := EncodeDeltas(RestockDeltas(details))
	if err != nil {
		return err
	}
	return tx.EnqueueOutbox(ctx, s.topic, PartitionKey(o.ID), payload)
}
