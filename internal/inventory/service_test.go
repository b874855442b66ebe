package inventory_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"moto_backend/internal/inventory"
	"moto_backend/internal/orders"
	"moto_backend/internal/orders/ordertest"
)

func newService() (*ordertest.MemStore, *inventory.Service) {
	st := ordertest.NewMemStore()
	st.SeedProduct(orders.Product{ID: 1, Name: "Moto X", Price: decimal.NewFromInt(100), Quantity: 5})
	st.SeedProduct(orders.Product{ID: 2, Name: "Helmet", Price: decimal.NewFromInt(10), Quantity: 1})
	return st, &inventory.Service{
		Store: st,
		Group: "st_consumer_group",
		Log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestApplyEmptyBatchIsNoop(t *testing.T) {
	_, svc := newService()
	if err := svc.Apply(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}

func TestApplyPurchaseAndRestock(t *testing.T) {
	st, svc := newService()

	if err := svc.Apply(context.Background(), []orders.ProductDelta{{ProductID: 1, Quantity: -3}}); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if p, _ := st.Product(1); p.Quantity != 2 {
		t.Fatalf("after purchase quantity = %d, want 2", p.Quantity)
	}

	if err := svc.Apply(context.Background(), []orders.ProductDelta{{ProductID: 1, Quantity: 3}}); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if p, _ := st.Product(1); p.Quantity != 5 {
		t.Fatalf("after restock quantity = %d, want 5", p.Quantity)
	}
}

// Satu baris yang bikin stok negatif membatalkan seluruh batch,
// termasuk baris yang sebenarnya aman.
func TestApplyAllOrNothing(t *testing.T) {
	st, svc := newService()

	err := svc.Apply(context.Background(), []orders.ProductDelta{
		{ProductID: 1, Quantity: -3}, // aman: 5-3=2
		{ProductID: 2, Quantity: -2}, // negatif: 1-2
	})
	if !errors.Is(err, orders.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if p, _ := st.Product(1); p.Quantity != 5 {
		t.Errorf("product 1 quantity = %d, want unchanged 5", p.Quantity)
	}
	if p, _ := st.Product(2); p.Quantity != 1 {
		t.Errorf("product 2 quantity = %d, want unchanged 1", p.Quantity)
	}
}

// Ada id yang tidak resolve -> seluruh pesan dibuang tanpa efek.
func TestApplyUnknownProductDropsBatch(t *testing.T) {
	st, svc := newService()

	err := svc.Apply(context.Background(), []orders.ProductDelta{
		{ProductID: 1, Quantity: -1},
		{ProductID: 99, Quantity: -1},
	})
	if !errors.Is(err, orders.ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
	if p, _ := st.Product(1); p.Quantity != 5 {
		t.Errorf("product 1 quantity = %d, want unchanged 5", p.Quantity)
	}
}

func TestHandleDeltaMessageMalformed(t *testing.T) {
	st, svc := newService()

	err := svc.HandleDeltaMessage(context.Background(), kafkago.Message{Value: []byte(`not json`)})
	if err == nil {
		t.Fatal("malformed message should return error for the worker to log")
	}
	if p, _ := st.Product(1); p.Quantity != 5 {
		t.Errorf("stock mutated by malformed message: %d", p.Quantity)
	}
}

func TestHandleDeltaMessageApplies(t *testing.T) {
	st, svc := newService()

	err := svc.HandleDeltaMessage(context.Background(), kafkago.Message{
		Value: []byte(`[{"productId":1,"quantity":-2}]`),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if p, _ := st.Product(1); p.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", p.Quantity)
	}
}

// Alur penuh: place order -> apply batch beli -> cancel -> apply batch restock.
func TestEndToEndPlaceThenCancel(t *testing.T) {
	st := ordertest.NewMemStore()
	st.SeedProduct(orders.Product{ID: 1, Name: "Moto A", Price: decimal.RequireFromString("100.00"), Quantity: 5})
	st.SeedAddress(orders.UserAddress{ID: 11, UserID: "u1"})
	st.SeedCart("u1", 1, 3)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ordSvc := orders.NewService(log, st, "")
	invSvc := &inventory.Service{Store: st, Group: "g", Log: log}
	ctx := context.Background()

	orderID, err := ordSvc.PlaceOrder(ctx, orders.PlaceOrderInput{
		UserID: "u1", AddressID: 11,
		Lines: []orders.PlacementLine{{ProductID: 1, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	o, _ := st.GetOrder(ctx, orderID)
	if want := decimal.RequireFromString("300.00"); !o.Total.Equal(want) {
		t.Errorf("total = %s, want %s", o.Total, want)
	}
	if c := st.Cart("u1"); len(c) != 0 {
		t.Errorf("cart not emptied: %v", c)
	}

	out := st.Outbox()
	if len(out) != 1 {
		t.Fatalf("outbox rows = %d, want 1", len(out))
	}
	deltas, _ := orders.DecodeDeltas(out[0].Payload)
	if len(deltas) != 1 || deltas[0] != (orders.ProductDelta{ProductID: 1, Quantity: -3}) {
		t.Fatalf("placement batch = %+v, want [{1 -3}]", deltas)
	}
	if err := invSvc.Apply(ctx, deltas); err != nil {
		t.Fatalf("apply purchase: %v", err)
	}
	if p, _ := st.Product(1); p.Quantity != 2 {
		t.Fatalf("stock after purchase = %d, want 2", p.Quantity)
	}

	// operator cancel 0 -> -1
	if err := ordSvc.UpdateStatus(ctx, orderID, orders.StatusCanceledAdmin, 0); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	out = st.Outbox()
	if len(out) != 2 {
		t.Fatalf("outbox rows = %d, want 2", len(out))
	}
	deltas, _ = orders.DecodeDeltas(out[1].Payload)
	if len(deltas) != 1 || deltas[0] != (orders.ProductDelta{ProductID: 1, Quantity: 3}) {
		t.Fatalf("compensation batch = %+v, want [{1 3}]", deltas)
	}
	if err := invSvc.Apply(ctx, deltas); err != nil {
		t.Fatalf("apply restock: %v", err)
	}
	if p, _ := st.Product(1); p.Quantity != 5 {
		t.Fatalf("stock after restock = %d, want 5", p.Quantity)
	}
}
