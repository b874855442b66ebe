package orders

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPurchaseDeltasNegated(t *testing.T) {
	details := []OrderDetail{
		{OrderID: 7, ProductID: 1, Quantity: 3, Price: decimal.NewFromInt(10)},
		{OrderID: 7, ProductID: 2, Quantity: 1, Price: decimal.NewFromInt(5)},
	}
	got := PurchaseDeltas(details)
	want := []ProductDelta{{ProductID: 1, Quantity: -3}, {ProductID: 2, Quantity: -1}}
	if len(got) != len(want) {
		t.Fatalf("got %d deltas, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delta[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRestockDeltasPositive(t *testing.T) {
	details := []OrderDetail{{OrderID: 7, ProductID: 1, Quantity: 3}}
	got := RestockDeltas(details)
	if len(got) != 1 || got[0].Quantity != 3 || got[0].ProductID != 1 {
		t.Fatalf("got %+v, want [{1 3}]", got)
	}
}

// Kontrak wire harus tetap JSON array polos dengan field productId/quantity.
func TestDecodeDeltasWireContract(t *testing.T) {
	deltas, err := DecodeDeltas([]byte(`[{"productId":42,"quantity":-3}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(deltas) != 1 || deltas[0].ProductID != 42 || deltas[0].Quantity != -3 {
		t.Fatalf("got %+v", deltas)
	}

	b, err := EncodeDeltas(deltas)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(b) != `[{"productId":42,"quantity":-3}]` {
		t.Fatalf("encoded = %s", b)
	}
}

func TestDecodeDeltasMalformed(t *testing.T) {
	if _, err := DecodeDeltas([]byte(`{"productId":1}`)); err == nil {
		t.Fatal("object instead of array should fail")
	}
	if _, err := DecodeDeltas([]byte(`not json`)); err == nil {
		t.Fatal("garbage should fail")
	}
}
