package orders

import (
	"encoding/json"
	"strconv"
)

// Topic default untuk delta stok; override lewat KAFKA_TOPIC.
const TopicProductUpdate = "update-product-1"

// ProductDelta: penyesuaian stok bertanda. Consumer menghitung
// newQuantity = oldQuantity + Quantity; negatif saat pembelian,
// positif saat pembatalan (restock).
type ProductDelta struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Kontrak wire: JSON array polos dari ProductDelta, tanpa envelope.
func EncodeDeltas(deltas []ProductDelta) ([]byte, error) {
	return json.Marshal(deltas)
}

func DecodeDeltas(b []byte) ([]ProductDelta, error) {
	var out []ProductDelta
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PurchaseDeltas: kuantitas detail dinegasikan (stok berkurang).
func PurchaseDeltas(details []OrderDetail) []ProductDelta {
	out := make([]ProductDelta, 0, len(details))
	for _, d := range details {
		out = append(out, ProductDelta{ProductID: d.ProductID, Quantity: -d.Quantity})
	}
	return out
}

// RestockDeltas: kuantitas asli, positif (kompensasi cancel-class).
func RestockDeltas(details []OrderDetail) []ProductDelta {
	out := make([]ProductDelta, 0, len(details))
	for _, d := range details {
		out = append(out, ProductDelta{ProductID: d.ProductID, Quantity: d.Quantity})
	}
	return out
}

// Partition key = order_id, supaya delta 1 order maintain urutan.
func PartitionKey(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}
