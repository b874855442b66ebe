package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAddress milik collaborator address; dibaca saja di sini.
type UserAddress struct {
	ID           int64
	UserID       string
	StateID      int
	DistrictID   int
	WardID       int
	NameContact  string
	PhoneContact string
	Detail       string
}

// ShippingAddress = salinan beku dari UserAddress saat order dibuat.
// Edit alamat belakangan tidak boleh mengubah riwayat order.
type ShippingAddress struct {
	ID           int64
	StateID      int
	DistrictID   int
	WardID       int
	NameContact  string
	PhoneContact string
	Detail       string
}

type Order struct {
	ID         int64
	ExternalID string
	UserID     string
	AddressID  int64
	Total      decimal.Decimal
	Status     int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Details    []OrderDetail
}

// OrderDetail immutable setelah dibuat; Price di-capture saat order,
// tidak pernah dibaca ulang dari product.
type OrderDetail struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// CartItem ephemeral: dikonsumsi (dihapus) sekali, atomik dengan create order.
type CartItem struct {
	UserID    string
	ProductID int64
	Quantity  int
}
