package orders

import "context"

// Store adalah port persistence untuk order core. Collaborator luar
// (cart, address, product) hanya dikonsumsi lewat interface ini.
type Store interface {
	// WithinTx menjalankan fn dalam satu transaksi lokal; error apa pun
	// membuat seluruh transaksi di-rollback.
	WithinTx(ctx context.Context, fn func(Tx) error) error

	GetOrder(ctx context.Context, id int64) (Order, error)
	OrderByExternalID(ctx context.Context, externalID string) (Order, error)
	OrderStatus(ctx context.Context, id int64) (int, error)
	ListOrders(ctx context.Context, page, pageSize int) ([]Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]Order, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// Tx: operasi yang tersedia di dalam satu transaksi.
type Tx interface {
	UserAddress(ctx context.Context, userID string, addressID int64) (UserAddress, error)
	CartItems(ctx context.Context, userID string) ([]CartItem, error)
	DeleteCartItems(ctx context.Context, userID string, productIDs []int64) error

	// ProductsForUpdate lock baris product (FOR UPDATE) supaya stock check
	// dan mutasi stok serial terhadap placement/reconciliation lain.
	ProductsForUpdate(ctx context.Context, ids []int64) ([]Product, error)
	UpdateProductQuantity(ctx context.Context, id int64, quantity int) error

	InsertShippingAddress(ctx context.Context, a ShippingAddress) (int64, error)
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertOrderDetails(ctx context.Context, details []OrderDetail) error

	OrderForUpdate(ctx context.Context, id int64) (Order, error)
	OrderDetails(ctx context.Context, orderID int64) ([]OrderDetail, error)
	SetOrderStatus(ctx context.Context, id int64, status int) error

	// EnqueueOutbox menyimpan pesan keluar di transaksi yang sama dengan
	// perubahan state yang memicunya (outbox pattern).
	EnqueueOutbox(ctx context.Context, topic string, key, payload []byte) error
}
