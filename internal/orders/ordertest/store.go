// Package ordertest menyediakan Store in-memory dengan semantik
// rollback, untuk unit test tanpa postgres.
package ordertest

import (
	"context"
	"sort"
	"sync"

	"moto_backend/internal/orders"
)

type OutboxRow struct {
	Topic   string
	Key     []byte
	Payload []byte
}

type MemStore struct {
	mu    sync.Mutex
	prods map[int64]orders.Product
	addrs map[int64]orders.UserAddress
	ships map[int64]orders.ShippingAddress
	carts map[string]map[int64]int
	ords  map[int64]orders.Order
	dets  map[int64][]orders.OrderDetail
	out   []OutboxRow

	nextOrder int64
	nextShip  int64
}

var _ orders.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		prods: map[int64]orders.Product{},
		addrs: map[int64]orders.UserAddress{},
		ships: map[int64]orders.ShippingAddress{},
		carts: map[string]map[int64]int{},
		ords:  map[int64]orders.Order{},
		dets:  map[int64][]orders.OrderDetail{},
	}
}

// --- seed & inspeksi ---

func (s *MemStore) SeedProduct(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prods[p.ID] = p
}

func (s *MemStore) SeedAddress(a orders.UserAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addrs[a.ID] = a
}

func (s *MemStore) SeedCart(userID string, productID int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[userID] == nil {
		s.carts[userID] = map[int64]int{}
	}
	s.carts[userID][productID] = qty
}

func (s *MemStore) Product(id int64) (orders.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prods[id]
	return p, ok
}

func (s *MemStore) Cart(userID string) map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int64]int{}
	for pid, qty := range s.carts[userID] {
		out[pid] = qty
	}
	return out
}

func (s *MemStore) Outbox() []OutboxRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OutboxRow(nil), s.out...)
}

func (s *MemStore) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ords)
}

// --- orders.Store ---

func (s *MemStore) WithinTx(ctx context.Context, fn func(orders.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.clone()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemStore) GetOrder(ctx context.Context, id int64) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ords[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	o.Details = append([]orders.OrderDetail(nil), s.dets[id]...)
	return o, nil
}

func (s *MemStore) OrderByExternalID(ctx context.Context, externalID string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.ords {
		if o.ExternalID != "" && o.ExternalID == externalID {
			return o, nil
		}
	}
	return orders.Order{}, orders.ErrOrderNotFound
}

func (s *MemStore) OrderStatus(ctx context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ords[id]
	if !ok {
		return 0, orders.ErrOrderNotFound
	}
	return o.Status, nil
}

func (s *MemStore) ListOrders(ctx context.Context, page, pageSize int) ([]orders.Order, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sortedOrdersDesc()
	lo := page * pageSize
	if lo >= len(all) {
		return nil, nil
	}
	hi := lo + pageSize
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], nil
}

func (s *MemStore) ListOrdersByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.sortedOrdersDesc() {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *MemStore) ListProducts(ctx context.Context) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.prods))
	for id := range s.prods {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]orders.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.prods[id])
	}
	return out, nil
}

func (s *MemStore) sortedOrdersDesc() []orders.Order {
	ids := make([]int64, 0, len(s.ords))
	for id := range s.ords {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := make([]orders.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.ords[id])
	}
	return out
}

type snapshot struct {
	prods map[int64]orders.Product
	ships map[int64]orders.ShippingAddress
	carts map[string]map[int64]int
	ords  map[int64]orders.Order
	dets  map[int64][]orders.OrderDetail
	out   []OutboxRow

	nextOrder int64
	nextShip  int64
}

func (s *MemStore) clone() snapshot {
	snap := snapshot{
		prods:     map[int64]orders.Product{},
		ships:     map[int64]orders.ShippingAddress{},
		carts:     map[string]map[int64]int{},
		ords:      map[int64]orders.Order{},
		dets:      map[int64][]orders.OrderDetail{},
		out:       append([]OutboxRow(nil), s.out...),
		nextOrder: s.nextOrder,
		nextShip:  s.nextShip,
	}
	for k, v := range s.prods {
		snap.prods[k] = v
	}
	for k, v := range s.ships {
		snap.ships[k] = v
	}
	for u, m := range s.carts {
		c := map[int64]int{}
		for pid, qty := range m {
			c[pid] = qty
		}
		snap.carts[u] = c
	}
	for k, v := range s.ords {
		snap.ords[k] = v
	}
	for k, v := range s.dets {
		snap.dets[k] = append([]orders.OrderDetail(nil), v...)
	}
	return snap
}

func (s *MemStore) restore(snap snapshot) {
	s.prods = snap.prods
	s.ships = snap.ships
	s.carts = snap.carts
	s.ords = snap.ords
	s.dets = snap.dets
	s.out = snap.out
	s.nextOrder = snap.nextOrder
	s.nextShip = snap.nextShip
}

type memTx struct{ s *MemStore }

var _ orders.Tx = (*memTx)(nil)

func (t *memTx) UserAddress(ctx context.Context, userID string, addressID int64) (orders.UserAddress, error) {
	a, ok := t.s.addrs[addressID]
	if !ok || a.UserID != userID {
		return orders.UserAddress{}, orders.ErrInvalidAddress
	}
	return a, nil
}

func (t *memTx) CartItems(ctx context.Context, userID string) ([]orders.CartItem, error) {
	var out []orders.CartItem
	for pid, qty := range t.s.carts[userID] {
		out = append(out, orders.CartItem{UserID: userID, ProductID: pid, Quantity: qty})
	}
	return out, nil
}

func (t *memTx) DeleteCartItems(ctx context.Context, userID string, productIDs []int64) error {
	for _, pid := range productIDs {
		delete(t.s.carts[userID], pid)
	}
	return nil
}

func (t *memTx) ProductsForUpdate(ctx context.Context, ids []int64) ([]orders.Product, error) {
	var out []orders.Product
	for _, id := range ids {
		if p, ok := t.s.prods[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) UpdateProductQuantity(ctx context.Context, id int64, quantity int) error {
	p, ok := t.s.prods[id]
	if !ok {
		return orders.ErrProductNotFound
	}
	p.Quantity = quantity
	t.s.prods[id] = p
	return nil
}

func (t *memTx) InsertShippingAddress(ctx context.Context, a orders.ShippingAddress) (int64, error) {
	t.s.nextShip++
	a.ID = t.s.nextShip
	t.s.ships[a.ID] = a
	return a.ID, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o orders.Order) (int64, error) {
	t.s.nextOrder++
	o.ID = t.s.nextOrder
	o.Details = nil
	t.s.ords[o.ID] = o
	return o.ID, nil
}

func (t *memTx) InsertOrderDetails(ctx context.Context, details []orders.OrderDetail) error {
	for _, d := range details {
		t.s.dets[d.OrderID] = append(t.s.dets[d.OrderID], d)
	}
	return nil
}

func (t *memTx) OrderForUpdate(ctx context.Context, id int64) (orders.Order, error) {
	o, ok := t.s.ords[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (t *memTx) OrderDetails(ctx context.Context, orderID int64) ([]orders.OrderDetail, error) {
	return append([]orders.OrderDetail(nil), t.s.dets[orderID]...), nil
}

func (t *memTx) SetOrderStatus(ctx context.Context, id int64, status int) error {
	o, ok := t.s.ords[id]
	if !ok {
		return orders.ErrOrderNotFound
	}
	o.Status = status
	t.s.ords[id] = o
	return nil
}

func (t *memTx) EnqueueOutbox(ctx context.Context, topic string, key, payload []byte) error {
	t.s.out = append(t.s.out, OutboxRow{
		Topic:   topic,
		Key:     append([]byte(nil), key...),
		Payload: append([]byte(nil), payload...),
	})
	return nil
}
