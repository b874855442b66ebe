package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo: implementasi Store di atas postgres.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&repoTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, COALESCE(external_id,''), user_id, address_id, total, status, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.ExternalID, &o.UserID, &o.AddressID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Details, err = scanDetails(r.DB.Query(ctx, `
		SELECT order_id, product_id, quantity, price
		FROM order_details WHERE order_id=$1 ORDER BY product_id`, id))
	return o, err
}

func (r *Repo) OrderByExternalID(ctx context.Context, externalID string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, COALESCE(external_id,''), user_id, address_id, total, status, created_at, updated_at
		FROM orders WHERE external_id=$1`, externalID).
		Scan(&o.ID, &o.ExternalID, &o.UserID, &o.AddressID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (r *Repo) OrderStatus(ctx context.Context, id int64) (int, error) {
	var s int
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrOrderNotFound
	}
	return s, err
}

func (r *Repo) ListOrders(ctx context.Context, page, pageSize int) ([]Order, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, COALESCE(external_id,''), user_id, address_id, total, status, created_at, updated_at
		FROM orders ORDER BY id DESC LIMIT $1 OFFSET $2`, pageSize, page*pageSize)
	return scanOrders(rows, err)
}

func (r *Repo) ListOrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, COALESCE(external_id,''), user_id, address_id, total, status, created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY id DESC`, userID)
	return scanOrders(rows, err)
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, price, quantity, created_at, updated_at
		FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanOrders(rows pgx.Rows, err error) ([]Order, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.ExternalID, &o.UserID, &o.AddressID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanDetails(rows pgx.Rows, err error) ([]OrderDetail, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderDetail
	for rows.Next() {
		var d OrderDetail
		if err := rows.Scan(&d.OrderID, &d.ProductID, &d.Quantity, &d.Price); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type repoTx struct{ tx pgx.Tx }

var _ Tx = (*repoTx)(nil)

func (t *repoTx) UserAddress(ctx context.Context, userID string, addressID int64) (UserAddress, error) {
	var a UserAddress
	err := t.tx.QueryRow(ctx, `
		SELECT id, user_id, state_id, district_id, ward_id, name_contact, phone_contact, detail
		FROM user_addresses WHERE id=$1 AND user_id=$2`, addressID, userID).
		Scan(&a.ID, &a.UserID, &a.StateID, &a.DistrictID, &a.WardID, &a.NameContact, &a.PhoneContact, &a.Detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAddress{}, ErrInvalidAddress
	}
	return a, err
}

func (t *repoTx) CartItems(ctx context.Context, userID string) ([]CartItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT user_id, product_id, quantity FROM carts WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CartItem
	for rows.Next() {
		var c CartItem
		if err := rows.Scan(&c.UserID, &c.ProductID, &c.Quantity); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *repoTx) DeleteCartItems(ctx context.Context, userID string, productIDs []int64) error {
	_, err := t.tx.Exec(ctx, `
		DELETE FROM carts WHERE user_id=$1 AND product_id = ANY($2)`, userID, productIDs)
	return err
}

func (t *repoTx) ProductsForUpdate(ctx context.Context, ids []int64) ([]Product, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, price, quantity, created_at, updated_at
		FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *repoTx) UpdateProductQuantity(ctx context.Context, id int64, quantity int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET quantity=$2, updated_at=now() WHERE id=$1`, id, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrProductNotFound
	}
	return nil
}

func (t *repoTx) InsertShippingAddress(ctx context.Context, a ShippingAddress) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO shipping_addresses(state_id, district_id, ward_id, name_contact, phone_contact, detail)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		a.StateID, a.DistrictID, a.WardID, a.NameContact, a.PhoneContact, a.Detail).Scan(&id)
	return id, err
}

func (t *repoTx) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders(external_id, user_id, address_id, total, status, created_at, updated_at)
		VALUES (NULLIF($1,''), $2, $3, $4, $5, now(), now()) RETURNING id`,
		o.ExternalID, o.UserID, o.AddressID, o.Total, o.Status).Scan(&id)
	return id, err
}

func (t *repoTx) InsertOrderDetails(ctx context.Context, details []OrderDetail) error {
	for _, d := range details {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_details(order_id, product_id, quantity, price)
			VALUES ($1,$2,$3,$4)`, d.OrderID, d.ProductID, d.Quantity, d.Price); err != nil {
			return err
		}
	}
	return nil
}

func (t *repoTx) OrderForUpdate(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := t.tx.QueryRow(ctx, `
		SELECT id, COALESCE(external_id,''), user_id, address_id, total, status, created_at, updated_at
		FROM orders WHERE id=$1 FOR UPDATE`, id).
		Scan(&o.ID, &o.ExternalID, &o.UserID, &o.AddressID, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (t *repoTx) OrderDetails(ctx context.Context, orderID int64) ([]OrderDetail, error) {
	return scanDetails(t.tx.Query(ctx, `
		SELECT order_id, product_id, quantity, price
		FROM order_details WHERE order_id=$1 ORDER BY product_id`, orderID))
}

func (t *repoTx) SetOrderStatus(ctx context.Context, id int64, status int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *repoTx) EnqueueOutbox(ctx context.Context, topic string, key, payload []byte) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO outbox(topic, key, payload, status) VALUES ($1,$2,$3,'pending')`,
		topic, key, payload)
	return err
}
