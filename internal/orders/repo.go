package orders

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, user_id, status, payment_status, payment_intent_id, checkout_key,
	total_amount, shipping_address, billing_address, created_at, updated_at`

// Create inserts the order row and its item snapshots in one transaction;
// a failure on any item leaves no trace of the order.
func (r *Repo) Create(ctx context.Context, o Order, items []Item) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	shipping, billing := mustAddr(o.ShippingAddress), mustAddr(o.BillingAddress)
	row := tx.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, status, payment_status, checkout_key,
			total_amount, shipping_address, billing_address)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING `+orderCols,
		o.ID, o.UserID, o.Status, o.PaymentStatus, o.CheckoutKey,
		o.TotalAmount, shipping, billing)

	created, err := scanOrder(row)
	if isUniqueViolation(err) {
		return Order{}, ErrDuplicateCheckout
	}
	if err != nil {
		return Order{}, err
	}

	for _, it := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)`,
			o.ID, it.ProductID, it.Quantity, it.UnitPrice)
		if err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return created, nil
}

// ErrDuplicateCheckout signals a checkout_key collision; the caller looks
// up the order created by the first request instead.
var ErrDuplicateCheckout = errors.New("checkout key already used")

// ByCheckoutKey resolves a previously created order for an idempotent
// checkout retry.
func (r *Repo) ByCheckoutKey(ctx context.Context, userID, key string) (Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders
		WHERE user_id = $1 AND checkout_key = $2`, userID, key)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order")
	}
	return o, err
}

func (r *Repo) Get(ctx context.Context, id string) (OrderWithItems, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderWithItems{}, apperr.NotFound("order")
	}
	if err != nil {
		return OrderWithItems{}, err
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return OrderWithItems{}, err
	}
	return OrderWithItems{Order: o, Items: items}, nil
}

// List returns orders newest first, with items. userID == "" lists every
// order (admin); items are fetched per order, acceptable at storefront
// volume.
func (r *Repo) List(ctx context.Context, userID string) ([]OrderWithItems, error) {
	q := `SELECT ` + orderCols + ` FROM orders ORDER BY created_at DESC`
	args := []any{}
	if userID != "" {
		q = `SELECT ` + orderCols + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
		args = append(args, userID)
	}
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ords []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		ords = append(ords, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := []OrderWithItems{}
	for _, o := range ords {
		items, err := r.items(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, OrderWithItems{Order: o, Items: items})
	}
	return out, nil
}

// UpdateStatus applies an admin status change, enforcing forward-only
// transitions against the current row under lock.
func (r *Repo) UpdateStatus(ctx context.Context, id string, to Status) (Order, error) {
	if !ValidStatus(to) {
		return Order{}, apperr.Validation("unknown status %q", to)
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order")
	}
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(from, to) {
		return Order{}, apperr.Validation("cannot move order from %s to %s", from, to)
	}

	row := tx.QueryRow(ctx, `UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 RETURNING `+orderCols, id, to)
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}
	return o, tx.Commit(ctx)
}

// MarkPaid finalizes a confirmed payment in one transaction: the order
// flips to paid/succeeded with the intent id stored, each line's stock is
// decremented, and the buyer's cart is cleared. A crash mid-sequence
// rolls the whole confirmation back.
func (r *Repo) MarkPaid(ctx context.Context, id, paymentIntentID string) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from Status
	var userID string
	err = tx.QueryRow(ctx, `SELECT status, user_id FROM orders WHERE id = $1 FOR UPDATE`, id).
		Scan(&from, &userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order")
	}
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(from, StatusPaid) {
		return Order{}, apperr.Validation("cannot move order from %s to %s", from, StatusPaid)
	}

	row := tx.QueryRow(ctx, `
		UPDATE orders SET status = $2, payment_status = $3, payment_intent_id = $4, updated_at = now()
		WHERE id = $1 RETURNING `+orderCols,
		id, StatusPaid, PaymentSucceeded, paymentIntentID)
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}

	// decrement stock per line, floored at zero: overselling between cart
	// and confirmation is tolerated, negative stock is not
	itemRows, err := tx.Query(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return Order{}, err
	}
	type line struct {
		productID int64
		qty       int
	}
	var lines []line
	for itemRows.Next() {
		var l line
		if err := itemRows.Scan(&l.productID, &l.qty); err != nil {
			itemRows.Close()
			return Order{}, err
		}
		lines = append(lines, l)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return Order{}, err
	}
	for _, l := range lines {
		_, err := tx.Exec(ctx, `UPDATE products SET stock = GREATEST(stock - $2, 0), updated_at = now()
			WHERE id = $1`, l.productID, l.qty)
		if err != nil {
			return Order{}, err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) items(ctx context.Context, orderID string) ([]ItemWithProduct, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price,
		       p.id, p.name, p.description, p.price, p.original_price, p.image_url,
		       p.stock, p.category_id, p.is_featured, p.is_active, p.created_at, p.updated_at
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ItemWithProduct{}
	for rows.Next() {
		var it ItemWithProduct
		var op decimal.NullDecimal
		err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice,
			&it.Product.ID, &it.Product.Name, &it.Product.Description, &it.Product.Price, &op,
			&it.Product.ImageURL, &it.Product.Stock, &it.Product.CategoryID,
			&it.Product.IsFeatured, &it.Product.IsActive, &it.Product.CreatedAt, &it.Product.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if op.Valid {
			it.Product.OriginalPrice = &op.Decimal
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var intentID, checkoutKey *string
	var shipping, billing []byte
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.PaymentStatus, &intentID, &checkoutKey,
		&o.TotalAmount, &shipping, &billing, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if intentID != nil {
		o.PaymentIntentID = *intentID
	}
	if checkoutKey != nil {
		o.CheckoutKey = *checkoutKey
	}
	_ = json.Unmarshal(shipping, &o.ShippingAddress)
	_ = json.Unmarshal(billing, &o.BillingAddress)
	return o, nil
}

func mustAddr(a Address) []byte {
	b, err := json.Marshal(a)
	if err != nil {
		panic(err)
	}
	return b
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
