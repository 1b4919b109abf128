package cart

import (
	"context"
	"errors"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

// Add merges into an existing row for (user, product) by incrementing its
// quantity atomically at the store; concurrent adds cannot lose an
// increment. A new product inserts a fresh row.
func (r *Repo) Add(ctx context.Context, userID string, productID int64, quantity int) (Item, error) {
	if quantity < 1 {
		return Item{}, apperr.Validation("quantity must be at least 1")
	}

	var active bool
	var stock, inCart int
	err := r.DB.QueryRow(ctx, `
		SELECT p.is_active, p.stock, COALESCE(ci.quantity, 0)
		FROM products p
		LEFT JOIN cart_items ci ON ci.product_id = p.id AND ci.user_id = $2
		WHERE p.id = $1`, productID, userID).
		Scan(&active, &stock, &inCart)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, apperr.NotFound("product")
	}
	if err != nil {
		return Item{}, err
	}
	if err := stockCheck(active, stock, inCart, quantity); err != nil {
		return Item{}, err
	}

	row := r.DB.QueryRow(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING id, user_id, product_id, quantity, created_at, updated_at`,
		userID, productID, quantity)
	return scanItem(row)
}

// stockCheck validates an add against on-hand stock, counting what the
// line already holds so repeated adds are bounded the same way a single
// add is. Stock is checked, never reserved; concurrent carts may still
// oversell until the order is placed.
func stockCheck(active bool, stock, inCart, requested int) error {
	if !active {
		return apperr.Validation("product is not available")
	}
	if stock < inCart+requested {
		return apperr.Validation("only %d in stock", stock)
	}
	return nil
}

// UpdateQuantity sets the quantity directly. Quantity <= 0 is rejected
// here; the API layer turns such requests into a removal.
func (r *Repo) UpdateQuantity(ctx context.Context, id int64, quantity int) (Item, error) {
	if quantity < 1 {
		return Item{}, apperr.Validation("quantity must be at least 1")
	}
	row := r.DB.QueryRow(ctx, `
		UPDATE cart_items SET quantity = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, user_id, product_id, quantity, created_at, updated_at`,
		id, quantity)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, apperr.NotFound("cart item")
	}
	return it, err
}

func (r *Repo) Remove(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("cart item")
	}
	return nil
}

func (r *Repo) Clear(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

// Items returns the user's cart rows joined with their product, newest
// first. An empty cart is an empty slice, not an error.
func (r *Repo) Items(ctx context.Context, userID string) ([]ItemWithProduct, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		       p.id, p.name, p.description, p.price, p.original_price, p.image_url,
		       p.stock, p.category_id, p.is_featured, p.is_active, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ItemWithProduct{}
	for rows.Next() {
		var it ItemWithProduct
		var op decimal.NullDecimal
		err := rows.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt,
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

// Owner reports which user a cart row belongs to, so handlers can refuse
// cross-user mutations.
func (r *Repo) Owner(ctx context.Context, id int64) (string, error) {
	var userID string
	err := r.DB.QueryRow(ctx, `SELECT user_id FROM cart_items WHERE id = $1`, id).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("cart item")
	}
	return userID, err
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}
