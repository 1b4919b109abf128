package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL DEFAULT 'customer',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		slug        TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id             BIGSERIAL PRIMARY KEY,
		name           TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		price          NUMERIC(10,2) NOT NULL,
		original_price NUMERIC(10,2),
		image_url      TEXT NOT NULL DEFAULT '',
		stock          INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		category_id    BIGINT REFERENCES categories(id),
		is_featured    BOOLEAN NOT NULL DEFAULT false,
		is_active      BOOLEAN NOT NULL DEFAULT true,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_created ON products(created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id         BIGSERIAL PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity   INT NOT NULL CHECK (quantity >= 1),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL REFERENCES users(id),
		status            TEXT NOT NULL DEFAULT 'pending',
		payment_status    TEXT NOT NULL DEFAULT 'pending',
		payment_intent_id TEXT,
		checkout_key      TEXT UNIQUE,
		total_amount      NUMERIC(10,2) NOT NULL,
		shipping_address  JSONB NOT NULL DEFAULT '{}',
		billing_address   JSONB NOT NULL DEFAULT '{}',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id         BIGSERIAL PRIMARY KEY,
		order_id   TEXT NOT NULL REFERENCES orders(id),
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity   INT NOT NULL CHECK (quantity >= 1),
		unit_price NUMERIC(10,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
}

// EnsureSchema creates the storefront tables if they do not exist yet.
// Intended for local and demo setups; production deploys run migrations
// out of band and start the API with ENSURE_SCHEMA=false.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
