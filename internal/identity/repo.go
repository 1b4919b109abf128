package identity

import (
	"context"
	"errors"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// Upsert writes the user row the identity provider asserted. Called on
// every login callback, so an existing row just gets refreshed.
func (r *Repo) Upsert(ctx context.Context, u User) (User, error) {
	role := u.Role
	if role == "" {
		role = RoleCustomer
	}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO users (id, email, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    updated_at = now()
		RETURNING id, email, first_name, last_name, role, created_at, updated_at`,
		u.ID, u.Email, u.FirstName, u.LastName, role)

	var out User
	err := row.Scan(&out.ID, &out.Email, &out.FirstName, &out.LastName, &out.Role, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id string) (User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, role, created_at, updated_at
		FROM users WHERE id = $1`, id)

	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user")
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
