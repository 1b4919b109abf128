package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, description, price, original_price, image_url,
	stock, category_id, is_featured, is_active, created_at, updated_at`

// --- categories ---

func (r *Repo) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, slug, description, created_at
		FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type CategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (in CategoryInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("category name is required")
	}
	if strings.TrimSpace(in.Slug) == "" {
		return apperr.Validation("category slug is required")
	}
	return nil
}

func (r *Repo) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	if err := in.validate(); err != nil {
		return Category{}, err
	}
	row := r.DB.QueryRow(ctx, `INSERT INTO categories (name, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id, name, slug, description, created_at`,
		in.Name, in.Slug, in.Description)

	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt)
	if isUniqueViolation(err) {
		return Category{}, apperr.Validation("slug %q already exists", in.Slug)
	}
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

type CategoryPatch struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (r *Repo) UpdateCategory(ctx context.Context, id int64, p CategoryPatch) (Category, error) {
	sets, args := patchSQL(map[string]any{
		"name":        strPtrArg(p.Name),
		"slug":        strPtrArg(p.Slug),
		"description": strPtrArg(p.Description),
	})
	if len(sets) == 0 {
		return Category{}, apperr.Validation("no fields to update")
	}
	args = append(args, id)
	row := r.DB.QueryRow(ctx, fmt.Sprintf(`UPDATE categories SET %s WHERE id = $%d
		RETURNING id, name, slug, description, created_at`,
		strings.Join(sets, ", "), len(args)), args...)

	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, apperr.NotFound("category")
	}
	if isUniqueViolation(err) {
		return Category{}, apperr.Validation("slug already exists")
	}
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

func (r *Repo) DeleteCategory(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("category")
	}
	return nil
}

// --- products ---

// Products returns one page of products matching the filter plus the
// total match count ignoring limit/offset.
func (r *Repo) Products(ctx context.Context, f Filter) (Page, error) {
	where, whereArgs := f.whereSQL()
	page, pageArgs := f.pageSQL(len(whereArgs))

	rows, err := r.DB.Query(ctx,
		`SELECT `+productCols+` FROM products`+where+page,
		append(append([]any{}, whereArgs...), pageArgs...)...)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	out := Page{Products: []Product{}}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return Page{}, err
		}
		out.Products = append(out.Products, p)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}

	err = r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, whereArgs...).Scan(&out.Total)
	if err != nil {
		return Page{}, err
	}
	return out, nil
}

func (r *Repo) Product(ctx context.Context, id int64) (Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product")
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) ProductWithCategory(ctx context.Context, id int64) (ProductWithCategory, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT p.id, p.name, p.description, p.price, p.original_price, p.image_url,
		       p.stock, p.category_id, p.is_featured, p.is_active, p.created_at, p.updated_at,
		       c.id, c.name, c.slug, c.description, c.created_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`, id)

	var p ProductWithCategory
	var op decimal.NullDecimal
	var cID *int64
	var cName, cSlug, cDesc *string
	var cCreated *time.Time
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &op, &p.ImageURL,
		&p.Stock, &p.CategoryID, &p.IsFeatured, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		&cID, &cName, &cSlug, &cDesc, &cCreated)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductWithCategory{}, apperr.NotFound("product")
	}
	if err != nil {
		return ProductWithCategory{}, err
	}
	if op.Valid {
		p.OriginalPrice = &op.Decimal
	}
	if cID != nil {
		p.Category = &Category{ID: *cID, Name: *cName, Slug: *cSlug, Description: *cDesc, CreatedAt: *cCreated}
	}
	return p, nil
}

type ProductInput struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	ImageURL      string           `json:"imageUrl"`
	Stock         int              `json:"stock"`
	CategoryID    *int64           `json:"categoryId"`
	IsFeatured    bool             `json:"isFeatured"`
	IsActive      *bool            `json:"isActive"`
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("product name is required")
	}
	if in.Price.IsNegative() || in.Price.IsZero() {
		return apperr.Validation("product price must be positive")
	}
	if in.Stock < 0 {
		return apperr.Validation("product stock cannot be negative")
	}
	return nil
}

func (r *Repo) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := in.validate(); err != nil {
		return Product{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	row := r.DB.QueryRow(ctx, `INSERT INTO products
		(name, description, price, original_price, image_url, stock, category_id, is_featured, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+productCols,
		in.Name, in.Description, in.Price, nullDecimal(in.OriginalPrice),
		in.ImageURL, in.Stock, in.CategoryID, in.IsFeatured, active)

	p, err := scanProduct(row)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

type ProductPatch struct {
	Name          *string          `json:"name,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	ImageURL      *string          `json:"imageUrl,omitempty"`
	Stock         *int             `json:"stock,omitempty"`
	CategoryID    *int64           `json:"categoryId,omitempty"`
	IsFeatured    *bool            `json:"isFeatured,omitempty"`
	IsActive      *bool            `json:"isActive,omitempty"`
}

func (r *Repo) UpdateProduct(ctx context.Context, id int64, p ProductPatch) (Product, error) {
	if p.Price != nil && !p.Price.IsPositive() {
		return Product{}, apperr.Validation("product price must be positive")
	}
	if p.Stock != nil && *p.Stock < 0 {
		return Product{}, apperr.Validation("product stock cannot be negative")
	}
	fields := map[string]any{}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Price != nil {
		fields["price"] = *p.Price
	}
	if p.OriginalPrice != nil {
		fields["original_price"] = *p.OriginalPrice
	}
	if p.ImageURL != nil {
		fields["image_url"] = *p.ImageURL
	}
	if p.Stock != nil {
		fields["stock"] = *p.Stock
	}
	if p.CategoryID != nil {
		fields["category_id"] = *p.CategoryID
	}
	if p.IsFeatured != nil {
		fields["is_featured"] = *p.IsFeatured
	}
	if p.IsActive != nil {
		fields["is_active"] = *p.IsActive
	}
	sets, args := patchSQL(fields)
	if len(sets) == 0 {
		return Product{}, apperr.Validation("no fields to update")
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	row := r.DB.QueryRow(ctx, fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING `+productCols,
		strings.Join(sets, ", "), len(args)), args...)

	prod, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product")
	}
	if err != nil {
		return Product{}, err
	}
	return prod, nil
}

func (r *Repo) DeleteProduct(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product")
	}
	return nil
}

// --- scan helpers ---

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var op decimal.NullDecimal
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &op, &p.ImageURL,
		&p.Stock, &p.CategoryID, &p.IsFeatured, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if op.Valid {
		p.OriginalPrice = &op.Decimal
	}
	return p, nil
}

// patchSQL renders "col = $n" assignments for the non-nil fields, keeping
// placeholder numbering stable for the trailing WHERE argument.
func patchSQL(fields map[string]any) ([]string, []any) {
	// deterministic order keeps queries reproducible in logs
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, fields[k])
		sets = append(sets, fmt.Sprintf("%s = $%d", k, len(args)))
	}
	return sets, args
}

func strPtrArg(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
