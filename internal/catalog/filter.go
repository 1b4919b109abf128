package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Filter narrows a product listing. All supplied predicates apply
// conjunctively; the zero value lists every active product.
type Filter struct {
	CategoryID      *int64
	Search          string // case-sensitive substring on name
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	FeaturedOnly    bool
	IncludeInactive bool // admin listings only
	Limit           int
	Offset          int
}

// whereSQL renders the WHERE clause with placeholders numbered from 1.
// Kept separate from the repo so the composition rules are testable
// without a database.
func (f Filter) whereSQL() (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CategoryID != nil {
		conds = append(conds, "category_id = "+arg(*f.CategoryID))
	}
	if f.Search != "" {
		conds = append(conds, "name LIKE "+arg("%"+f.Search+"%"))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}
	if f.FeaturedOnly {
		conds = append(conds, "is_featured = true")
	}
	if !f.IncludeInactive {
		conds = append(conds, "is_active = true")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// pageSQL appends ordering and pagination. Limit <= 0 means no limit.
func (f Filter) pageSQL(argOffset int) (string, []any) {
	sql := " ORDER BY created_at DESC"
	var args []any
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", argOffset+len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", argOffset+len(args))
	}
	return sql, args
}
