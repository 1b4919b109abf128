package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestQuoteFlatShippingAtThreshold(t *testing.T) {
	// 2 x 50.00 = 100.00 exactly; threshold is strict, so flat rate applies.
	q := DefaultRates().QuoteLines([]Line{{UnitPrice: d("50.00"), Quantity: 2}})

	assert.True(t, q.Subtotal.Equal(d("100.00")), "subtotal %s", q.Subtotal)
	assert.True(t, q.Shipping.Equal(d("9.99")), "shipping %s", q.Shipping)
	assert.True(t, q.Tax.Equal(d("8.00")), "tax %s", q.Tax)
	assert.True(t, q.Total.Equal(d("117.99")), "total %s", q.Total)
}

func TestQuoteFreeShippingAboveThreshold(t *testing.T) {
	q := DefaultRates().QuoteLines([]Line{{UnitPrice: d("60.00"), Quantity: 2}})

	assert.True(t, q.Subtotal.Equal(d("120.00")), "subtotal %s", q.Subtotal)
	assert.True(t, q.Shipping.Equal(d("0")), "shipping %s", q.Shipping)
	assert.True(t, q.Tax.Equal(d("9.60")), "tax %s", q.Tax)
	assert.True(t, q.Total.Equal(d("129.60")), "total %s", q.Total)
}

func TestQuoteThresholdIsStrictlyGreater(t *testing.T) {
	assert.True(t, DefaultRates().QuoteSubtotal(d("100.00")).Shipping.Equal(d("9.99")))
	assert.True(t, DefaultRates().QuoteSubtotal(d("100.01")).Shipping.Equal(d("0")))
}

func TestQuoteTaxRoundsToCents(t *testing.T) {
	// 10.37 * 0.08 = 0.8296 -> 0.83
	q := DefaultRates().QuoteSubtotal(d("10.37"))
	assert.True(t, q.Tax.Equal(d("0.83")), "tax %s", q.Tax)
	assert.True(t, q.Total.Equal(d("21.19")), "total %s", q.Total)
}

func TestSubtotalSumsLines(t *testing.T) {
	lines := []Line{
		{UnitPrice: d("19.99"), Quantity: 3},
		{UnitPrice: d("0.01"), Quantity: 1},
	}
	assert.True(t, Subtotal(lines).Equal(d("59.98")))
}

func TestQuoteEmptyCartIsZero(t *testing.T) {
	q := DefaultRates().QuoteLines(nil)
	assert.True(t, q.Subtotal.IsZero())
	assert.True(t, q.Tax.IsZero())
	// still charges flat shipping on paper; callers reject empty carts before quoting
	assert.True(t, q.Shipping.Equal(d("9.99")))
}
