package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCents(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"117.99", 11799},
		{"129.60", 12960},
		{"0.01", 1},
		{"100", 10000},
		{"19.995", 2000}, // rounds half up at the cent boundary
	}
	for _, c := range cases {
		got := Cents(decimal.RequireFromString(c.amount))
		assert.Equal(t, c.want, got, "amount %s", c.amount)
	}
}
