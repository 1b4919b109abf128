package cart

import (
	"testing"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestStockCheck(t *testing.T) {
	cases := []struct {
		name      string
		active    bool
		stock     int
		inCart    int
		requested int
		wantKind  apperr.Kind
	}{
		{"first add within stock", true, 5, 0, 5, apperr.KindUnknown},
		{"repeat add within stock", true, 5, 2, 3, apperr.KindUnknown},
		{"first add over stock", true, 5, 0, 6, apperr.KindValidation},
		{"repeat add creeping past stock", true, 5, 4, 2, apperr.KindValidation},
		{"inactive product", false, 5, 0, 1, apperr.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := stockCheck(tc.active, tc.stock, tc.inCart, tc.requested)
			if tc.wantKind == apperr.KindUnknown {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tc.wantKind, apperr.KindOf(err))
		})
	}
}
