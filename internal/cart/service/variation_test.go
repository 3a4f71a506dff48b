package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mercatokart/storefront/internal/repository"
)

func TestVariationKeyIsOrderIndependent(t *testing.T) {
	red := repository.Variation{ID: uuid.MustParse("bbbbbbb1-0000-0000-0000-000000000001")}
	small := repository.Variation{ID: uuid.MustParse("aaaaaaa1-0000-0000-0000-000000000001")}

	a := variationKey([]repository.Variation{red, small})
	b := variationKey([]repository.Variation{small, red})

	assert.Equal(t, a, b)
	assert.Equal(
		t,
		"aaaaaaa1-0000-0000-0000-000000000001,bbbbbbb1-0000-0000-0000-000000000001",
		a,
	)
}

func TestVariationKeyDeduplicates(t *testing.T) {
	small := repository.Variation{ID: uuid.MustParse("aaaaaaa1-0000-0000-0000-000000000001")}

	key := variationKey([]repository.Variation{small, small})

	assert.Equal(t, "aaaaaaa1-0000-0000-0000-000000000001", key)
}

func TestVariationKeyEmptySet(t *testing.T) {
	assert.Equal(t, "", variationKey(nil))
	assert.Equal(t, "", variationKey([]repository.Variation{}))
}

func TestComputeTotalsRoundsTaxHalfUp(t *testing.T) {
	tests := []struct {
		name     string
		amounts  []repository.FindActiveLineAmountsRow
		subtotal int64
		tax      int64
	}{
		{
			name:     "empty cart",
			amounts:  nil,
			subtotal: 0,
			tax:      0,
		},
		{
			name: "exact",
			amounts: []repository.FindActiveLineAmountsRow{
				{Quantity: 1, Price: 5550},
			},
			subtotal: 5550,
			tax:      111,
		},
		{
			name: "half rounds up",
			amounts: []repository.FindActiveLineAmountsRow{
				{Quantity: 1, Price: 1075},
			},
			subtotal: 1075,
			tax:      22,
		},
		{
			name: "below half rounds down",
			amounts: []repository.FindActiveLineAmountsRow{
				{Quantity: 1, Price: 1060},
			},
			subtotal: 1060,
			tax:      21,
		},
		{
			name: "multiple lines",
			amounts: []repository.FindActiveLineAmountsRow{
				{Quantity: 3, Price: 1000},
				{Quantity: 1, Price: 2550},
			},
			subtotal: 5550,
			tax:      111,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := computeTotals(tt.amounts)

			assert.EqualValues(t, tt.subtotal, totals.Subtotal)
			assert.EqualValues(t, tt.tax, totals.Tax)
			assert.EqualValues(t, tt.subtotal+tt.tax, totals.GrandTotal)
		})
	}
}
