package service

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatokart/storefront/cart/pkg/response"
	"github.com/mercatokart/storefront/internal/repository"
)

// taxRate is the flat storefront tax policy applied to every order.
var taxRate = decimal.NewFromFloat(0.02)

// variationKey canonicalizes a variation set into its ordered-by-id
// representation: lowercase uuids sorted and joined by a comma. Two
// lines carry an equal variation set exactly when their keys are equal;
// the empty set maps to the empty string.
func variationKey(variations []repository.Variation) string {
	if len(variations) == 0 {
		return ""
	}
	ids := make([]string, 0, len(variations))
	seen := map[uuid.UUID]struct{}{}
	for _, v := range variations {
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		ids = append(ids, strings.ToLower(v.ID.String()))
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// taxOf applies the flat tax to a subtotal, rounding half-up to the
// smallest currency unit.
func taxOf(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(taxRate).Round(0).IntPart()
}

// computeTotals derives the pricing record from a cart's active line
// amounts.
func computeTotals(amounts []repository.FindActiveLineAmountsRow) response.CartTotals {
	var subtotal int64
	var quantity int32
	for _, a := range amounts {
		subtotal += a.Price * int64(a.Quantity)
		quantity += a.Quantity
	}
	tax := taxOf(subtotal)
	return response.CartTotals{
		Subtotal:      subtotal,
		Tax:           tax,
		GrandTotal:    subtotal + tax,
		TotalQuantity: quantity,
	}
}
