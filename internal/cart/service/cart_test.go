package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercatokart/storefront/cart/pkg/request"
	inErrors "github.com/mercatokart/storefront/internal/errors"
)

var (
	toteId    = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	mugId     = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	retiredId = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	shopperId = uuid.MustParse("99999999-9999-9999-9999-999999999999")
	unknownId = uuid.MustParse("44444444-4444-4444-4444-444444444444")
)

func TestAddItemMergesEqualVariationSets(t *testing.T) {
	c := context.Background()
	pool, pgContainer, queries, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()

	err := cartService.AddItem(c, request.AddItem{
		CartKey:   cartKey,
		ProductId: toteId,
		Selectors: map[string]string{"Size": "Small", "Color": "Red"},
	})
	require.NoError(t, err)

	// Same set, different casing and map order.
	err = cartService.AddItem(c, request.AddItem{
		CartKey:   cartKey,
		ProductId: toteId,
		Selectors: map[string]string{"color": "red", "size": "small"},
	})
	require.NoError(t, err)

	cart, err := queries.FindCartByKey(c, cartKey)
	require.NoError(t, err)
	lines, err := queries.FindActiveLinesByCartId(c, cart.ID)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.EqualValues(t, 2, lines[0].Quantity)
	assert.NotEmpty(t, lines[0].VariationKey)
}

func TestAddItemKeepsDistinctVariationSetsApart(t *testing.T) {
	c := context.Background()
	pool, pgContainer, queries, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()

	err := cartService.AddItem(c, request.AddItem{
		CartKey:   cartKey,
		ProductId: toteId,
		Selectors: map[string]string{"size": "small"},
	})
	require.NoError(t, err)

	err = cartService.AddItem(c, request.AddItem{
		CartKey:   cartKey,
		ProductId: toteId,
		Selectors: map[string]string{"size": "large"},
	})
	require.NoError(t, err)

	cart, err := queries.FindCartByKey(c, cartKey)
	require.NoError(t, err)
	lines, err := queries.FindActiveLinesByCartId(c, cart.ID)
	require.NoError(t, err)

	require.Len(t, lines, 2)
	assert.EqualValues(t, 1, lines[0].Quantity)
	assert.EqualValues(t, 1, lines[1].Quantity)
	assert.NotEqual(t, lines[0].VariationKey, lines[1].VariationKey)
}

func TestAddItemDropsUnmatchedSelectors(t *testing.T) {
	c := context.Background()
	pool, pgContainer, queries, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()

	// material=wool names no variation of the tote, so the resolved
	// set is just size=small and the add still succeeds.
	err := cartService.AddItem(c, request.AddItem{
		CartKey:   cartKey,
		ProductId: toteId,
		Selectors: map[string]string{"size": "small", "material": "wool"},
	})
	require.NoError(t, err)

	err = cartService.AddItem(c, request.AddItem{
		CartKey:   cartKey,
		ProductId: toteId,
		Selectors: map[string]string{"size": "small"},
	})
	require.NoError(t, err)

	cart, err := queries.FindCartByKey(c, cartKey)
	require.NoError(t, err)
	lines, err := queries.FindActiveLinesByCartId(c, cart.ID)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.EqualValues(t, 2, lines[0].Quantity)
}

func TestAddItemRejectsMissingAndUnavailableProducts(t *testing.T) {
	c := context.Background()
	pool, pgContainer, _, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	err := cartService.AddItem(c, request.AddItem{
		CartKey:   uuid.NewString(),
		ProductId: unknownId,
	})
	assert.ErrorIs(t, err, inErrors.ErrProductNotFound)

	err = cartService.AddItem(c, request.AddItem{
		CartKey:   uuid.NewString(),
		ProductId: retiredId,
	})
	assert.ErrorIs(t, err, inErrors.ErrProductUnavailable)
}

func TestDecrementDeletesLineAtFloor(t *testing.T) {
	c := context.Background()
	pool, pgContainer, queries, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()
	for range 3 {
		err := cartService.AddItem(c, request.AddItem{CartKey: cartKey, ProductId: mugId})
		require.NoError(t, err)
	}

	cart, err := queries.FindCartByKey(c, cartKey)
	require.NoError(t, err)
	lines, err := queries.FindActiveLinesByCartId(c, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.EqualValues(t, 3, lines[0].Quantity)

	decrement := request.Decrement{CartKey: cartKey, ProductId: mugId, LineId: lines[0].ID}

	err = cartService.Decrement(c, decrement)
	require.NoError(t, err)
	lines, err = queries.FindActiveLinesByCartId(c, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.EqualValues(t, 2, lines[0].Quantity)

	err = cartService.Decrement(c, decrement)
	require.NoError(t, err)
	err = cartService.Decrement(c, decrement)
	require.NoError(t, err)

	// Quantity reached the floor: the line is gone, not at zero.
	lines, err = queries.FindActiveLinesByCartId(c, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestDecrementSurfacesNotFound(t *testing.T) {
	c := context.Background()
	pool, pgContainer, queries, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	err := cartService.Decrement(c, request.Decrement{
		CartKey:   uuid.NewString(),
		ProductId: mugId,
		LineId:    uuid.New(),
	})
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)

	cartKey := uuid.NewString()
	err = cartService.AddItem(c, request.AddItem{CartKey: cartKey, ProductId: mugId})
	require.NoError(t, err)

	err = cartService.Decrement(c, request.Decrement{
		CartKey:   cartKey,
		ProductId: mugId,
		LineId:    uuid.New(),
	})
	assert.ErrorIs(t, err, inErrors.ErrCartLineNotFound)

	// A line on the right cart but addressed with the wrong product is
	// not found either.
	cart, err := queries.FindCartByKey(c, cartKey)
	require.NoError(t, err)
	lines, err := queries.FindActiveLinesByCartId(c, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	err = cartService.Decrement(c, request.Decrement{
		CartKey:   cartKey,
		ProductId: toteId,
		LineId:    lines[0].ID,
	})
	assert.ErrorIs(t, err, inErrors.ErrCartLineNotFound)
}

func TestRemoveLineDeletesRegardlessOfQuantity(t *testing.T) {
	c := context.Background()
	pool, pgContainer, queries, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()
	for range 5 {
		err := cartService.AddItem(c, request.AddItem{CartKey: cartKey, ProductId: mugId})
		require.NoError(t, err)
	}

	cart, err := queries.FindCartByKey(c, cartKey)
	require.NoError(t, err)
	lines, err := queries.FindActiveLinesByCartId(c, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.EqualValues(t, 5, lines[0].Quantity)

	err = cartService.RemoveLine(c, request.RemoveLine{
		CartKey:   cartKey,
		ProductId: mugId,
		LineId:    lines[0].ID,
	})
	require.NoError(t, err)

	lines, err = queries.FindActiveLinesByCartId(c, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	err = cartService.RemoveLine(c, request.RemoveLine{
		CartKey:   cartKey,
		ProductId: mugId,
		LineId:    uuid.New(),
	})
	assert.ErrorIs(t, err, inErrors.ErrCartLineNotFound)
}

func TestComputeTotalsAppliesFlatTax(t *testing.T) {
	c := context.Background()
	pool, pgContainer, _, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()
	for range 3 {
		err := cartService.AddItem(c, request.AddItem{
			CartKey:   cartKey,
			ProductId: toteId,
			Selectors: map[string]string{"size": "small"},
		})
		require.NoError(t, err)
	}
	err := cartService.AddItem(c, request.AddItem{CartKey: cartKey, ProductId: mugId})
	require.NoError(t, err)

	totals, err := cartService.ComputeTotals(c, request.CartRef{CartKey: cartKey})
	require.NoError(t, err)

	// 3 x 1000 + 1 x 2550 = 5550; 2% of 5550 = 111.
	assert.EqualValues(t, 5550, totals.Subtotal)
	assert.EqualValues(t, 111, totals.Tax)
	assert.EqualValues(t, 5661, totals.GrandTotal)
	assert.EqualValues(t, 4, totals.TotalQuantity)
}

func TestComputeTotalsReturnsZeroForMissingCart(t *testing.T) {
	c := context.Background()
	pool, pgContainer, _, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	totals, err := cartService.ComputeTotals(c, request.CartRef{CartKey: uuid.NewString()})
	require.NoError(t, err)

	assert.EqualValues(t, 0, totals.Subtotal)
	assert.EqualValues(t, 0, totals.Tax)
	assert.EqualValues(t, 0, totals.GrandTotal)
	assert.EqualValues(t, 0, totals.TotalQuantity)
}

func TestMergeOnLoginTransfersAndCombines(t *testing.T) {
	c := context.Background()
	pool, pgContainer, queries, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	// First session: a single small tote, merged on an earlier login.
	firstKey := uuid.NewString()
	err := cartService.AddItem(c, request.AddItem{
		CartKey:   firstKey,
		ProductId: toteId,
		Selectors: map[string]string{"size": "small"},
	})
	require.NoError(t, err)
	err = cartService.MergeOnLogin(c, firstKey, shopperId)
	require.NoError(t, err)

	// Second session: two small totes and a mug.
	secondKey := uuid.NewString()
	for range 2 {
		err = cartService.AddItem(c, request.AddItem{
			CartKey:   secondKey,
			ProductId: toteId,
			Selectors: map[string]string{"size": "small"},
		})
		require.NoError(t, err)
	}
	err = cartService.AddItem(c, request.AddItem{CartKey: secondKey, ProductId: mugId})
	require.NoError(t, err)

	err = cartService.MergeOnLogin(c, secondKey, shopperId)
	require.NoError(t, err)

	userCart, err := queries.FindCartByUserId(c, shopperId)
	require.NoError(t, err)
	lines, err := queries.FindActiveLinesByCartId(c, userCart.ID)
	require.NoError(t, err)

	require.Len(t, lines, 2)
	byProduct := map[uuid.UUID]int32{}
	for _, line := range lines {
		byProduct[line.ProductID] = line.Quantity
	}
	assert.EqualValues(t, 3, byProduct[toteId])
	assert.EqualValues(t, 1, byProduct[mugId])
}

func TestMergeOnLoginIsOneShot(t *testing.T) {
	c := context.Background()
	pool, pgContainer, queries, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()
	err := cartService.AddItem(c, request.AddItem{CartKey: cartKey, ProductId: mugId})
	require.NoError(t, err)

	err = cartService.MergeOnLogin(c, cartKey, shopperId)
	require.NoError(t, err)
	// Retrying the merge observes the marker and changes nothing.
	err = cartService.MergeOnLogin(c, cartKey, shopperId)
	require.ErrorIs(t, err, inErrors.ErrCartAlreadyMerged)

	userCart, err := queries.FindCartByUserId(c, shopperId)
	require.NoError(t, err)
	lines, err := queries.FindActiveLinesByCartId(c, userCart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.EqualValues(t, 1, lines[0].Quantity)
}

func TestMergeOnLoginWithoutCartIsNoOp(t *testing.T) {
	c := context.Background()
	pool, pgContainer, _, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	err := cartService.MergeOnLogin(c, uuid.NewString(), shopperId)
	assert.NoError(t, err)

	err = cartService.MergeOnLogin(c, "", shopperId)
	assert.NoError(t, err)
}

func TestAddItemAfterMergeStartsFreshCart(t *testing.T) {
	c := context.Background()
	pool, pgContainer, queries, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()
	err := cartService.AddItem(c, request.AddItem{CartKey: cartKey, ProductId: mugId})
	require.NoError(t, err)
	err = cartService.MergeOnLogin(c, cartKey, shopperId)
	require.NoError(t, err)

	// The session keeps its key; adding again opens a new live cart
	// instead of resurrecting the merged one.
	err = cartService.AddItem(c, request.AddItem{CartKey: cartKey, ProductId: toteId})
	require.NoError(t, err)

	cart, err := queries.FindCartByKey(c, cartKey)
	require.NoError(t, err)
	lines, err := queries.FindActiveLinesByCartId(c, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, toteId, lines[0].ProductID)
}

func TestAddItemSerializesConcurrentWriters(t *testing.T) {
	c := context.Background()
	pool, pgContainer, queries, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()
	const writers = 8

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- cartService.AddItem(c, request.AddItem{
				CartKey:   cartKey,
				ProductId: toteId,
				Selectors: map[string]string{"size": "small"},
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// The row lock serializes the writers: one line, no lost increment.
	cart, err := queries.FindCartByKey(c, cartKey)
	require.NoError(t, err)
	lines, err := queries.FindActiveLinesByCartId(c, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.EqualValues(t, writers, lines[0].Quantity)
}

func TestFindCartShowsMergedLinesAfterLogin(t *testing.T) {
	c := context.Background()
	pool, pgContainer, _, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()
	err := cartService.AddItem(c, request.AddItem{CartKey: cartKey, ProductId: mugId})
	require.NoError(t, err)
	err = cartService.AddItem(c, request.AddItem{
		CartKey:   cartKey,
		ProductId: toteId,
		Selectors: map[string]string{"size": "small"},
	})
	require.NoError(t, err)

	err = cartService.MergeOnLogin(c, cartKey, shopperId)
	require.NoError(t, err)

	// An authenticated request resolves the user cart, where the merged
	// lines now live.
	cart, err := cartService.FindCart(c, request.CartRef{CartKey: cartKey, UserId: shopperId})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	assert.EqualValues(t, 3550, cart.Totals.Subtotal)
	assert.EqualValues(t, 71, cart.Totals.Tax)
	assert.EqualValues(t, 3621, cart.Totals.GrandTotal)

	totals, err := cartService.ComputeTotals(c, request.CartRef{CartKey: cartKey, UserId: shopperId})
	require.NoError(t, err)
	assert.EqualValues(t, 3550, totals.Subtotal)

	// Logged out, the same session key no longer sees the merged cart.
	cart, err = cartService.FindCart(c, request.CartRef{CartKey: cartKey})
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestCheckoutIncludesPostLoginAdds(t *testing.T) {
	c := context.Background()
	pool, pgContainer, _, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()
	err := cartService.AddItem(c, request.AddItem{CartKey: cartKey, ProductId: mugId})
	require.NoError(t, err)
	err = cartService.MergeOnLogin(c, cartKey, shopperId)
	require.NoError(t, err)

	// Added while logged in: the item lands on the user cart, not on a
	// fresh anonymous cart for the session key.
	err = cartService.AddItem(c, request.AddItem{
		CartKey:   cartKey,
		UserId:    shopperId,
		ProductId: toteId,
	})
	require.NoError(t, err)

	order, err := cartService.Checkout(c, request.Checkout{UserId: shopperId})
	require.NoError(t, err)

	// 2550 + 1000 = 3550; 2% of 3550 = 71.
	require.Len(t, order.Lines, 2)
	assert.EqualValues(t, 3550, order.Subtotal)
	assert.EqualValues(t, 71, order.Tax)
	assert.EqualValues(t, 3621, order.GrandTotal)
}

func TestCheckoutSnapshotsCartIntoOrder(t *testing.T) {
	c := context.Background()
	pool, pgContainer, queries, cartService := setup(t)(c)
	defer teardown(t)(pool, pgContainer)

	cartKey := uuid.NewString()
	for range 2 {
		err := cartService.AddItem(c, request.AddItem{CartKey: cartKey, ProductId: mugId})
		require.NoError(t, err)
	}
	err := cartService.MergeOnLogin(c, cartKey, shopperId)
	require.NoError(t, err)

	order, err := cartService.Checkout(c, request.Checkout{UserId: shopperId})
	require.NoError(t, err)

	// 2 x 2550 = 5100; 2% of 5100 = 102.
	assert.EqualValues(t, 5100, order.Subtotal)
	assert.EqualValues(t, 102, order.Tax)
	assert.EqualValues(t, 5202, order.GrandTotal)
	require.Len(t, order.Lines, 1)
	assert.EqualValues(t, 2, order.Lines[0].Quantity)

	// Stock went down and the cart is empty again.
	mug, err := queries.FindProductById(c, mugId)
	require.NoError(t, err)
	assert.EqualValues(t, 48, mug.Stock)

	_, err = cartService.Checkout(c, request.Checkout{UserId: shopperId})
	assert.ErrorIs(t, err, inErrors.ErrCartEmpty)
}
