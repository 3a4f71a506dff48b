package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mercatokart/storefront/internal/cart/otel"
	"github.com/mercatokart/storefront/cart/pkg/request"
	"github.com/mercatokart/storefront/cart/pkg/response"
	inErrors "github.com/mercatokart/storefront/internal/errors"
	"github.com/mercatokart/storefront/internal/log"
	"github.com/mercatokart/storefront/internal/repository"
)

type CartService struct {
	pool    *pgxpool.Pool
	queries *repository.Queries
}

func NewCartService(pool *pgxpool.Pool, queries *repository.Queries) *CartService {
	return &CartService{pool: pool, queries: queries}
}

// resolveCartForUpdate locks the cart a mutation addresses, creating it
// first when absent. An authenticated request addresses the user cart;
// an anonymous one addresses the live cart for its session key.
func (s *CartService) resolveCartForUpdate(
	c context.Context,
	qtx *repository.Queries,
	cartKey string,
	userID uuid.UUID,
) (repository.Cart, error) {
	if userID != uuid.Nil {
		err := qtx.InsertUserCart(c, repository.InsertUserCartParams{ID: uuid.New(), UserID: userID})
		if err != nil {
			return repository.Cart{}, fmt.Errorf("failed creating user cart with error=%w", err)
		}
		return qtx.FindCartByUserIdForUpdate(c, userID)
	}
	err := qtx.InsertAnonymousCart(c, repository.InsertAnonymousCartParams{ID: uuid.New(), CartKey: cartKey})
	if err != nil {
		return repository.Cart{}, fmt.Errorf("failed creating cart with error=%w", err)
	}
	return qtx.FindLiveCartByKeyForUpdate(c, cartKey)
}

// lockCartForUpdate locks the effective cart without creating it.
func (s *CartService) lockCartForUpdate(
	c context.Context,
	qtx *repository.Queries,
	cartKey string,
	userID uuid.UUID,
) (repository.Cart, error) {
	if userID != uuid.Nil {
		return qtx.FindCartByUserIdForUpdate(c, userID)
	}
	return qtx.FindLiveCartByKeyForUpdate(c, cartKey)
}

// findCart resolves the effective cart for a read, without locks.
func (s *CartService) findCart(c context.Context, ref request.CartRef) (repository.Cart, error) {
	if ref.UserId != uuid.Nil {
		return s.queries.FindCartByUserId(c, ref.UserId)
	}
	return s.queries.FindCartByKey(c, ref.CartKey)
}

// AddItem resolves the requested variation selectors, resolves the
// effective cart (the user cart when the request is authenticated, the
// session cart otherwise, created when absent) and folds the product
// into it: an existing active line with an equal variation set gains
// quantity 1, otherwise a fresh line with quantity 1 is created.
// Selectors naming no concrete variation are dropped, not errored.
func (s *CartService) AddItem(c context.Context, param request.AddItem) error {
	c, span := otel.Tracer.Start(c, "CartService AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService AddItem").
		Str(log.KeyCartKey, param.CartKey).
		Str(log.KeyProductID, param.ProductId.String()).
		Any(log.KeySelectors, param.Selectors).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	logger.Info().Msg("finding product")
	product, err := s.queries.FindProductById(c, param.ProductId)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.ErrProductNotFound
		}
		err = fmt.Errorf("failed finding productId=%s with error=%w", param.ProductId, err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if !product.IsAvailable {
		err = inErrors.ErrProductUnavailable
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("found product")

	logger = logger.With().Str(log.KeyProcess, "resolving selectors").Logger()
	logger.Info().Msg("resolving selectors")
	variations := make([]repository.Variation, 0, len(param.Selectors))
	for category, value := range param.Selectors {
		variation, err := s.queries.FindVariation(c, repository.FindVariationParams{
			ProductID: param.ProductId,
			Category:  category,
			Value:     value,
		})
		if err != nil {
			// Unknown selectors are dropped, never an error.
			if errors.Is(err, pgx.ErrNoRows) {
				logger.Debug().
					Msgf("dropping unmatched selector %s=%s", category, value)
				continue
			}
			err = fmt.Errorf("failed resolving selector %s=%s with error=%w", category, value, err)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		variations = append(variations, variation)
	}
	key := variationKey(variations)
	logger = logger.With().Str(log.KeyVariationKey, key).Logger()
	logger.Info().Msgf("resolved %d of %d selectors", len(variations), len(param.Selectors))

	logger = logger.With().Str(log.KeyProcess, "initializing transaction").Logger()
	logger.Info().Msg("initializing transaction")
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		err = fmt.Errorf("failed initializing transaction with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("initialized transaction")
	defer func(lg zerolog.Logger) {
		l := lg.With().Str(log.KeyProcess, "rolling back transaction").Logger()
		err := tx.Rollback(c)
		if err != nil {
			if errors.Is(err, pgx.ErrTxClosed) {
				return
			}
			err = fmt.Errorf("failed rolling back transaction with error=%w", err)
			inErrors.HandleError(err, span)
			l.Error().Err(err).Msg(err.Error())
			return
		}
		l.Info().Msg("rolled back transaction")
	}(logger)
	qtx := s.queries.WithTx(tx)

	logger = logger.With().Str(log.KeyProcess, "resolving cart").Logger()
	logger.Info().Msg("resolving cart")
	cart, err := s.resolveCartForUpdate(c, qtx, param.CartKey, param.UserId)
	if err != nil {
		err = fmt.Errorf("failed resolving cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger = logger.With().Str(log.KeyCartID, cart.ID.String()).Logger()
	logger.Info().Msg("resolved cart")

	logger = logger.With().Str(log.KeyProcess, "reconciling line").Logger()
	logger.Info().Msg("searching line with equal variation set")
	line, err := qtx.FindActiveLineByIdentity(c, repository.FindActiveLineByIdentityParams{
		CartID:       cart.ID,
		ProductID:    param.ProductId,
		VariationKey: key,
	})
	switch {
	case err == nil:
		logger.Info().
			Str(log.KeyCartLineID, line.ID.String()).
			Int32(log.KeyQuantity, line.Quantity).
			Msg("incrementing existing line")
		_, err = qtx.AddCartLineQuantity(c, repository.AddCartLineQuantityParams{
			ID:    line.ID,
			Delta: 1,
		})
		if err != nil {
			err = fmt.Errorf("failed incrementing line with error=%w", err)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		logger.Info().Msg("incremented existing line")
	case errors.Is(err, pgx.ErrNoRows):
		logger.Info().Msg("inserting new line")
		inserted, err := qtx.InsertCartLine(c, repository.InsertCartLineParams{
			ID:           uuid.New(),
			CartID:       cart.ID,
			ProductID:    param.ProductId,
			Quantity:     1,
			VariationKey: key,
		})
		if err != nil {
			err = fmt.Errorf("failed inserting line with error=%w", err)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		for _, variation := range variations {
			err = qtx.InsertCartLineVariation(c, repository.InsertCartLineVariationParams{
				CartLineID:  inserted.ID,
				VariationID: variation.ID,
			})
			if err != nil {
				err = fmt.Errorf("failed inserting line variation with error=%w", err)
				inErrors.HandleError(err, span)
				logger.Error().Err(err).Msg(err.Error())
				return err
			}
		}
		logger.Info().Str(log.KeyCartLineID, inserted.ID.String()).Msg("inserted new line")
	default:
		err = fmt.Errorf("failed searching line with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "committing transaction").Logger()
	logger.Info().Msg("committing transaction")
	err = tx.Commit(c)
	if err != nil {
		err = fmt.Errorf("failed committing transaction with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("committed transaction")

	return nil
}

// Decrement lowers the identified line's quantity by one, deleting the
// line when the quantity reaches zero. A line that does not belong to
// the cart and product is a not-found condition surfaced to the caller.
func (s *CartService) Decrement(c context.Context, param request.Decrement) error {
	c, span := otel.Tracer.Start(c, "CartService Decrement")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService Decrement").
		Str(log.KeyCartKey, param.CartKey).
		Str(log.KeyProductID, param.ProductId.String()).
		Str(log.KeyCartLineID, param.LineId.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing transaction").Logger()
	logger.Info().Msg("initializing transaction")
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		err = fmt.Errorf("failed initializing transaction with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer func(lg zerolog.Logger) {
		if err := tx.Rollback(c); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			err = fmt.Errorf("failed rolling back transaction with error=%w", err)
			inErrors.HandleError(err, span)
			lg.Error().Err(err).Msg(err.Error())
		}
	}(logger)
	qtx := s.queries.WithTx(tx)

	logger = logger.With().Str(log.KeyProcess, "locking cart").Logger()
	logger.Info().Msg("locking cart")
	cart, err := s.lockCartForUpdate(c, qtx, param.CartKey, param.UserId)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.ErrCartNotFound
		}
		err = fmt.Errorf("failed locking cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger = logger.With().Str(log.KeyCartID, cart.ID.String()).Logger()
	logger.Info().Msg("locked cart")

	logger = logger.With().Str(log.KeyProcess, "finding line").Logger()
	logger.Info().Msg("finding line")
	line, err := qtx.FindCartLine(c, repository.FindCartLineParams{
		ID:        param.LineId,
		CartID:    cart.ID,
		ProductID: param.ProductId,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.ErrCartLineNotFound
		}
		err = fmt.Errorf("failed finding line with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if !line.IsActive {
		err = fmt.Errorf("line is inactive with error=%w", inErrors.ErrCartLineNotFound)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Int32(log.KeyQuantity, line.Quantity).Msg("found line")

	if line.Quantity > 1 {
		logger = logger.With().Str(log.KeyProcess, "decrementing line").Logger()
		logger.Info().Msg("decrementing line")
		_, err = qtx.AddCartLineQuantity(c, repository.AddCartLineQuantityParams{
			ID:    line.ID,
			Delta: -1,
		})
		if err != nil {
			err = fmt.Errorf("failed decrementing line with error=%w", err)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		logger.Info().Msg("decremented line")
	} else {
		logger = logger.With().Str(log.KeyProcess, "deleting line").Logger()
		logger.Info().Msg("deleting line at quantity floor")
		_, err = qtx.DeleteCartLine(c, line.ID)
		if err != nil {
			err = fmt.Errorf("failed deleting line with error=%w", err)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		logger.Info().Msg("deleted line")
	}

	logger = logger.With().Str(log.KeyProcess, "committing transaction").Logger()
	logger.Info().Msg("committing transaction")
	err = tx.Commit(c)
	if err != nil {
		err = fmt.Errorf("failed committing transaction with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("committed transaction")

	return nil
}

// RemoveLine deletes the identified line regardless of its quantity.
func (s *CartService) RemoveLine(c context.Context, param request.RemoveLine) error {
	c, span := otel.Tracer.Start(c, "CartService RemoveLine")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService RemoveLine").
		Str(log.KeyCartKey, param.CartKey).
		Str(log.KeyProductID, param.ProductId.String()).
		Str(log.KeyCartLineID, param.LineId.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing transaction").Logger()
	logger.Info().Msg("initializing transaction")
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		err = fmt.Errorf("failed initializing transaction with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer func(lg zerolog.Logger) {
		if err := tx.Rollback(c); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			err = fmt.Errorf("failed rolling back transaction with error=%w", err)
			inErrors.HandleError(err, span)
			lg.Error().Err(err).Msg(err.Error())
		}
	}(logger)
	qtx := s.queries.WithTx(tx)

	logger = logger.With().Str(log.KeyProcess, "locking cart").Logger()
	logger.Info().Msg("locking cart")
	cart, err := s.lockCartForUpdate(c, qtx, param.CartKey, param.UserId)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.ErrCartNotFound
		}
		err = fmt.Errorf("failed locking cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger = logger.With().Str(log.KeyCartID, cart.ID.String()).Logger()
	logger.Info().Msg("locked cart")

	logger = logger.With().Str(log.KeyProcess, "finding line").Logger()
	logger.Info().Msg("finding line")
	line, err := qtx.FindCartLine(c, repository.FindCartLineParams{
		ID:        param.LineId,
		CartID:    cart.ID,
		ProductID: param.ProductId,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.ErrCartLineNotFound
		}
		err = fmt.Errorf("failed finding line with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("found line")

	logger = logger.With().Str(log.KeyProcess, "deleting line").Logger()
	logger.Info().Msg("deleting line")
	deleted, err := qtx.DeleteCartLine(c, line.ID)
	if err != nil {
		err = fmt.Errorf("failed deleting line with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if deleted == 0 {
		err = fmt.Errorf("line vanished with error=%w", inErrors.ErrCartLineNotFound)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted line")

	logger = logger.With().Str(log.KeyProcess, "committing transaction").Logger()
	logger.Info().Msg("committing transaction")
	err = tx.Commit(c)
	if err != nil {
		err = fmt.Errorf("failed committing transaction with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("committed transaction")

	return nil
}

// ComputeTotals derives the effective cart's pricing record. An
// identity without a cart row yields zero totals: an absent cart and an
// empty cart are the same observable state.
func (s *CartService) ComputeTotals(
	c context.Context,
	ref request.CartRef,
) (response.CartTotals, error) {
	c, span := otel.Tracer.Start(c, "CartService ComputeTotals")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService ComputeTotals").
		Str(log.KeyCartKey, ref.CartKey).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding cart").Logger()
	logger.Info().Msg("finding cart")
	cart, err := s.findCart(c, ref)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Info().Msg("no cart for key, returning zero totals")
			return response.CartTotals{}, nil
		}
		err = fmt.Errorf("failed finding cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.CartTotals{}, err
	}
	logger = logger.With().Str(log.KeyCartID, cart.ID.String()).Logger()
	logger.Info().Msg("found cart")

	return s.totalsForCart(c, cart.ID)
}

func (s *CartService) totalsForCart(
	c context.Context,
	cartID uuid.UUID,
) (response.CartTotals, error) {
	c, span := otel.Tracer.Start(c, "CartService totalsForCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService totalsForCart").
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProcess, "computing totals").
		Logger()

	amounts, err := s.queries.FindActiveLineAmounts(c, cartID)
	if err != nil {
		err = fmt.Errorf("failed finding line amounts with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.CartTotals{}, err
	}
	totals := computeTotals(amounts)
	logger.Info().
		Int64(log.KeySubtotal, totals.Subtotal).
		Int64(log.KeyGrandTotal, totals.GrandTotal).
		Msg("computed totals")
	return totals, nil
}

// FindCart renders the effective cart's view: active lines in insertion
// order plus the totals record. Always a valid, possibly empty, view.
func (s *CartService) FindCart(c context.Context, ref request.CartRef) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService FindCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService FindCart").
		Str(log.KeyCartKey, ref.CartKey).
		Logger()

	empty := response.Cart{Lines: []response.CartLine{}}

	logger = logger.With().Str(log.KeyProcess, "finding cart").Logger()
	logger.Info().Msg("finding cart")
	cart, err := s.findCart(c, ref)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Info().Msg("no cart for key, returning empty view")
			return empty, nil
		}
		err = fmt.Errorf("failed finding cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return empty, err
	}

	logger = logger.With().
		Str(log.KeyCartID, cart.ID.String()).
		Str(log.KeyProcess, "listing lines").
		Logger()
	logger.Info().Msg("listing lines")
	rows, err := s.queries.FindActiveLineViews(c, cart.ID)
	if err != nil {
		err = fmt.Errorf("failed listing lines with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return empty, err
	}

	view := response.Cart{Lines: make([]response.CartLine, 0, len(rows))}
	for _, row := range rows {
		variations := []response.Variation{}
		if err := json.Unmarshal(row.Variations, &variations); err != nil {
			err = fmt.Errorf("failed mapping line variations with error=%w", err)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return empty, err
		}
		view.Lines = append(view.Lines, response.CartLine{
			ID:          row.ID,
			ProductId:   row.ProductID,
			ProductName: row.Name,
			Slug:        row.Slug,
			UnitPrice:   row.Price,
			Quantity:    row.Quantity,
			Subtotal:    row.Price * int64(row.Quantity),
			Variations:  variations,
		})
		view.Totals.Subtotal += row.Price * int64(row.Quantity)
		view.Totals.TotalQuantity += row.Quantity
	}
	view.Totals.Tax = taxOf(view.Totals.Subtotal)
	view.Totals.GrandTotal = view.Totals.Subtotal + view.Totals.Tax
	logger.Info().Msgf("rendered cart view with %d lines", len(view.Lines))

	return view, nil
}

// MergeOnLogin folds the anonymous cart identified by cartKey into the
// user's persistent cart. Lines whose product and variation set already
// exist on the user cart combine by summing quantities; the rest
// transfer ownership. The whole merge is one transaction guarded by a
// merge marker: a retry after success observes the marker and returns
// ErrCartAlreadyMerged without touching either cart, a retry after
// failure sees the untouched anonymous cart.
func (s *CartService) MergeOnLogin(
	c context.Context,
	cartKey string,
	userID uuid.UUID,
) error {
	c, span := otel.Tracer.Start(c, "CartService MergeOnLogin")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService MergeOnLogin").
		Str(log.KeyCartKey, cartKey).
		Str(log.KeyUserID, userID.String()).
		Logger()

	if cartKey == "" {
		logger.Info().Msg("no session cart key, nothing to merge")
		return nil
	}

	logger = logger.With().Str(log.KeyProcess, "initializing transaction").Logger()
	logger.Info().Msg("initializing transaction")
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		err = fmt.Errorf("failed initializing transaction with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer func(lg zerolog.Logger) {
		if err := tx.Rollback(c); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			err = fmt.Errorf("failed rolling back transaction with error=%w", err)
			inErrors.HandleError(err, span)
			lg.Error().Err(err).Msg(err.Error())
		}
	}(logger)
	qtx := s.queries.WithTx(tx)

	logger = logger.With().Str(log.KeyProcess, "locking anonymous cart").Logger()
	logger.Info().Msg("locking anonymous cart")
	anonymous, err := qtx.FindCartByKeyForUpdate(c, cartKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Info().Msg("user had no anonymous cart, nothing to merge")
			return nil
		}
		err = fmt.Errorf("failed locking anonymous cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if anonymous.Status == repository.CartStatusMerged {
		// Merge marker: this cart already went through a login merge.
		logger.Info().Msg("cart already merged, skipping")
		return inErrors.ErrCartAlreadyMerged
	}
	logger = logger.With().Str(log.KeyCartID, anonymous.ID.String()).Logger()
	logger.Info().Msg("locked anonymous cart")

	logger = logger.With().Str(log.KeyProcess, "resolving user cart").Logger()
	logger.Info().Msg("resolving user cart")
	err = qtx.InsertUserCart(c, repository.InsertUserCartParams{ID: uuid.New(), UserID: userID})
	if err != nil {
		err = fmt.Errorf("failed creating user cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	userCart, err := qtx.FindCartByUserIdForUpdate(c, userID)
	if err != nil {
		err = fmt.Errorf("failed locking user cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msgf("resolved user cartId=%s", userCart.ID)

	logger = logger.With().Str(log.KeyProcess, "merging lines").Logger()
	logger.Info().Msg("merging lines")
	lines, err := qtx.FindActiveLinesByCartId(c, anonymous.ID)
	if err != nil {
		err = fmt.Errorf("failed listing anonymous lines with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	for _, line := range lines {
		lg := logger.With().
			Str(log.KeyCartLineID, line.ID.String()).
			Str(log.KeyProductID, line.ProductID.String()).
			Str(log.KeyVariationKey, line.VariationKey).
			Logger()

		existing, err := qtx.FindActiveLineByIdentity(c, repository.FindActiveLineByIdentityParams{
			CartID:       userCart.ID,
			ProductID:    line.ProductID,
			VariationKey: line.VariationKey,
		})
		switch {
		case err == nil:
			lg.Info().
				Int32(log.KeyQuantity, existing.Quantity+line.Quantity).
				Msg("combining into existing user line")
			_, err = qtx.AddCartLineQuantity(c, repository.AddCartLineQuantityParams{
				ID:    existing.ID,
				Delta: line.Quantity,
			})
			if err != nil {
				err = fmt.Errorf("failed combining line quantities with error=%w", err)
				inErrors.HandleError(err, span)
				lg.Error().Err(err).Msg(err.Error())
				return err
			}
			// The absorbed line stays behind inactive for history.
			err = qtx.DeactivateCartLine(c, line.ID)
			if err != nil {
				err = fmt.Errorf("failed deactivating merged line with error=%w", err)
				inErrors.HandleError(err, span)
				lg.Error().Err(err).Msg(err.Error())
				return err
			}
		case errors.Is(err, pgx.ErrNoRows):
			lg.Info().Msg("transferring line to user cart")
			err = qtx.ReassignCartLine(c, repository.ReassignCartLineParams{
				ID:     line.ID,
				CartID: userCart.ID,
			})
			if err != nil {
				err = fmt.Errorf("failed transferring line with error=%w", err)
				inErrors.HandleError(err, span)
				lg.Error().Err(err).Msg(err.Error())
				return err
			}
		default:
			err = fmt.Errorf("failed searching user line with error=%w", err)
			inErrors.HandleError(err, span)
			lg.Error().Err(err).Msg(err.Error())
			return err
		}
	}
	logger.Info().Msgf("merged %d lines", len(lines))

	logger = logger.With().Str(log.KeyProcess, "marking cart merged").Logger()
	logger.Info().Msg("marking cart merged")
	_, err = qtx.MarkCartMerged(c, repository.MarkCartMergedParams{
		ID:         anonymous.ID,
		MergedInto: userCart.ID,
	})
	if err != nil {
		err = fmt.Errorf("failed marking cart merged with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("marked cart merged")

	logger = logger.With().Str(log.KeyProcess, "committing transaction").Logger()
	logger.Info().Msg("committing transaction")
	err = tx.Commit(c)
	if err != nil {
		err = fmt.Errorf("failed committing transaction with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("committed transaction")

	return nil
}

// FindOrders lists the user's past orders, newest first.
func (s *CartService) FindOrders(
	c context.Context,
	userID uuid.UUID,
) ([]response.Order, error) {
	c, span := otel.Tracer.Start(c, "CartService FindOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService FindOrders").
		Str(log.KeyUserID, userID.String()).
		Str(log.KeyProcess, "finding orders").
		Logger()

	logger.Info().Msg("finding orders")
	orders, err := s.queries.FindOrdersByUserId(c, userID)
	if err != nil {
		err = fmt.Errorf("failed finding orders with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msgf("found %d orders", len(orders))

	views := make([]response.Order, 0, len(orders))
	for _, order := range orders {
		views = append(views, response.Order{
			ID:         order.ID,
			UserId:     order.UserID,
			Subtotal:   order.Subtotal,
			Tax:        order.Tax,
			GrandTotal: order.GrandTotal,
			CreatedAt:  order.CreatedAt,
		})
	}
	return views, nil
}

// Checkout snapshots the user cart into an order, decrements stock and
// clears the cart lines, all in one transaction.
func (s *CartService) Checkout(
	c context.Context,
	param request.Checkout,
) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "CartService Checkout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService Checkout").
		Str(log.KeyUserID, param.UserId.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing transaction").Logger()
	logger.Info().Msg("initializing transaction")
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		err = fmt.Errorf("failed initializing transaction with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	defer func(lg zerolog.Logger) {
		if err := tx.Rollback(c); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			err = fmt.Errorf("failed rolling back transaction with error=%w", err)
			inErrors.HandleError(err, span)
			lg.Error().Err(err).Msg(err.Error())
		}
	}(logger)
	qtx := s.queries.WithTx(tx)

	logger = logger.With().Str(log.KeyProcess, "locking user cart").Logger()
	logger.Info().Msg("locking user cart")
	userCart, err := qtx.FindCartByUserIdForUpdate(c, param.UserId)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.ErrCartEmpty
		}
		err = fmt.Errorf("failed locking user cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger = logger.With().Str(log.KeyCartID, userCart.ID.String()).Logger()
	logger.Info().Msg("locked user cart")

	logger = logger.With().Str(log.KeyProcess, "computing totals").Logger()
	logger.Info().Msg("computing totals")
	amounts, err := qtx.FindActiveLineAmounts(c, userCart.ID)
	if err != nil {
		err = fmt.Errorf("failed finding line amounts with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	if len(amounts) == 0 {
		err = inErrors.ErrCartEmpty
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	totals := computeTotals(amounts)
	logger.Info().
		Int64(log.KeySubtotal, totals.Subtotal).
		Int64(log.KeyGrandTotal, totals.GrandTotal).
		Msg("computed totals")

	logger = logger.With().Str(log.KeyProcess, "decrementing stock").Logger()
	logger.Info().Msg("decrementing stock")
	for _, amount := range amounts {
		affected, err := qtx.DecreaseProductStock(c, repository.DecreaseProductStockParams{
			ID:       amount.ProductID,
			Quantity: amount.Quantity,
		})
		if err != nil {
			err = fmt.Errorf("failed decrementing stock with error=%w", err)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Order{}, err
		}
		if affected == 0 {
			err = fmt.Errorf(
				"productId=%s has insufficient stock with error=%w",
				amount.ProductID,
				inErrors.ErrOutOfStock,
			)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Order{}, err
		}
	}
	logger.Info().Msg("decremented stock")

	logger = logger.With().Str(log.KeyProcess, "inserting order").Logger()
	logger.Info().Msg("inserting order")
	order, err := qtx.InsertOrder(c, repository.InsertOrderParams{
		ID:         uuid.New(),
		UserID:     param.UserId,
		Subtotal:   totals.Subtotal,
		Tax:        totals.Tax,
		GrandTotal: totals.GrandTotal,
	})
	if err != nil {
		err = fmt.Errorf("failed inserting order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger = logger.With().Str(log.KeyOrderID, order.ID.String()).Logger()

	orderLines := make([]response.OrderLine, 0, len(amounts))
	for _, amount := range amounts {
		lineID := uuid.New()
		err = qtx.InsertOrderLine(c, repository.InsertOrderLineParams{
			ID:        lineID,
			OrderID:   order.ID,
			ProductID: amount.ProductID,
			Quantity:  amount.Quantity,
			UnitPrice: amount.Price,
		})
		if err != nil {
			err = fmt.Errorf("failed inserting order line with error=%w", err)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Order{}, err
		}
		orderLines = append(orderLines, response.OrderLine{
			ID:        lineID,
			ProductId: amount.ProductID,
			Quantity:  amount.Quantity,
			UnitPrice: amount.Price,
		})
	}
	logger.Info().Msg("inserted order")

	logger = logger.With().Str(log.KeyProcess, "clearing cart").Logger()
	logger.Info().Msg("clearing cart")
	_, err = qtx.DeleteCartLinesByCartId(c, userCart.ID)
	if err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Msg("cleared cart")

	logger = logger.With().Str(log.KeyProcess, "committing transaction").Logger()
	logger.Info().Msg("committing transaction")
	err = tx.Commit(c)
	if err != nil {
		err = fmt.Errorf("failed committing transaction with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Msg("committed transaction")

	return response.Order{
		ID:         order.ID,
		UserId:     order.UserID,
		Subtotal:   order.Subtotal,
		Tax:        order.Tax,
		GrandTotal: order.GrandTotal,
		Lines:      orderLines,
		CreatedAt:  order.CreatedAt,
	}, nil
}
