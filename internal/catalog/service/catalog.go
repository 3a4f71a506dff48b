package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mercatokart/storefront/internal/catalog/otel"
	"github.com/mercatokart/storefront/catalog/pkg/response"
	inErrors "github.com/mercatokart/storefront/internal/errors"
	"github.com/mercatokart/storefront/internal/log"
	"github.com/mercatokart/storefront/internal/repository"
)

const (
	keyProduct = "products:%s"

	cacheTTL = 5 * time.Minute
)

type CatalogService struct {
	queries *repository.Queries
	cache   *redis.Client
}

func NewCatalogService(queries *repository.Queries, cache *redis.Client) *CatalogService {
	return &CatalogService{queries: queries, cache: cache}
}

// FindProductById reads through the cache: a hit serves the cached
// product, a miss loads from the database and backfills the cache. Cache
// failures degrade to the database, they never fail the read.
func (s *CatalogService) FindProductById(
	c context.Context,
	id uuid.UUID,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "CatalogService FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CatalogService FindProductById").
		Str(log.KeyProductID, id.String()).
		Logger()

	cacheKey := fmt.Sprintf(keyProduct, id.String())
	logger = logger.With().Str(log.KeyProcess, "finding product in cache").Logger()
	logger.Info().Msg("finding product in cache")
	cached, err := s.cache.Get(c, cacheKey).Result()
	if err == nil {
		product := response.Product{}
		if err := json.Unmarshal([]byte(cached), &product); err == nil {
			logger.Info().Msg("found product in cache")
			return product, nil
		}
		logger.Warn().Msg("cached product is malformed, falling back to database")
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn().Err(err).Msg("cache unavailable, falling back to database")
	}

	logger = logger.With().Str(log.KeyProcess, "finding product in database").Logger()
	logger.Info().Msg("finding product in database")
	product, err := s.queries.FindProductById(c, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.ErrProductNotFound
		}
		err = fmt.Errorf("failed finding productId=%s with error=%w", id, err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Info().Msg("found product in database")

	view, err := s.withVariations(c, product)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "backfilling cache").Logger()
	encoded, err := json.Marshal(view)
	if err == nil {
		if err := s.cache.Set(c, cacheKey, encoded, cacheTTL).Err(); err != nil {
			logger.Warn().Err(err).Msg("failed backfilling cache")
		}
	}

	return view, nil
}

// FindProductBySlug is the storefront detail-page lookup.
func (s *CatalogService) FindProductBySlug(
	c context.Context,
	slug string,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "CatalogService FindProductBySlug")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CatalogService FindProductBySlug").
		Str(log.KeyProcess, "finding product by slug").
		Logger()

	logger.Info().Msgf("finding product slug=%s", slug)
	product, err := s.queries.FindProductBySlug(c, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.ErrProductNotFound
		}
		err = fmt.Errorf("failed finding product slug=%s with error=%w", slug, err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Info().Msgf("found product slug=%s", slug)

	view, err := s.withVariations(c, product)
	if err != nil {
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	return view, nil
}

// FindProducts lists the available catalog in insertion order.
func (s *CatalogService) FindProducts(c context.Context) ([]response.Product, error) {
	c, span := otel.Tracer.Start(c, "CatalogService FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CatalogService FindProducts").
		Str(log.KeyProcess, "finding products").
		Logger()

	logger.Info().Msg("finding products")
	products, err := s.queries.FindAvailableProducts(c)
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msgf("found %d products", len(products))

	views := make([]response.Product, 0, len(products))
	for _, product := range products {
		view, err := s.withVariations(c, product)
		if err != nil {
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *CatalogService) withVariations(
	c context.Context,
	product repository.Product,
) (response.Product, error) {
	variations, err := s.queries.FindVariationsByProductId(c, product.ID)
	if err != nil {
		return response.Product{}, fmt.Errorf(
			"failed finding variations for productId=%s with error=%w",
			product.ID,
			err,
		)
	}
	view := response.Product{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		IsAvailable: product.IsAvailable,
		Variations:  make([]response.Variation, 0, len(variations)),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	for _, v := range variations {
		view.Variations = append(view.Variations, response.Variation{
			ID:       v.ID,
			Category: v.Category,
			Value:    v.Value,
		})
	}
	return view, nil
}
