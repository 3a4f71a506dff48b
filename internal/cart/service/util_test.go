package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/mercatokart/storefront/internal/repository"
)

type (
	setupFunc    func(context.Context, ...string) (*pgxpool.Pool, *postgres.PostgresContainer, *repository.Queries, *CartService)
	teardownFunc func(*pgxpool.Pool, *postgres.PostgresContainer)
)

func setup(t *testing.T) setupFunc {
	return func(c context.Context, seedPaths ...string) (*pgxpool.Pool, *postgres.PostgresContainer, *repository.Queries, *CartService) {
		pgContainer, err := postgres.Run(
			c,
			"postgres:16.6-alpine3.21",
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_DB":       "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_PORT":     "5432",
				"POSTGRES_USER":     "postgres",
			}),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			postgres.WithDatabase("postgres"),
			postgres.BasicWaitStrategies(),
			postgres.WithInitScripts(
				append(
					[]string{
						filepath.Join("..", "..", "..", "migrations", "000001_create_users.up.sql"),
						filepath.Join("..", "..", "..", "migrations", "000002_create_catalog.up.sql"),
						filepath.Join("..", "..", "..", "migrations", "000003_create_carts.up.sql"),
						filepath.Join("..", "..", "..", "migrations", "000004_create_orders.up.sql"),
						filepath.Join("seed", "catalog.seed.sql"),
						filepath.Join("seed", "users.seed.sql"),
					},
					seedPaths...)...,
			),
		)
		if err != nil {
			t.Fatalf("failed running postgres container with error: %s", err)
		}

		pgConnStr, err := pgContainer.ConnectionString(c, "sslmode=disable")
		if err != nil {
			t.Fatalf("failed getting postgres connection string with error: %s", err)
		}

		pgConfig, err := pgxpool.ParseConfig(pgConnStr)
		if err != nil {
			t.Fatalf("failed parsing pgx config with error: %s", err)
		}

		pool, err := pgxpool.NewWithConfig(c, pgConfig)
		if err != nil {
			t.Fatalf("failed creating postgres pool with error: %s", err)
		}

		if err = pool.Ping(c); err != nil {
			t.Fatalf("failed ping postgres pool with error: %s", err)
		}

		queries := repository.New(pool)
		cartService := NewCartService(pool, queries)
		return pool, pgContainer, queries, cartService
	}
}

func teardown(t *testing.T) teardownFunc {
	return func(pool *pgxpool.Pool, pgContainer *postgres.PostgresContainer) {
		pool.Close()
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}
}
