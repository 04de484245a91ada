//go:build integration

// Package integration runs the storage layer and the order placement flow
// against a real PostgreSQL started with testcontainers.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/xenking/depot-store/internal/domain/buyer"
	"github.com/xenking/depot-store/internal/storage/postgres"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("depot_test"),
		tcpostgres.WithUsername("depot"),
		tcpostgres.WithPassword("depot"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		terminateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(terminateCtx)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.RunMigrations(ctx, pool))
	return pool
}

type seedProduct struct {
	id       string
	name     string
	category string
	stock    int
	prices   map[buyer.Role]string
}

func seedCatalog(t *testing.T, pool *pgxpool.Pool, products []seedProduct) {
	t.Helper()
	ctx := context.Background()

	for _, p := range products {
		_, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, unit, category, stock) VALUES ($1, $2, 'unit', $3, $4)`,
			p.id, p.name, p.category, p.stock,
		)
		require.NoError(t, err)
		for role, price := range p.prices {
			_, err := pool.Exec(ctx,
				`INSERT INTO product_prices (product_id, role, price) VALUES ($1, $2, $3)`,
				p.id, string(role), decimal.RequireFromString(price),
			)
			require.NoError(t, err)
		}
	}
}

func seedPromotion(t *testing.T, pool *pgxpool.Pool, id, code, discountType, value, minAmount, category, role string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO promotions (id, code, description, discount_type, discount_value,
		                         min_amount, product_category, user_role, active)
		 VALUES ($1, $2, '', $3, $4, $5, $6, $7, TRUE)`,
		id, code, discountType,
		decimal.RequireFromString(value), decimal.RequireFromString(minAmount),
		category, role,
	)
	require.NoError(t, err)
}

func productStock(t *testing.T, pool *pgxpool.Pool, id string) int {
	t.Helper()

	var stock int
	err := pool.QueryRow(context.Background(), `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
	require.NoError(t, err)
	return stock
}
