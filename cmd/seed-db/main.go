// Command seed-db loads demo catalog data, promotions, and an API key into
// the database so the API can be exercised locally.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/depot-store/internal/domain/buyer"
	"github.com/xenking/depot-store/internal/handler"
	"github.com/xenking/depot-store/internal/storage/postgres"
)

type seedProduct struct {
	id       string
	name     string
	unit     string
	category string
	stock    int
	prices   map[buyer.Role]string
}

var products = []seedProduct{
	{
		id: "rice-st25-5kg", name: "ST25 Rice 5kg", unit: "bag", category: "staples", stock: 120,
		prices: map[buyer.Role]string{
			buyer.RoleDistributor: "155000",
			buyer.RoleAgentTier1:  "165000",
			buyer.RoleAgentTier2:  "172000",
		},
	},
	{
		id: "cooking-oil-1l", name: "Soybean Cooking Oil 1L", unit: "bottle", category: "staples", stock: 200,
		prices: map[buyer.Role]string{
			buyer.RoleDistributor: "42000",
			buyer.RoleAgentTier1:  "46000",
			buyer.RoleAgentTier2:  "49000",
		},
	},
	{
		id: "fish-sauce-500ml", name: "Premium Fish Sauce 500ml", unit: "bottle", category: "condiments", stock: 80,
		prices: map[buyer.Role]string{
			buyer.RoleDistributor: "78000",
			buyer.RoleAgentTier1:  "85000",
			buyer.RoleAgentTier2:  "89000",
		},
	},
	{
		id: "instant-noodles-box", name: "Instant Noodles (30 packs)", unit: "box", category: "staples", stock: 150,
		prices: map[buyer.Role]string{
			buyer.RoleDistributor: "98000",
			buyer.RoleAgentTier1:  "105000",
		},
	},
	{
		id: "detergent-3kg", name: "Laundry Detergent 3kg", unit: "bag", category: "household", stock: 60,
		prices: map[buyer.Role]string{
			buyer.RoleDistributor: "112000",
			buyer.RoleAgentTier1:  "119000",
			buyer.RoleAgentTier2:  "125000",
		},
	},
}

type seedPromotion struct {
	id            string
	code          string
	description   string
	discountType  string
	discountValue string
	minAmount     string
	category      string
	role          string
}

var promotions = []seedPromotion{
	{
		id: "promo-bulk10", code: "BULK10",
		description:  "10% off orders of 150,000 or more",
		discountType: "percentage", discountValue: "10", minAmount: "150000",
	},
	{
		id: "promo-staples25k", code: "STAPLES25K",
		description:  "25,000 off any order containing staples",
		discountType: "fixed", discountValue: "25000", category: "staples",
	},
	{
		id: "promo-npp5", code: "NPP5",
		description:  "5% distributor loyalty discount",
		discountType: "percentage", discountValue: "5", role: string(buyer.RoleDistributor),
	},
}

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
		buyerID      string
		buyerName    string
		buyerRole    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or DEPOT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or DEPOT_API_KEY_PEPPER env)")
	flag.StringVar(&buyerID, "buyer-id", "buyer-demo", "buyer ID bound to the seeded API key")
	flag.StringVar(&buyerName, "buyer-name", "Demo Buyer", "buyer name bound to the seeded API key")
	flag.StringVar(&buyerRole, "buyer-role", string(buyer.RoleAgentTier1), "buyer role bound to the seeded API key")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("DEPOT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or DEPOT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("DEPOT_API_KEY_PEPPER")
	}

	role, err := buyer.ParseRole(buyerRole)
	if err != nil {
		slog.Error("invalid buyer role", slog.String("role", buyerRole))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	key := buyer.Credential{
		ID:      buyerID + "-key",
		KeyHash: handler.HashKey(apiKey, []byte(apiKeyPepper)),
		Buyer:   buyer.Buyer{ID: buyerID, Name: buyerName, Role: role},
	}

	if err := run(ctx, databaseURL, key); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string, key buyer.Credential) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedPromotions(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promotions")
	}
	if err := seedAPIKey(ctx, pool, key); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, unit, category, stock)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, unit = EXCLUDED.unit,
			    category = EXCLUDED.category, stock = EXCLUDED.stock`,
			p.id, p.name, p.unit, p.category, p.stock,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}

		for role, price := range p.prices {
			amount, err := decimal.NewFromString(price)
			if err != nil {
				return errors.Wrapf(err, "parse price for %s/%s", p.id, role)
			}
			_, err = pool.Exec(ctx, `
				INSERT INTO product_prices (product_id, role, price)
				VALUES ($1, $2, $3)
				ON CONFLICT (product_id, role) DO UPDATE SET price = EXCLUDED.price`,
				p.id, string(role), amount,
			)
			if err != nil {
				return errors.Wrapf(err, "upsert price %s/%s", p.id, role)
			}
		}

		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}

	return nil
}

func seedPromotions(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting promotions", slog.Int("count", len(promotions)))

	for _, p := range promotions {
		value, err := decimal.NewFromString(p.discountValue)
		if err != nil {
			return errors.Wrapf(err, "parse discount value for %s", p.code)
		}
		minAmount := decimal.Zero
		if p.minAmount != "" {
			if minAmount, err = decimal.NewFromString(p.minAmount); err != nil {
				return errors.Wrapf(err, "parse min amount for %s", p.code)
			}
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO promotions (id, code, description, discount_type, discount_value,
			                        min_amount, product_category, user_role, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
			ON CONFLICT (id) DO UPDATE
			SET code = EXCLUDED.code, description = EXCLUDED.description,
			    discount_type = EXCLUDED.discount_type, discount_value = EXCLUDED.discount_value,
			    min_amount = EXCLUDED.min_amount, product_category = EXCLUDED.product_category,
			    user_role = EXCLUDED.user_role, active = TRUE`,
			p.id, p.code, p.description, p.discountType, value, minAmount, p.category, p.role,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert promotion %s", p.code)
		}

		slog.Info("upserted promotion", slog.String("code", p.code), slog.String("description", p.description))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, key buyer.Credential) error {
	slog.Info("seeding API key", slog.String("buyer", key.Buyer.ID), slog.String("role", string(key.Buyer.Role)))

	_, err := pool.Exec(ctx, `
		INSERT INTO api_keys (id, key_hash, buyer_id, buyer_name, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET key_hash = EXCLUDED.key_hash, buyer_id = EXCLUDED.buyer_id,
		    buyer_name = EXCLUDED.buyer_name, role = EXCLUDED.role`,
		key.ID, key.KeyHash, key.Buyer.ID, key.Buyer.Name, string(key.Buyer.Role),
	)
	if err != nil {
		return errors.Wrap(err, "upsert api key")
	}

	return nil
}
