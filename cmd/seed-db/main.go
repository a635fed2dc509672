package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/token-register/db"
	"github.com/xenking/token-register/internal/domain/product"
	"github.com/xenking/token-register/internal/storage/postgres"
)

type categoryJSON struct {
	Name     string `json:"name"`
	Products []struct {
		Name  string `json:"name"`
		Price int64  `json:"price"`
	} `json:"products"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
		force       bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to catalog JSON file (defaults to the embedded catalog)")
	flag.BoolVar(&force, "force", false, "seed even when categories already exist")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, force); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string, force bool) error {
	catalog, err := loadCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool, zap.NewNop()); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seedCatalog(ctx, pool, catalog, force)
}

func loadCatalog(path string) ([]categoryJSON, error) {
	data := db.Catalog
	if path != "" {
		slog.Info("reading catalog file", slog.String("path", path))

		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(err, "read catalog file")
		}
	}

	var catalog []categoryJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}
	return catalog, nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, catalog []categoryJSON, force bool) error {
	categories := postgres.NewCategoryRepository(pool)
	products := postgres.NewProductRepository(pool)

	existing, err := categories.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "count categories")
	}
	if existing > 0 && !force {
		slog.Info("catalog already present, skipping", slog.Int("categories", existing))
		return nil
	}

	for _, c := range catalog {
		categoryID, err := categories.Create(ctx, c.Name)
		if err != nil {
			return errors.Wrapf(err, "create category %s", c.Name)
		}

		for _, p := range c.Products {
			if _, err := products.Create(ctx, product.Product{
				Name:       p.Name,
				Price:      p.Price,
				CategoryID: categoryID,
			}); err != nil {
				return errors.Wrapf(err, "create product %s", p.Name)
			}
		}

		slog.Info("seeded category",
			slog.Int64("id", categoryID),
			slog.String("name", c.Name),
			slog.Int("products", len(c.Products)),
		)
	}

	return nil
}
