package database

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mfontaine/dispensary-scraper/internal/models"
)

var tableNameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// WarehouseRepository uploads run results into per-category tables for
// downstream analytics.
type WarehouseRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewWarehouseRepository(db *DB, logger *slog.Logger) *WarehouseRepository {
	return &WarehouseRepository{
		db:     db,
		logger: logger.With("component", "warehouse"),
	}
}

// TableName maps a category label to its warehouse table, e.g.
// "Whole Flower" becomes products_whole_flower.
func TableName(label string) string {
	name := strings.ToLower(label)
	name = tableNameSanitizer.ReplaceAllString(name, "_")
	return "products_" + strings.Trim(name, "_")
}

// EnsureTables creates the per-category tables when they do not exist.
func (r *WarehouseRepository) EnsureTables(ctx context.Context, categories []models.Category) error {
	for _, category := range categories {
		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				state TEXT NOT NULL,
				store TEXT NOT NULL,
				subcategory TEXT NOT NULL,
				name TEXT NOT NULL,
				brand TEXT,
				strain_type TEXT,
				thc_pct DOUBLE PRECISION,
				size_raw TEXT,
				grams DOUBLE PRECISION,
				price DOUBLE PRECISION,
				price_per_g DOUBLE PRECISION,
				url TEXT,
				scraped_at TIMESTAMPTZ NOT NULL
			)`, TableName(category.Label))

		if _, err := r.db.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure table for %s: %w", category.Label, err)
		}
	}
	return nil
}

// UploadResult batch-inserts the run's products grouped by category
// inside one transaction. When truncate is set each target table is
// emptied first.
func (r *WarehouseRepository) UploadResult(ctx context.Context, result *models.RunResult, categories []models.Category, truncate bool) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		return r.UploadResultWithTx(ctx, tx, result, categories, truncate)
	})
}

// UploadResultWithTx is the transaction-scoped upload, so callers can add
// outbox writes to the same transaction.
func (r *WarehouseRepository) UploadResultWithTx(ctx context.Context, tx pgx.Tx, result *models.RunResult, categories []models.Category, truncate bool) error {
	byLabel := make(map[string][]*models.Product)
	for _, p := range result.Products {
		byLabel[p.Subcategory] = append(byLabel[p.Subcategory], p)
	}

	for _, category := range categories {
		products := byLabel[category.Label]
		table := TableName(category.Label)

		if truncate {
			if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+table); err != nil {
				return fmt.Errorf("failed to truncate %s: %w", table, err)
			}
		}

		if len(products) == 0 {
			continue
		}

		batch := &pgx.Batch{}
		query := fmt.Sprintf(`
			INSERT INTO %s (
				state, store, subcategory, name, brand, strain_type,
				thc_pct, size_raw, grams, price, price_per_g, url, scraped_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`, table)

		for _, p := range products {
			batch.Queue(query,
				p.State, p.Store, p.Subcategory, p.Name, p.Brand, p.StrainType,
				p.THCPct, p.SizeRaw, p.Grams, p.Price, p.PricePerG, p.URL, p.ScrapedAt,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range products {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert into %s: %w", table, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close batch for %s: %w", table, err)
		}

		r.logger.Info("uploaded category", "table", table, "rows", len(products))
	}
	return nil
}
