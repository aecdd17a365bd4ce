package storage

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/mfontaine/dispensary-scraper/internal/models"
)

var csvHeader = []string{
	"state", "store", "subcategory", "name", "brand", "strain_type",
	"thc_pct", "size_raw", "grams", "price", "price_per_g", "url", "scraped_at",
}

// CSVStorage writes scraped products into timestamped CSV files, one file
// per category prefix.
type CSVStorage struct {
	outputDir string
	logger    *slog.Logger
}

func NewCSVStorage(outputDir string, logger *slog.Logger) (*CSVStorage, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}
	return &CSVStorage{
		outputDir: outputDir,
		logger:    logger.With("component", "csv_storage"),
	}, nil
}

// SaveProducts writes products to {prefix}-{YYYYMMDD_HHMMSS}.csv, sorted
// by store, brand, name, grams.
func (s *CSVStorage) SaveProducts(products []*models.Product, prefix string, ts time.Time) (string, error) {
	if len(products) == 0 {
		return "", fmt.Errorf("no products to save")
	}

	sorted := make([]*models.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Store != b.Store {
			return a.Store < b.Store
		}
		if ab, bb := strPtr(a.Brand), strPtr(b.Brand); ab != bb {
			return ab < bb
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return floatPtr(a.Grams) < floatPtr(b.Grams)
	})

	filename := fmt.Sprintf("%s-%s.csv", prefix, ts.Format("20060102_150405"))
	path := filepath.Join(s.outputDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for _, p := range sorted {
		if err := w.Write(productRow(p)); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}

	s.logger.Info("saved products", "path", path, "count", len(sorted))
	return path, nil
}

// SaveResult writes one file per category label using each category's
// output prefix. Categories with no products are skipped.
func (s *CSVStorage) SaveResult(result *models.RunResult, categories []models.Category, ts time.Time) ([]string, error) {
	byLabel := make(map[string][]*models.Product)
	for _, p := range result.Products {
		byLabel[p.Subcategory] = append(byLabel[p.Subcategory], p)
	}

	var paths []string
	for _, category := range categories {
		products := byLabel[category.Label]
		if len(products) == 0 {
			s.logger.Warn("no products for category, skipping file", "category", category.Label)
			continue
		}
		path, err := s.SaveProducts(products, category.Prefix, ts)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func productRow(p *models.Product) []string {
	return []string{
		p.State,
		p.Store,
		p.Subcategory,
		p.Name,
		strPtr(p.Brand),
		strPtr(p.StrainType),
		formatFloat(p.THCPct),
		strPtr(p.SizeRaw),
		formatFloat(p.Grams),
		formatFloat(p.Price),
		formatFloat(p.PricePerG),
		strPtr(p.URL),
		p.ScrapedAt.Format(time.RFC3339),
	}
}

func strPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatPtr(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
