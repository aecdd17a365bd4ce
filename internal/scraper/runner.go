package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/mfontaine/dispensary-scraper/internal/models"
)

// Runner coordinates one scraping run: store discovery, then every store
// crossed with every category, with per-unit failure isolation. It always
// produces a RunResult once started.
type Runner struct {
	site            Site
	categories      []models.Category
	interStorePause time.Duration
	release         func() error
	logger          *slog.Logger
}

type RunnerOption func(*Runner)

// WithInterStorePause overrides the fixed pause applied between stores on
// top of normal rate limiting.
func WithInterStorePause(d time.Duration) RunnerOption {
	return func(r *Runner) { r.interStorePause = d }
}

// WithRelease registers session teardown that must run on every exit
// path. A teardown failure is logged, never raised.
func WithRelease(release func() error) RunnerOption {
	return func(r *Runner) { r.release = release }
}

func NewRunner(site Site, categories []models.Category, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		site:            site,
		categories:      categories,
		interStorePause: 2 * time.Second,
		logger:          logger.With("component", "runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the full workflow. Discovery failure fails the run;
// category failures are logged and skipped. Cancellation stops traversal
// promptly, still releases the session, and reports a failed result.
func (r *Runner) Run(ctx context.Context) *models.RunResult {
	start := time.Now()
	result := &models.RunResult{Products: []*models.Product{}}

	defer func() {
		result.DurationSeconds = time.Since(start).Seconds()
		result.Finalize()
		if r.release != nil {
			if err := r.release(); err != nil {
				r.logger.Error("session release failed", "error", err)
			}
		}
	}()

	stores, err := r.site.ExtractStoreLinks(ctx)
	if err != nil {
		r.logger.Error("store discovery failed", "error", err)
		result.ErrorMessage = err.Error()
		return result
	}

	r.logger.Info("starting run", "stores", len(stores), "categories", len(r.categories))

storeLoop:
	for _, store := range stores {
		for _, category := range r.categories {
			if ctx.Err() != nil {
				break storeLoop
			}

			products, err := r.site.ScrapeCategory(ctx, category, store)
			if err != nil {
				r.logger.Error("category failed, skipping",
					"store", store.Name, "category", category.Label, "error", err)
				continue
			}

			result.Products = append(result.Products, products...)
			result.CategoriesScraped++
		}

		result.StoresScraped++

		if ctx.Err() != nil {
			break
		}

		// Extra pause between stores beyond normal rate limiting.
		select {
		case <-ctx.Done():
			break storeLoop
		case <-time.After(r.interStorePause):
		}
	}

	if err := ctx.Err(); err != nil {
		result.ErrorMessage = err.Error()
		r.logger.Warn("run cancelled", "products", len(result.Products))
		return result
	}

	result.Success = true
	r.logger.Info("run complete",
		"products", len(result.Products),
		"stores", result.StoresScraped,
		"categories", result.CategoriesScraped)
	return result
}
