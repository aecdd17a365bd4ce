package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mfontaine/dispensary-scraper/internal/browser"
	"github.com/mfontaine/dispensary-scraper/internal/config"
	"github.com/mfontaine/dispensary-scraper/internal/database"
	"github.com/mfontaine/dispensary-scraper/internal/models"
	"github.com/mfontaine/dispensary-scraper/internal/nav"
	"github.com/mfontaine/dispensary-scraper/internal/ratelimit"
	"github.com/mfontaine/dispensary-scraper/internal/scraper"
	"github.com/mfontaine/dispensary-scraper/internal/storage"
	"github.com/mfontaine/dispensary-scraper/pkg/logger"
)

func main() {
	var (
		categoriesFlag = flag.String("categories", "", "categories as a JSON array or a path to a .json file (defaults to the flower categories)")
		outputFlag     = flag.String("output", "", "directory for CSV output (overrides SCRAPER_OUTPUT_DIR)")
		headlessFlag   = flag.Bool("headless", true, "run the browser headless")
		jsonFlag       = flag.Bool("json", false, "print the run result as JSON on stdout")
		uploadFlag     = flag.Bool("upload", false, "upload results to the warehouse after the run")
		truncateFlag   = flag.Bool("truncate", false, "truncate warehouse tables before uploading")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *outputFlag != "" {
		cfg.Scraper.OutputDir = *outputFlag
	}
	cfg.Browser.Headless = *headlessFlag
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so -json keeps stdout machine-readable.
	log := logger.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	categories, err := loadCategories(*categoriesFlag)
	if err != nil {
		log.Error("failed to load categories", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result := run(ctx, cfg, categories, log)

	csvStorage, err := storage.NewCSVStorage(cfg.Scraper.OutputDir, log)
	if err != nil {
		log.Error("failed to prepare output directory", "error", err)
		os.Exit(1)
	}
	now := time.Now()
	if _, err := csvStorage.SaveResult(result, categories, now); err != nil {
		log.Error("failed to write CSV output", "error", err)
	}

	if *uploadFlag {
		if err := upload(ctx, cfg, result, categories, *truncateFlag, log); err != nil {
			log.Error("warehouse upload failed", "error", err)
		}
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(result); err != nil {
			log.Error("failed to encode result", "error", err)
			os.Exit(1)
		}
	}

	if !result.Success {
		os.Exit(1)
	}
}

// run builds the browser stack, executes the scrape and always returns a
// result, even when startup fails.
func run(ctx context.Context, cfg *config.Config, categories []models.Category, log *slog.Logger) *models.RunResult {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.ViewportWidth = cfg.Browser.ViewportWidth
	opts.ViewportHeight = cfg.Browser.ViewportHeight
	opts.AcceptLanguage = cfg.Browser.AcceptLanguage
	opts.TimezoneID = cfg.Browser.TimezoneID
	opts.Locale = cfg.Browser.Locale

	b, err := browser.New(opts)
	if err != nil {
		log.Error("failed to start browser", "error", err)
		return &models.RunResult{ErrorMessage: fmt.Sprintf("failed to start browser: %v", err)}
	}

	limiter := ratelimit.NewJitteredLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax)
	navigator := nav.New(limiter, log, nav.Config{
		MaxAttempts: cfg.Scraper.MaxRetries,
		BaseDelay:   cfg.Scraper.RetryBaseDelay,
		GotoTimeout: cfg.Browser.Timeout,
	})

	site, err := scraper.NewTrulieve(b, navigator, scraper.TrulieveConfig{
		BaseURL:         cfg.Scraper.BaseURL,
		DispensariesURL: cfg.Scraper.DispensariesURL,
		RegionCode:      cfg.Scraper.RegionCode,
		MaxLoadMore:     cfg.Scraper.MaxLoadMore,
	}, log)
	if err != nil {
		b.Close()
		log.Error("failed to open scraper page", "error", err)
		return &models.RunResult{ErrorMessage: fmt.Sprintf("failed to open scraper page: %v", err)}
	}

	runner := scraper.NewRunner(site, categories, log,
		scraper.WithInterStorePause(cfg.Scraper.InterStorePause),
		scraper.WithRelease(func() error {
			if err := site.Close(); err != nil {
				return err
			}
			return b.Close()
		}))

	return runner.Run(ctx)
}

// upload writes the result into the warehouse and records the completion
// event in the outbox for the relay to publish.
func upload(ctx context.Context, cfg *config.Config, result *models.RunResult, categories []models.Category, truncate bool, log *slog.Logger) error {
	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	warehouse := database.NewWarehouseRepository(db, log)
	if err := warehouse.EnsureTables(ctx, categories); err != nil {
		return err
	}

	outbox := database.NewOutboxRepository(db)
	if err := outbox.EnsureSchema(ctx); err != nil {
		return err
	}

	// Upload and completion event commit or roll back together.
	return db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := warehouse.UploadResultWithTx(ctx, tx, result, categories, truncate); err != nil {
			return err
		}
		return outbox.InsertRunCompletedWithTx(ctx, tx, &database.RunCompletedPayload{
			RunID:             uuid.New().String(),
			Success:           result.Success,
			TotalProducts:     result.TotalProducts,
			StoresScraped:     result.StoresScraped,
			CategoriesScraped: result.CategoriesScraped,
			DurationSeconds:   result.DurationSeconds,
			ErrorMessage:      result.ErrorMessage,
		})
	})
}

// loadCategories accepts inline JSON, a .json file path, or nothing.
func loadCategories(arg string) ([]models.Category, error) {
	if arg == "" {
		return config.DefaultCategories(), nil
	}

	data := []byte(arg)
	if !strings.HasPrefix(strings.TrimSpace(arg), "[") {
		var err error
		data, err = os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read categories file: %w", err)
		}
	}

	return models.ParseCategories(data)
}
