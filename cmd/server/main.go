package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mfontaine/dispensary-scraper/internal/api"
	"github.com/mfontaine/dispensary-scraper/internal/browser"
	"github.com/mfontaine/dispensary-scraper/internal/config"
	"github.com/mfontaine/dispensary-scraper/internal/jobs"
	"github.com/mfontaine/dispensary-scraper/internal/models"
	"github.com/mfontaine/dispensary-scraper/internal/nav"
	"github.com/mfontaine/dispensary-scraper/internal/ratelimit"
	"github.com/mfontaine/dispensary-scraper/internal/scraper"
	"github.com/mfontaine/dispensary-scraper/internal/storage"
	"github.com/mfontaine/dispensary-scraper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	csvStorage, err := storage.NewCSVStorage(cfg.Scraper.OutputDir, log)
	if err != nil {
		log.Error("failed to prepare output directory", "error", err)
		os.Exit(1)
	}

	// Each run gets its own browser; runs are serialized by the manager
	// so at most one browser is alive at a time.
	runFn := func(ctx context.Context, categories []models.Category) *models.RunResult {
		result := scrapeOnce(ctx, cfg, categories, log)
		if _, err := csvStorage.SaveResult(result, categories, time.Now()); err != nil {
			log.Error("failed to write CSV output", "error", err)
		}
		return result
	}

	jobManager := jobs.NewManager(ctx, runFn, log)
	handlers := api.NewHandlers(jobManager, config.DefaultCategories(), log)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", handlers.CreateRun)
		r.Get("/runs", handlers.ListRuns)
		r.Get("/runs/{runID}", handlers.GetRun)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// scrapeOnce owns the full browser lifecycle for one run.
func scrapeOnce(ctx context.Context, cfg *config.Config, categories []models.Category, log *slog.Logger) *models.RunResult {
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
