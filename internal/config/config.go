package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mfontaine/dispensary-scraper/internal/models"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	BaseURL         string
	DispensariesURL string
	RegionCode      string
	RateLimitMin    time.Duration
	RateLimitMax    time.Duration
	MaxRetries      int
	RetryBaseDelay  time.Duration
	InterStorePause time.Duration
	MaxLoadMore     int
	OutputDir       string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			BaseURL:         getEnvOrDefault("SCRAPER_BASE_URL", "https://www.trulieve.com"),
			DispensariesURL: getEnvOrDefault("SCRAPER_DISPENSARIES_URL", "https://www.trulieve.com/dispensaries"),
			RegionCode:      getEnvOrDefault("SCRAPER_REGION", "FL"),
			RateLimitMin:    getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 700*time.Millisecond),
			RateLimitMax:    getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 1500*time.Millisecond),
			MaxRetries:      getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			RetryBaseDelay:  getDurationOrDefault("SCRAPER_RETRY_BASE_DELAY", time.Second),
			InterStorePause: getDurationOrDefault("SCRAPER_INTER_STORE_PAUSE", 2*time.Second),
			MaxLoadMore:     getIntOrDefault("SCRAPER_MAX_LOAD_MORE", 50),
			OutputDir:       getEnvOrDefault("SCRAPER_OUTPUT_DIR", "./output"),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.5"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/New_York"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "dispensary_scraper"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}

	if c.Scraper.MaxLoadMore < 1 {
		return fmt.Errorf("SCRAPER_MAX_LOAD_MORE must be at least 1")
	}

	if c.Scraper.BaseURL == "" || c.Scraper.DispensariesURL == "" {
		return fmt.Errorf("scraper base and dispensaries URLs are required")
	}

	return nil
}

// DefaultCategories returns the menu sections scraped when no category
// list is supplied.
func DefaultCategories() []models.Category {
	return []models.Category{
		{
			Path:   "/category/flower/whole-flower",
			Label:  "Whole Flower",
			Prefix: "trulieve_FL_whole_flower",
		},
		{
			Path:   "/category/flower/pre-rolls",
			Label:  "Pre-Rolls",
			Prefix: "trulieve_FL_pre_rolls",
		},
		{
			Path:   "/category/flower/minis",
			Label:  "Ground & Shake",
			Prefix: "trulieve_FL_ground_shake",
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
