package nav

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/mfontaine/dispensary-scraper/internal/ratelimit"
)

// Page is the slice of playwright.Page the navigator needs. Narrowing the
// dependency keeps retry behavior testable without a browser.
type Page interface {
	Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error)
	Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator
}

// Navigator wraps every network transition with retry, backoff, and
// jittered rate limiting.
type Navigator struct {
	limiter     ratelimit.Limiter
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
	gotoTimeout time.Duration
}

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	GotoTimeout time.Duration
}

func New(limiter ratelimit.Limiter, logger *slog.Logger, cfg Config) *Navigator {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.GotoTimeout == 0 {
		cfg.GotoTimeout = 30 * time.Second
	}
	return &Navigator{
		limiter:     limiter,
		logger:      logger.With("component", "navigator"),
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		gotoTimeout: cfg.GotoTimeout,
	}
}

// Goto navigates with bounded retries. A failed attempt waits
// baseDelay * 2^attempt before the next try; when all attempts fail the
// last error propagates. Success is always followed by the rate-limit
// delay so request cadence stays throttled.
func (n *Navigator) Goto(ctx context.Context, page Page, url string) error {
	var lastErr error

	for attempt := 0; attempt < n.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := n.baseDelay * time.Duration(1<<(attempt-1))
			n.logger.Warn("navigation failed, retrying",
				"url", url, "attempt", attempt, "backoff", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(n.gotoTimeout.Milliseconds())),
		})
		if err == nil {
			return n.limiter.Wait(ctx)
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d attempts: %w", n.maxAttempts, lastErr)
}

// Click clicks the first visible element matching selector. A missing or
// unclickable element is a normal traversal signal, not a fault: the
// result is false and a warning is logged.
func (n *Navigator) Click(ctx context.Context, page Page, selector string) bool {
	locator := page.Locator(selector)

	count, err := locator.Count()
	if err != nil || count == 0 {
		return false
	}

	first := locator.First()
	visible, err := first.IsVisible()
	if err != nil || !visible {
		return false
	}

	if err := first.Click(); err != nil {
		n.logger.Warn("could not click element", "selector", selector, "error", err)
		return false
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return false
	}
	return true
}

// Pause waits a uniformly random duration in [min, max].
func (n *Navigator) Pause(ctx context.Context, min, max time.Duration) error {
	return ratelimit.Sleep(ctx, min, max)
}
