package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/mfontaine/dispensary-scraper/internal/browser"
	"github.com/mfontaine/dispensary-scraper/internal/extract"
	"github.com/mfontaine/dispensary-scraper/internal/models"
	"github.com/mfontaine/dispensary-scraper/internal/nav"
)

const (
	storeLinkSelector   = "a[href^='/dispensaries/']"
	productLinkSelector = "a[href*='/product/']:not(:has(img))"
	cardAncestorXPath   = "xpath=ancestor::*[self::article or self::li or self::div][1]"
	loadMoreSelector    = "button:has-text('Load More')"
	shopStoreSelector   = "button:has-text('Shop At This Store')"
)

var cardBrandSelectors = []string{
	".ProductCard_brand",
	".brand",
	".c-product-card__brand",
	"[class*='Brand']",
	"[data-testid*='brand']",
}

// TrulieveConfig holds the site-specific knobs for the Trulieve adapter.
type TrulieveConfig struct {
	BaseURL         string
	DispensariesURL string
	RegionCode      string
	MaxLoadMore     int
	DetailTimeout   time.Duration
}

// Trulieve scrapes trulieve.com through one browser page. It implements
// Site.
type Trulieve struct {
	page      playwright.Page
	nav       *nav.Navigator
	assembler *Assembler
	region    *extract.RegionMatcher
	dedup     *DedupSet
	cfg       TrulieveConfig
	logger    *slog.Logger
}

func NewTrulieve(b *browser.Browser, navigator *nav.Navigator, cfg TrulieveConfig, logger *slog.Logger) (*Trulieve, error) {
	if cfg.MaxLoadMore == 0 {
		cfg.MaxLoadMore = 50
	}
	if cfg.DetailTimeout == 0 {
		cfg.DetailTimeout = 20 * time.Second
	}
	if cfg.RegionCode == "" {
		cfg.RegionCode = models.DefaultState
	}

	page, err := b.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	fetcher := &pageFetcher{context: b.Context(), timeout: cfg.DetailTimeout}
	assembler, err := NewAssembler(cfg.BaseURL, fetcher, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	return &Trulieve{
		page:      page,
		nav:       navigator,
		assembler: assembler,
		region:    extract.NewRegionMatcher(cfg.RegionCode).WithSlugNames("florida"),
		dedup:     NewDedupSet(),
		cfg:       cfg,
		logger:    logger.With("component", "trulieve"),
	}, nil
}

// ExtractStoreLinks collects directory anchors, dedupes by href, filters
// to the target region, then dedupes again by store name so the same
// location reached through different link paths appears once.
func (t *Trulieve) ExtractStoreLinks(ctx context.Context) ([]models.Store, error) {
	if err := t.nav.Goto(ctx, t.page, t.cfg.DispensariesURL); err != nil {
		return nil, fmt.Errorf("failed to reach dispensaries page: %w", err)
	}

	anchors, err := t.page.Locator(storeLinkSelector).All()
	if err != nil {
		return nil, fmt.Errorf("failed to list store links: %w", err)
	}

	type rawStore struct {
		name string
		url  string
	}

	var raw []rawStore
	seenHrefs := make(map[string]struct{})

	for _, anchor := range anchors {
		href, err := anchor.GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		if _, ok := seenHrefs[href]; ok {
			continue
		}

		text, err := anchor.TextContent()
		if err != nil {
			t.logger.Warn("could not read store link text", "href", href, "error", err)
			continue
		}
		text = strings.Join(strings.Fields(text), " ")

		if !t.region.Matches(href, text) {
			continue
		}

		seenHrefs[href] = struct{}{}
		raw = append(raw, rawStore{name: text, url: t.assembler.resolveURL(href)})
	}

	var stores []models.Store
	seenNames := make(map[string]struct{})
	for _, r := range raw {
		if _, ok := seenNames[r.name]; ok {
			continue
		}
		seenNames[r.name] = struct{}{}
		stores = append(stores, models.Store{
			Name:  r.name,
			URL:   r.url,
			State: t.region.Code(),
		})
	}

	t.logger.Info("discovered stores", "region", t.region.Code(), "count", len(stores))
	return stores, nil
}

// ScrapeCategory selects the store, navigates to the category, exhausts
// pagination, and assembles every product card.
func (t *Trulieve) ScrapeCategory(ctx context.Context, category models.Category, store models.Store) ([]*models.Product, error) {
	if err := t.setStoreLocation(ctx, store); err != nil {
		t.logger.Warn("could not set store location, continuing anyway",
			"store", store.Name, "error", err)
	}

	categoryURL := t.assembler.resolveURL(category.Path)
	if err := t.nav.Goto(ctx, t.page, categoryURL); err != nil {
		return nil, fmt.Errorf("failed to reach category %s: %w", category.Label, err)
	}

	if err := t.loadAllProducts(ctx); err != nil {
		return nil, err
	}

	links, err := t.page.Locator(productLinkSelector).All()
	if err != nil {
		return nil, fmt.Errorf("failed to list product links: %w", err)
	}

	t.logger.Debug("found product links",
		"store", store.Name, "category", category.Label, "count", len(links))

	var products []*models.Product
	for _, link := range links {
		if ctx.Err() != nil {
			return products, ctx.Err()
		}

		card := &playwrightCard{link: link, card: link.Locator(cardAncestorXPath)}
		product := t.assembler.Build(ctx, card, category, store.Name)
		if product == nil {
			continue
		}

		href, _ := link.GetAttribute("href")
		size := ""
		if product.SizeRaw != nil {
			size = *product.SizeRaw
		}
		key := DedupKey{
			Store:    store.Name,
			Slug:     extract.ProductSlug(href),
			Size:     size,
			Category: category.Label,
		}
		if !t.dedup.Add(key) {
			continue
		}

		products = append(products, product)
	}

	t.logger.Info("scraped category",
		"store", store.Name, "category", category.Label, "products", len(products))
	return products, nil
}

// setStoreLocation opens the store page and clicks through to shop at that
// location so category pages show its inventory.
func (t *Trulieve) setStoreLocation(ctx context.Context, store models.Store) error {
	if err := t.nav.Goto(ctx, t.page, store.URL); err != nil {
		return err
	}
	if !t.nav.Click(ctx, t.page, shopStoreSelector) {
		return ErrStoreNotSet
	}
	return nil
}

// loadAllProducts runs the pagination-expansion loop: scroll, settle,
// click "Load More", repeat. The iteration cap guards against a control
// that never exhausts.
func (t *Trulieve) loadAllProducts(ctx context.Context) error {
	for i := 0; i < t.cfg.MaxLoadMore; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := t.page.Mouse().Wheel(0, 40000); err != nil {
			t.logger.Warn("scroll failed", "error", err)
		}
		if err := t.nav.Pause(ctx, 800*time.Millisecond, 1400*time.Millisecond); err != nil {
			return err
		}

		if !t.nav.Click(ctx, t.page, loadMoreSelector) {
			return nil
		}
		if err := t.nav.Pause(ctx, 1000*time.Millisecond, 1600*time.Millisecond); err != nil {
			return err
		}
	}

	t.logger.Warn("load more iteration cap reached", "cap", t.cfg.MaxLoadMore)
	return nil
}

// Close releases the page; the browser itself is owned by the caller.
func (t *Trulieve) Close() error {
	return t.page.Close()
}

// playwrightCard adapts a product link locator and its enclosing card
// element to the Card interface.
type playwrightCard struct {
	link playwright.Locator
	card playwright.Locator
}

func (c *playwrightCard) NameLink() (string, string, bool) {
	name, err := c.link.TextContent()
	if err != nil {
		return "", "", false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}
	href, _ := c.link.GetAttribute("href")
	return name, href, true
}

func (c *playwrightCard) Text() (string, error) {
	return c.card.InnerText()
}

func (c *playwrightCard) BrandMarker() (string, bool) {
	for _, selector := range cardBrandSelectors {
		loc := c.card.Locator(selector)
		count, err := loc.Count()
		if err != nil || count == 0 {
			continue
		}
		text, err := loc.First().TextContent()
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			return text, true
		}
	}
	return "", false
}

// pageFetcher loads detail pages on short-lived pages from the run's
// browser context.
type pageFetcher struct {
	context playwright.BrowserContext
	timeout time.Duration
}

func (f *pageFetcher) FetchDetail(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	page, err := f.context.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to open detail page: %w", err)
	}
	defer page.Close()

	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(f.timeout.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("failed to load detail page: %w", err)
	}

	return page.Content()
}
