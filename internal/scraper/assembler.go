package scraper

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/mfontaine/dispensary-scraper/internal/extract"
	"github.com/mfontaine/dispensary-scraper/internal/models"
)

// Assembler turns a product card plus category context into a product
// record, falling back to the detail page for fields the card does not
// show.
type Assembler struct {
	baseURL *url.URL
	fetcher DetailFetcher
	logger  *slog.Logger
}

func NewAssembler(baseURL string, fetcher DetailFetcher, logger *slog.Logger) (*Assembler, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		baseURL: base,
		fetcher: fetcher,
		logger:  logger.With("component", "assembler"),
	}, nil
}

// Build assembles a product record from a card. A card without a name is
// a routine skip, reported as nil, not an error. Detail-page lookups that
// fail leave their field absent and never abort the card.
func (a *Assembler) Build(ctx context.Context, card Card, category models.Category, storeName string) *models.Product {
	name, href, ok := card.NameLink()
	if !ok {
		return nil
	}

	product := models.NewProduct(storeName, category.Label, name)

	if href != "" {
		full := a.resolveURL(href)
		product.URL = &full
	}

	text, err := card.Text()
	if err != nil {
		a.logger.Warn("could not read card text", "product", name, "error", err)
		text = ""
	}

	if size, ok := extract.Size(text); ok {
		product.SizeRaw = &size
		if grams, ok := extract.GramsFromSize(size); ok {
			product.Grams = &grams
		}
	}

	if price, ok := extract.MinPrice(text); ok {
		product.Price = &price
	}

	if brand, ok := card.BrandMarker(); ok {
		product.Brand = &brand
	}

	if strain, ok := extract.StrainType(text); ok {
		product.StrainType = &strain
	}

	if thc, ok := extract.THCPercent(text); ok {
		product.THCPct = &thc
	}

	if (product.Price == nil || product.Brand == nil) && a.fetcher != nil && product.URL != nil {
		a.fillFromDetail(ctx, product)
	}

	product.CalculatePricePerGram()

	return product
}

// fillFromDetail fetches the product detail page once and recovers price
// and brand from it. All failures are swallowed; the fields stay absent.
func (a *Assembler) fillFromDetail(ctx context.Context, product *models.Product) {
	html, err := a.fetcher.FetchDetail(ctx, *product.URL)
	if err != nil {
		a.logger.Warn("detail page fetch failed", "url", *product.URL, "error", err)
		return
	}

	doc, err := parseDetail(html)
	if err != nil {
		a.logger.Warn("detail page parse failed", "url", *product.URL, "error", err)
		return
	}

	if product.Price == nil {
		if price, ok := priceFromDetail(doc); ok {
			product.Price = &price
		}
	}

	if product.Brand == nil {
		if brand, ok := brandFromDetail(doc); ok {
			product.Brand = &brand
		}
	}
}

func (a *Assembler) resolveURL(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return a.baseURL.ResolveReference(ref).String()
}
