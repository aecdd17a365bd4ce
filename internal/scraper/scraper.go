package scraper

import (
	"context"
	"errors"

	"github.com/mfontaine/dispensary-scraper/internal/models"
)

var ErrStoreNotSet = errors.New("could not select store location")

// Site is what a dispensary site adapter must provide. The run coordinator
// depends only on this interface, so alternate site adapters slot in
// without touching traversal logic.
type Site interface {
	// ExtractStoreLinks discovers the store locations to scrape. An empty
	// result is a successful zero-store run, not an error.
	ExtractStoreLinks(ctx context.Context) ([]models.Store, error)

	// ScrapeCategory traverses one category for one store and returns the
	// assembled products. Errors scope to this store+category unit.
	ScrapeCategory(ctx context.Context, category models.Category, store models.Store) ([]*models.Product, error)
}

// Card is one product summary element on a category page.
type Card interface {
	// NameLink returns the text and href of the primary product link.
	// ok is false when the card has no usable name.
	NameLink() (name, href string, ok bool)

	// Text returns the card's full visible text.
	Text() (string, error)

	// BrandMarker returns brand text from card-level brand markers.
	BrandMarker() (string, bool)
}

// DetailFetcher loads a product detail page and returns its HTML. Used
// only when card-level extraction leaves fields missing.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, url string) (string, error)
}
