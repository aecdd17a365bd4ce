package scraper

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfontaine/dispensary-scraper/internal/models"
)

type fakeCard struct {
	name    string
	href    string
	noName  bool
	text    string
	textErr error
	brand   string
}

func (c *fakeCard) NameLink() (string, string, bool) {
	if c.noName {
		return "", "", false
	}
	return c.name, c.href, true
}

func (c *fakeCard) Text() (string, error) {
	return c.text, c.textErr
}

func (c *fakeCard) BrandMarker() (string, bool) {
	return c.brand, c.brand != ""
}

type fakeFetcher struct {
	html  string
	err   error
	calls int
}

func (f *fakeFetcher) FetchDetail(ctx context.Context, url string) (string, error) {
	f.calls++
	return f.html, f.err
}

func newTestAssembler(t *testing.T, fetcher DetailFetcher) *Assembler {
	t.Helper()
	a, err := NewAssembler("https://www.trulieve.com", fetcher, slog.Default())
	require.NoError(t, err)
	return a
}

var wholeFlower = models.Category{
	Path:   "/category/flower/whole-flower",
	Label:  "Whole Flower",
	Prefix: "trulieve_FL_whole_flower",
}

func TestBuildFullCard(t *testing.T) {
	a := newTestAssembler(t, nil)

	card := &fakeCard{
		name:  "Blue Dream",
		href:  "/product/blue-dream-3-5g",
		text:  "Blue Dream\nMuse\nHybrid | THC: 18.5% - 22.0%\n3.5g\nwas $30.00 now $25.50",
		brand: "Muse",
	}

	product := a.Build(context.Background(), card, wholeFlower, "TLV Miami")
	require.NotNil(t, product)

	assert.Equal(t, "Blue Dream", product.Name)
	assert.Equal(t, "TLV Miami", product.Store)
	assert.Equal(t, "Whole Flower", product.Subcategory)
	assert.Equal(t, "FL", product.State)

	require.NotNil(t, product.Brand)
	assert.Equal(t, "Muse", *product.Brand)

	require.NotNil(t, product.StrainType)
	assert.Equal(t, "Hybrid", *product.StrainType)

	require.NotNil(t, product.THCPct)
	assert.Equal(t, 18.5, *product.THCPct)

	require.NotNil(t, product.SizeRaw)
	assert.Equal(t, "3.5g", *product.SizeRaw)
	require.NotNil(t, product.Grams)
	assert.Equal(t, 3.5, *product.Grams)

	require.NotNil(t, product.Price)
	assert.Equal(t, 25.50, *product.Price)

	require.NotNil(t, product.PricePerG)
	assert.Equal(t, 7.29, *product.PricePerG)

	require.NotNil(t, product.URL)
	assert.Equal(t, "https://www.trulieve.com/product/blue-dream-3-5g", *product.URL)
}

func TestBuildMissingNameSkips(t *testing.T) {
	a := newTestAssembler(t, nil)
	product := a.Build(context.Background(), &fakeCard{noName: true}, wholeFlower, "TLV Miami")
	assert.Nil(t, product)
}

func TestBuildDetailPageBrandFallback(t *testing.T) {
	fetcher := &fakeFetcher{
		html: `<html><body>
			<nav><a href="/">Home</a><a href="/category/flower">Flower</a><a href="/brand/muse">Muse</a></nav>
			<h1>Blue Dream</h1>
		</body></html>`,
	}
	a := newTestAssembler(t, fetcher)

	card := &fakeCard{
		name: "Blue Dream",
		href: "/product/blue-dream-3-5g",
		text: "Blue Dream 3.5g $35.00",
	}

	product := a.Build(context.Background(), card, wholeFlower, "TLV Miami")
	require.NotNil(t, product)
	assert.Equal(t, 1, fetcher.calls)

	require.NotNil(t, product.Brand)
	assert.Equal(t, "Muse", *product.Brand)
}

func TestBuildDetailPageBrandLabelFallback(t *testing.T) {
	fetcher := &fakeFetcher{
		html: `<html><body>
			<nav><a href="/">Home</a><a href="/shop">Shop</a></nav>
			<div class="details"><span>Brand: Sunshine Cannabis</span></div>
		</body></html>`,
	}
	a := newTestAssembler(t, fetcher)

	card := &fakeCard{
		name: "Gelato",
		href: "/product/gelato-7g",
		text: "Gelato 7g $45.00",
	}

	product := a.Build(context.Background(), card, wholeFlower, "TLV Miami")
	require.NotNil(t, product)
	require.NotNil(t, product.Brand)
	assert.Equal(t, "Sunshine Cannabis", *product.Brand)
}

func TestBuildDetailPagePriceFallback(t *testing.T) {
	fetcher := &fakeFetcher{
		html: `<html><body>
			<nav><a href="/">Home</a></nav>
			<div class="pricing">was $40.00 now $32.00</div>
		</body></html>`,
	}
	a := newTestAssembler(t, fetcher)

	card := &fakeCard{
		name:  "Gelato",
		href:  "/product/gelato-7g",
		text:  "Gelato 7g Indica",
		brand: "Muse",
	}

	product := a.Build(context.Background(), card, wholeFlower, "TLV Miami")
	require.NotNil(t, product)

	require.NotNil(t, product.Price)
	assert.Equal(t, 32.00, *product.Price)

	require.NotNil(t, product.PricePerG)
	assert.Equal(t, 4.57, *product.PricePerG)
}

func TestBuildDetailFailureSwallowed(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("timeout exceeded")}
	a := newTestAssembler(t, fetcher)

	card := &fakeCard{
		name: "Gelato",
		href: "/product/gelato-7g",
		text: "Gelato 7g",
	}

	product := a.Build(context.Background(), card, wholeFlower, "TLV Miami")
	require.NotNil(t, product)
	assert.Nil(t, product.Price)
	assert.Nil(t, product.Brand)
	assert.Nil(t, product.PricePerG)
}

func TestBuildNoDetailLookupWhenComplete(t *testing.T) {
	fetcher := &fakeFetcher{html: "<html><body></body></html>"}
	a := newTestAssembler(t, fetcher)

	card := &fakeCard{
		name:  "Gelato",
		href:  "/product/gelato-7g",
		text:  "Gelato 7g $45.00",
		brand: "Muse",
	}

	product := a.Build(context.Background(), card, wholeFlower, "TLV Miami")
	require.NotNil(t, product)
	assert.Equal(t, 0, fetcher.calls)
}

func TestBuildCardTextErrorStillYieldsProduct(t *testing.T) {
	a := newTestAssembler(t, nil)

	card := &fakeCard{
		name:    "Gelato",
		href:    "/product/gelato-7g",
		textErr: errors.New("element detached"),
	}

	product := a.Build(context.Background(), card, wholeFlower, "TLV Miami")
	require.NotNil(t, product)
	assert.Equal(t, "Gelato", product.Name)
	assert.Nil(t, product.SizeRaw)
}
