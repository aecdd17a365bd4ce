package models

import (
	"math"
	"time"
)

// DefaultState is the region code stamped on every scraped product.
const DefaultState = "FL"

// Strain types recognized on product cards.
const (
	StrainIndica = "Indica"
	StrainSativa = "Sativa"
	StrainHybrid = "Hybrid"
)

// Product is one scraped menu entry for a single store and category.
// Optional fields are nil when the site did not expose them.
type Product struct {
	State       string     `json:"state"`
	Store       string     `json:"store"`
	Subcategory string     `json:"subcategory"`
	Name        string     `json:"name"`
	Brand       *string    `json:"brand,omitempty"`
	StrainType  *string    `json:"strain_type,omitempty"`
	THCPct      *float64   `json:"thc_pct,omitempty"`
	SizeRaw     *string    `json:"size_raw,omitempty"`
	Grams       *float64   `json:"grams,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	PricePerG   *float64   `json:"price_per_g,omitempty"`
	URL         *string    `json:"url,omitempty"`
	ScrapedAt   time.Time  `json:"scraped_at"`
}

// NewProduct returns a product stamped with the default state and the
// current scrape time.
func NewProduct(store, subcategory, name string) *Product {
	return &Product{
		State:       DefaultState,
		Store:       store,
		Subcategory: subcategory,
		Name:        name,
		ScrapedAt:   time.Now(),
	}
}

// CalculatePricePerGram derives price_per_g from price and grams. The
// derived value is cleared first so it can never survive independently of
// its inputs.
func (p *Product) CalculatePricePerGram() {
	p.PricePerG = nil
	if p.Price == nil || p.Grams == nil || *p.Grams <= 0 {
		return
	}
	v := math.Round(*p.Price / *p.Grams * 100) / 100
	p.PricePerG = &v
}
