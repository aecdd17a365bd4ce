package models

// Store is a single dispensary location discovered on the directory page.
type Store struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	State string `json:"state"`
}

// RunResult is the aggregated outcome of one scraping run. Once a run has
// started it always produces one of these, never a propagated error.
type RunResult struct {
	Success           bool       `json:"success"`
	Products          []*Product `json:"products"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	CategoriesScraped int        `json:"categories_scraped"`
	StoresScraped     int        `json:"stores_scraped"`
	TotalProducts     int        `json:"total_products"`
	DurationSeconds   float64    `json:"duration_seconds"`
}

// Finalize recomputes the derived product count. Call after the product
// list stops changing.
func (r *RunResult) Finalize() {
	r.TotalProducts = len(r.Products)
}
