package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mfontaine/dispensary-scraper/internal/extract"
)

// Generic navigation terms that show up in breadcrumbs but are never a
// brand name.
var brandStoplist = map[string]struct{}{
	"home":           {},
	"flower":         {},
	"pre-rolls":      {},
	"minis":          {},
	"ground & shake": {},
	"products":       {},
	"shop":           {},
}

var brandAttrSelectors = []string{
	"[data-brand]",
	"[itemprop='brand']",
	"[class*='brand']",
}

func parseDetail(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// brandFromDetail resolves a brand from a product detail page, trying in
// order: breadcrumb navigation text (minus the stoplist), a labeled
// "Brand:" field, brand-attribute markers, and finally the label regex on
// the whole page text.
func brandFromDetail(doc *goquery.Document) (string, bool) {
	crumbs := doc.Find("nav a, .breadcrumb a, [class*='breadcrumb'] a")
	found := ""
	crumbs.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= 5 {
			return false
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}
		if _, generic := brandStoplist[strings.ToLower(text)]; generic {
			return true
		}
		if len(text) > 40 {
			return true
		}
		found = text
		return false
	})
	if found != "" {
		return found, true
	}

	// Labeled "Brand:" field on a small element.
	doc.Find("span, p, li, dt, dd, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" || len(text) > 100 {
			return true
		}
		if brand, ok := extract.BrandLabel(text); ok {
			found = brand
			return false
		}
		return true
	})
	if found != "" {
		return found, true
	}

	for _, selector := range brandAttrSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			return text, true
		}
	}

	return extract.BrandLabel(doc.Find("body").Text())
}

// priceFromDetail extracts the minimum dollar amount on a detail page.
func priceFromDetail(doc *goquery.Document) (float64, bool) {
	return extract.MinPrice(doc.Find("body").Text())
}
