package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceRe      = regexp.MustCompile(`\$\s*([0-9]+(?:\.[0-9]{2})?)`)
	sizeRe       = regexp.MustCompile(`(?i)\b(0\.5g|1g|2g|3\.5g|7g|10g|14g|28g)\b`)
	thcSingleRe  = regexp.MustCompile(`(?i)\bTHC\b[^0-9]*([0-9]+(?:\.[0-9]+)?)\s*%`)
	thcRangeRe   = regexp.MustCompile(`(?i)\bTHC\b[^0-9]*([0-9]+(?:\.[0-9]+)?)\s*%[^0-9]+([0-9]+(?:\.[0-9]+)?)\s*%`)
	strainRe     = regexp.MustCompile(`(?i)\b(Indica|Sativa|Hybrid)\b`)
	brandLabelRe = regexp.MustCompile(`(?i)Brand\s*[:\-]\s*([^\n\r]+)`)
)

var sizeToGrams = map[string]float64{
	"0.5g": 0.5,
	"1g":   1.0,
	"2g":   2.0,
	"3.5g": 3.5,
	"7g":   7.0,
	"10g":  10.0,
	"14g":  14.0,
	"28g":  28.0,
}

// MinPrice scans text for dollar amounts and returns the smallest one.
// When a card shows several prices (strikethrough plus promotional), the
// promotional price is the lower of the two.
func MinPrice(text string) (float64, bool) {
	matches := priceRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}

	found := false
	min := 0.0
	for _, m := range matches {
		price, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if !found || price < min {
			min = price
			found = true
		}
	}
	return min, found
}

// Size returns the first size label from the fixed vocabulary found in
// text, normalized to lowercase.
func Size(text string) (string, bool) {
	m := sizeRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// GramsFromSize maps a size label to its weight in grams. Labels outside
// the vocabulary yield no value.
func GramsFromSize(size string) (float64, bool) {
	grams, ok := sizeToGrams[strings.ToLower(size)]
	return grams, ok
}

// StrainType returns the first whole-word strain match, capitalized.
func StrainType(text string) (string, bool) {
	m := strainRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	s := strings.ToLower(m[1])
	return strings.ToUpper(s[:1]) + s[1:], true
}

// THCPercent extracts a THC percentage. A range like "THC: 18.5% - 22%"
// yields the lower bound; the range pattern is tried before the
// single-value pattern.
func THCPercent(text string) (float64, bool) {
	if m := thcRangeRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	if m := thcSingleRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// BrandLabel is the last-resort brand source: a "Brand: X" label somewhere
// in the text.
func BrandLabel(text string) (string, bool) {
	m := brandLabelRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	brand := strings.TrimSpace(m[1])
	if brand == "" {
		return "", false
	}
	return brand, true
}

// ProductSlug extracts the slug portion of a product detail href, without
// query or fragment. Non-product hrefs are returned as-is so they still
// form a usable dedup key.
func ProductSlug(href string) string {
	if href == "" {
		return ""
	}
	_, after, found := strings.Cut(href, "/product/")
	if !found {
		return href
	}
	if i := strings.IndexAny(after, "?#"); i >= 0 {
		after = after[:i]
	}
	return strings.Trim(after, "/")
}
