package extract

import "strings"

// RegionMatcher classifies store links as in or out of the target region
// using markers in the visible link text and tokens in the link path.
type RegionMatcher struct {
	code         string
	textMarkers  []string
	textSuffix   string
	slugTokens   []string
	slugSuffixes []string
}

// NewRegionMatcher builds a matcher for a two-letter state code, e.g. "FL".
func NewRegionMatcher(code string) *RegionMatcher {
	upper := strings.ToUpper(code)
	lower := strings.ToLower(code)
	return &RegionMatcher{
		code:         upper,
		textMarkers:  []string{", " + upper, " " + upper + " "},
		textSuffix:   " " + upper,
		slugTokens:   []string{"-" + lower + "-"},
		slugSuffixes: []string{"/" + lower, "-" + lower},
	}
}

// WithSlugNames adds full region names matched anywhere in the link path,
// e.g. "/florida".
func (m *RegionMatcher) WithSlugNames(names ...string) *RegionMatcher {
	for _, name := range names {
		m.slugTokens = append(m.slugTokens, "/"+strings.ToLower(name))
	}
	return m
}

// Matches reports whether a store link looks like it belongs to the target
// region. Text is compared uppercased, the path lowercased.
func (m *RegionMatcher) Matches(href, text string) bool {
	t := strings.ToUpper(text)
	h := strings.ToLower(href)

	for _, marker := range m.textMarkers {
		if strings.Contains(t, marker) {
			return true
		}
	}
	if strings.HasSuffix(t, m.textSuffix) {
		return true
	}
	for _, token := range m.slugTokens {
		if strings.Contains(h, token) {
			return true
		}
	}
	for _, suffix := range m.slugSuffixes {
		if strings.HasSuffix(h, suffix) {
			return true
		}
	}
	return false
}

// Code returns the state code the matcher was built for.
func (m *RegionMatcher) Code() string {
	return m.code
}
