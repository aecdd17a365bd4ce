package models

import (
	"encoding/json"
	"fmt"
)

// Category describes one menu section to traverse: the navigation path
// fragment, the label used to group output, and the prefix for CSV files
// and warehouse tables.
type Category struct {
	Path   string `json:"url"`
	Label  string `json:"subcategory"`
	Prefix string `json:"prefix"`
}

// Validate rejects malformed category entries so traversal never sees them.
func (c *Category) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("category %q: path is required", c.Label)
	}
	if c.Label == "" {
		return fmt.Errorf("category with path %q: label is required", c.Path)
	}
	if c.Prefix == "" {
		return fmt.Errorf("category %q: output prefix is required", c.Label)
	}
	return nil
}

// ParseCategories decodes a JSON category list and validates every entry.
// This is the wire format of the subprocess boundary.
func ParseCategories(data []byte) ([]Category, error) {
	var categories []Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories provided")
	}
	for i := range categories {
		if err := categories[i].Validate(); err != nil {
			return nil, err
		}
	}
	return categories, nil
}
