package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float64Ptr(v float64) *float64 { return &v }

func TestCalculatePricePerGram(t *testing.T) {
	tests := []struct {
		name     string
		price    *float64
		grams    *float64
		expected *float64
	}{
		{
			name:     "price and grams present",
			price:    float64Ptr(35.00),
			grams:    float64Ptr(3.5),
			expected: float64Ptr(10.0),
		},
		{
			name:     "rounds to two decimals",
			price:    float64Ptr(25.00),
			grams:    float64Ptr(7.0),
			expected: float64Ptr(3.57),
		},
		{
			name:  "missing price",
			grams: float64Ptr(3.5),
		},
		{
			name:  "missing grams",
			price: float64Ptr(35.00),
		},
		{
			name:  "zero grams",
			price: float64Ptr(35.00),
			grams: float64Ptr(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProduct("Miami", "Whole Flower", "Test Strain")
			p.Price = tt.price
			p.Grams = tt.grams
			p.CalculatePricePerGram()

			if tt.expected == nil {
				assert.Nil(t, p.PricePerG)
			} else {
				require.NotNil(t, p.PricePerG)
				assert.Equal(t, *tt.expected, *p.PricePerG)
			}
		})
	}
}

func TestCalculatePricePerGramRecomputes(t *testing.T) {
	p := NewProduct("Miami", "Whole Flower", "Test Strain")
	p.Price = float64Ptr(35.00)
	p.Grams = float64Ptr(3.5)
	p.CalculatePricePerGram()
	require.NotNil(t, p.PricePerG)

	// Removing an input must clear the derived value on recompute.
	p.Price = nil
	p.CalculatePricePerGram()
	assert.Nil(t, p.PricePerG)
}

func TestNewProductDefaults(t *testing.T) {
	p := NewProduct("Orlando", "Pre-Rolls", "Roll One")

	assert.Equal(t, DefaultState, p.State)
	assert.Equal(t, "Orlando", p.Store)
	assert.Equal(t, "Pre-Rolls", p.Subcategory)
	assert.False(t, p.ScrapedAt.IsZero())
}

func TestRunResultFinalize(t *testing.T) {
	result := &RunResult{
		Success: true,
		Products: []*Product{
			NewProduct("Miami", "Whole Flower", "A"),
			NewProduct("Miami", "Whole Flower", "B"),
		},
	}
	result.Finalize()
	assert.Equal(t, 2, result.TotalProducts)
}

func TestCategoryValidate(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		wantErr  bool
	}{
		{
			name: "valid",
			category: Category{
				Path:   "/category/flower/whole-flower",
				Label:  "Whole Flower",
				Prefix: "trulieve_FL_whole_flower",
			},
		},
		{
			name:     "missing path",
			category: Category{Label: "Whole Flower", Prefix: "x"},
			wantErr:  true,
		},
		{
			name:     "missing label",
			category: Category{Path: "/category/flower", Prefix: "x"},
			wantErr:  true,
		},
		{
			name:     "missing prefix",
			category: Category{Path: "/category/flower", Label: "Flower"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.category.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseCategories(t *testing.T) {
	data := []byte(`[
		{"url": "/category/flower/whole-flower", "subcategory": "Whole Flower", "prefix": "trulieve_FL_whole_flower"},
		{"url": "/category/flower/pre-rolls", "subcategory": "Pre-Rolls", "prefix": "trulieve_FL_pre_rolls"}
	]`)

	categories, err := ParseCategories(data)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Whole Flower", categories[0].Label)

	_, err = ParseCategories([]byte(`[]`))
	assert.Error(t, err)

	_, err = ParseCategories([]byte(`[{"subcategory": "Broken"}]`))
	assert.Error(t, err)

	_, err = ParseCategories([]byte(`not json`))
	assert.Error(t, err)
}
