package filter

import (
	"net/url"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/johnrirwin/devicedesk/internal/models"
)

func TestParseQuery(t *testing.T) {
	bounds := models.PriceRange{Min: decimal.NewFromInt(25), Max: decimal.NewFromInt(699)}

	tests := []struct {
		name      string
		query     string
		wantSel   map[models.Facet][]string
		wantPrice *models.PriceRange
		wantStock models.StockFilter
	}{
		{
			name:      "empty",
			query:     "",
			wantSel:   map[models.Facet][]string{},
			wantStock: models.StockAny,
		},
		{
			name:  "facets comma and repeated",
			query: "brand=Apple,Samsung&color=Blue&color=Black&unknown=x&lockStatus=Unlocked",
			wantSel: map[models.Facet][]string{
				models.FacetBrand:      {"Apple", "Samsung"},
				models.FacetColor:      {"Blue", "Black"},
				models.FacetLockStatus: {"Unlocked"},
			},
			wantStock: models.StockAny,
		},
		{
			name:      "min only",
			query:     "minPrice=100&stock=in",
			wantSel:   map[models.Facet][]string{},
			wantPrice: &models.PriceRange{Min: decimal.NewFromInt(100), Max: decimal.NewFromInt(699)},
			wantStock: models.StockIn,
		},
		{
			name:      "min above bounds",
			query:     "minPrice=5000",
			wantSel:   map[models.Facet][]string{},
			wantPrice: &models.PriceRange{Min: decimal.NewFromInt(5000), Max: decimal.NewFromInt(699)},
			wantStock: models.StockAny,
		},
		{
			name:      "max below bounds",
			query:     "maxPrice=10",
			wantSel:   map[models.Facet][]string{},
			wantPrice: &models.PriceRange{Min: decimal.NewFromInt(25), Max: decimal.NewFromInt(10)},
			wantStock: models.StockAny,
		},
		{
			name:      "reversed bounds",
			query:     "minPrice=500&maxPrice=200&stock=out",
			wantSel:   map[models.Facet][]string{},
			wantPrice: &models.PriceRange{Min: decimal.NewFromInt(200), Max: decimal.NewFromInt(500)},
			wantStock: models.StockOut,
		},
		{
			name:      "bad price ignored",
			query:     "maxPrice=cheap",
			wantSel:   map[models.Facet][]string{},
			wantStock: models.StockAny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			got := ParseQuery(q, bounds)

			if !reflect.DeepEqual(got.Selections, tt.wantSel) {
				t.Errorf("Selections = %v, want %v", got.Selections, tt.wantSel)
			}
			if got.Stock != tt.wantStock {
				t.Errorf("Stock = %q, want %q", got.Stock, tt.wantStock)
			}
			switch {
			case tt.wantPrice == nil && got.Price != nil:
				t.Errorf("Price = %+v, want nil", got.Price)
			case tt.wantPrice != nil && got.Price == nil:
				t.Errorf("Price = nil, want %+v", tt.wantPrice)
			case tt.wantPrice != nil && (!got.Price.Min.Equal(tt.wantPrice.Min) || !got.Price.Max.Equal(tt.wantPrice.Max)):
				t.Errorf("Price = %s..%s, want %s..%s", got.Price.Min, got.Price.Max, tt.wantPrice.Min, tt.wantPrice.Max)
			}
		})
	}
}

func TestParseQuery_OutOfRangeBoundMatchesNothing(t *testing.T) {
	products := fixture()
	state := ParseQuery(url.Values{"minPrice": {"5000"}}, PriceBounds(products))

	if res := Apply(products, state, Options{}); res.Total != 0 {
		t.Errorf("Total = %d, want 0 (got %v)", res.Total, ids(res.Products))
	}
}

func TestSearch(t *testing.T) {
	products := fixture()
	products[0].Tags = []string{"Apple", "iPhone 15", "128gb"}

	tests := []struct {
		q    string
		want []string
	}{
		{"", []string{"1", "2", "3", "4", "5"}},
		{"apple", []string{"1", "3"}},
		{"APPLE 128gb", []string{"1"}},
		{"watch google", []string{"4"}},
		{"nokia", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			if got := ids(Search(products, tt.q)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
}
