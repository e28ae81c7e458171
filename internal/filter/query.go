package filter

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/johnrirwin/devicedesk/internal/models"
)

// ParseQuery builds a FilterState from URL query parameters such as
// ?brand=Apple&color=Blue,Black&minPrice=100&stock=in.
// A single price bound is completed from bounds and kept as given even when it lies
// outside them; only a fully supplied reversed range is swapped. Unparseable prices are ignored.
func ParseQuery(q url.Values, bounds models.PriceRange) models.FilterState {
	state := NewState()

	for _, f := range models.AllFacets() {
		var values []string
		for _, raw := range q[string(f)] {
			for _, v := range strings.Split(raw, ",") {
				if v = strings.TrimSpace(v); v != "" {
					values = append(values, v)
				}
			}
		}
		if len(values) > 0 {
			state.Selections[f] = values
		}
	}

	min, hasMin := parseDecimal(q.Get("minPrice"))
	max, hasMax := parseDecimal(q.Get("maxPrice"))
	if hasMin || hasMax {
		if !hasMin {
			min = bounds.Min
		}
		if !hasMax {
			max = bounds.Max
		}
		if hasMin && hasMax && min.GreaterThan(max) {
			min, max = max, min
		}
		state.Price = &models.PriceRange{Min: min, Max: max}
	}

	state.Stock = models.ParseStockFilter(q.Get("stock"))
	return state
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Search narrows products to those containing every whitespace-separated term of q
// in their name, brand, model or tags (case-insensitive). Order is preserved.
func Search(products []models.Product, q string) []models.Product {
	terms := strings.Fields(strings.ToLower(q))
	if len(terms) == 0 {
		return products
	}

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		haystack := strings.ToLower(strings.Join(append([]string{p.Name, p.Brand, p.Model}, p.Tags...), " "))
		match := true
		for _, term := range terms {
			if !strings.Contains(haystack, term) {
				match = false
				break
			}
		}
		if match {
			out = append(out, p)
		}
	}
	return out
}
