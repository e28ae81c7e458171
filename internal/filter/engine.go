package filter

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/johnrirwin/devicedesk/internal/models"
)

// CountMode selects how facet option counts are computed
type CountMode string

const (
	// CountCollection counts each option against the whole collection
	CountCollection CountMode = "collection"
	// CountNarrowed counts each option against products passing every other active constraint
	CountNarrowed CountMode = "narrowed"
)

// ParseCountMode maps a config value to a CountMode, defaulting to CountCollection
func ParseCountMode(s string) CountMode {
	if strings.EqualFold(strings.TrimSpace(s), string(CountNarrowed)) {
		return CountNarrowed
	}
	return CountCollection
}

// Options tunes Apply
type Options struct {
	CountMode CountMode
}

// Result is one filter pass
type Result struct {
	Products    []models.Product
	Facets      []models.FacetSummary
	PriceBounds models.PriceRange
	Total       int
}

// NewState returns a state with no restrictions
func NewState() models.FilterState {
	return models.FilterState{
		Selections: make(map[models.Facet][]string),
		Stock:      models.StockAny,
	}
}

// Matches reports whether a product passes every constraint in state
func Matches(p models.Product, state models.FilterState) bool {
	if !matchesPriceAndStock(p, state) {
		return false
	}
	for _, f := range models.AllFacets() {
		if !matchesFacet(p, f, state.Selections[f]) {
			return false
		}
	}
	return true
}

func matchesPriceAndStock(p models.Product, state models.FilterState) bool {
	if state.Price != nil && !state.Price.Contains(p.Price) {
		return false
	}
	switch state.Stock {
	case models.StockIn:
		return p.InStock
	case models.StockOut:
		return !p.InStock
	}
	return true
}

// Apply filters products by state. The output keeps input order and the input is never modified.
func Apply(products []models.Product, state models.FilterState, opts Options) Result {
	facets := models.AllFacets()
	type verdict struct {
		base  bool
		facet []bool
	}
	verdicts := make([]verdict, len(products))

	filtered := make([]models.Product, 0, len(products))
	for i, p := range products {
		v := verdict{base: matchesPriceAndStock(p, state), facet: make([]bool, len(facets))}
		all := v.base
		for j, f := range facets {
			v.facet[j] = matchesFacet(p, f, state.Selections[f])
			all = all && v.facet[j]
		}
		verdicts[i] = v
		if all {
			filtered = append(filtered, p)
		}
	}

	summaries := make([]models.FacetSummary, 0, len(facets))
	for j, f := range facets {
		counts := make(map[string]int)
		display := make(map[string]string)
		for i, p := range products {
			val, ok := FacetValue(p, f)
			if !ok {
				continue
			}
			key := strings.ToLower(val)
			if _, seen := display[key]; !seen {
				display[key] = val
			}
			if opts.CountMode == CountNarrowed && !eligibleExcept(verdicts[i].base, verdicts[i].facet, j) {
				continue
			}
			counts[key]++
		}
		summaries = append(summaries, summarize(f, display, counts, state.Selections[f]))
	}

	return Result{
		Products:    filtered,
		Facets:      summaries,
		PriceBounds: PriceBounds(products),
		Total:       len(filtered),
	}
}

func eligibleExcept(base bool, facet []bool, skip int) bool {
	if !base {
		return false
	}
	for j, ok := range facet {
		if j != skip && !ok {
			return false
		}
	}
	return true
}

func summarize(f models.Facet, display map[string]string, counts map[string]int, selected []string) models.FacetSummary {
	isSelected := make(map[string]bool, len(selected))
	for _, s := range selected {
		key := strings.ToLower(s)
		isSelected[key] = true
		// Stale selections stay visible so they can be cleared
		if _, ok := display[key]; !ok {
			display[key] = s
		}
	}

	options := make([]models.FacetOption, 0, len(display))
	for key, val := range display {
		options = append(options, models.FacetOption{
			Value:    val,
			Count:    counts[key],
			Selected: isSelected[key],
		})
	}
	sort.Slice(options, func(a, b int) bool {
		la, lb := strings.ToLower(options[a].Value), strings.ToLower(options[b].Value)
		if la != lb {
			return la < lb
		}
		return options[a].Value < options[b].Value
	})
	return models.FacetSummary{Facet: f, Options: options}
}

// PriceBounds returns the lowest and highest price in products; zero for an empty slice
func PriceBounds(products []models.Product) models.PriceRange {
	if len(products) == 0 {
		return models.PriceRange{Min: decimal.Zero, Max: decimal.Zero}
	}
	r := models.PriceRange{Min: products[0].Price, Max: products[0].Price}
	for _, p := range products[1:] {
		if p.Price.LessThan(r.Min) {
			r.Min = p.Price
		}
		if p.Price.GreaterThan(r.Max) {
			r.Max = p.Price
		}
	}
	return r
}
