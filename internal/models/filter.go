package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Facet names a filterable product dimension
type Facet string

const (
	FacetCategory   Facet = "category"
	FacetBrand      Facet = "brand"
	FacetOS         Facet = "os"
	FacetColor      Facet = "color"
	FacetStorage    Facet = "storage"
	FacetCarrier    Facet = "carrier"
	FacetLockStatus Facet = "lockStatus"
	FacetGrade      Facet = "grade"
)

// AllFacets returns the facets in display order
func AllFacets() []Facet {
	return []Facet{
		FacetCategory, FacetBrand, FacetOS, FacetColor,
		FacetStorage, FacetCarrier, FacetLockStatus, FacetGrade,
	}
}

// ParseFacet maps a query name to a Facet
func ParseFacet(s string) (Facet, bool) {
	for _, f := range AllFacets() {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Device categories used by the storefront
const (
	CategoryPhones    = "phones"
	CategoryTablets   = "tablets"
	CategoryAccessory = "accessory"
	CategoryWearables = "wearables"
)

// Operating system facet values
const (
	OSiOS     = "iOS"
	OSAndroid = "Android"
	OSOther   = "Other"
)

// StockFilter restricts results by availability
type StockFilter string

const (
	StockAny StockFilter = "any"
	StockIn  StockFilter = "in"
	StockOut StockFilter = "out"
)

// ParseStockFilter maps a query value to a StockFilter, defaulting to any
func ParseStockFilter(s string) StockFilter {
	switch s {
	case "in", "in_stock", "inStock", "true":
		return StockIn
	case "out", "out_of_stock", "outOfStock", "false":
		return StockOut
	default:
		return StockAny
	}
}

// PriceRange is an inclusive price interval
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether price lies within the range, bounds included
func (r PriceRange) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.Min) && price.LessThanOrEqual(r.Max)
}

// FilterState is the user's current facet selections. It is never persisted.
// An empty or absent selection list places no restriction on that facet;
// a nil Price means the full observed range.
type FilterState struct {
	Selections map[Facet][]string `json:"selections"`
	Price      *PriceRange        `json:"price,omitempty"`
	Stock      StockFilter        `json:"stock"`
}

// Selected returns the active values for a facet
func (s FilterState) Selected(f Facet) []string {
	return s.Selections[f]
}

// Clone returns a deep copy of the state
func (s FilterState) Clone() FilterState {
	out := FilterState{Stock: s.Stock}
	if s.Selections != nil {
		out.Selections = make(map[Facet][]string, len(s.Selections))
		for f, vals := range s.Selections {
			out.Selections[f] = append([]string(nil), vals...)
		}
	}
	if s.Price != nil {
		p := *s.Price
		out.Price = &p
	}
	return out
}

// FacetOption is one selectable value of a facet with its product count
type FacetOption struct {
	Value    string `json:"value"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
}

// Label renders the option the way the storefront shows it, e.g. "Blue (3)"
func (o FacetOption) Label() string {
	return fmt.Sprintf("%s (%d)", o.Value, o.Count)
}

// FacetSummary lists the options available for one facet
type FacetSummary struct {
	Facet   Facet         `json:"facet"`
	Options []FacetOption `json:"options"`
}
