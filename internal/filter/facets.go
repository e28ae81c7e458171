// Package filter implements faceted browsing over an in-memory product collection.
package filter

import (
	"strings"

	"github.com/johnrirwin/devicedesk/internal/models"
)

var categoryOrder = []string{
	models.CategoryPhones,
	models.CategoryTablets,
	models.CategoryAccessory,
	models.CategoryWearables,
}

// DeriveCategory returns the first tag naming a known category (case-insensitive),
// falling back to name hints: iPhone, then iPad, then Watch, else accessory.
func DeriveCategory(p models.Product) string {
	for _, tag := range p.Tags {
		for _, c := range categoryOrder {
			if strings.EqualFold(strings.TrimSpace(tag), c) {
				return c
			}
		}
	}
	switch {
	case strings.Contains(p.Name, "iPhone"):
		return models.CategoryPhones
	case strings.Contains(p.Name, "iPad"):
		return models.CategoryTablets
	case strings.Contains(p.Name, "Watch"):
		return models.CategoryWearables
	default:
		return models.CategoryAccessory
	}
}

// DeriveOS maps a brand to its operating system
func DeriveOS(brand string) string {
	switch strings.ToLower(strings.TrimSpace(brand)) {
	case "apple":
		return models.OSiOS
	case "samsung", "google":
		return models.OSAndroid
	default:
		return models.OSOther
	}
}

// FacetValue returns a product's value for a facet; false means the product has none
func FacetValue(p models.Product, f models.Facet) (string, bool) {
	switch f {
	case models.FacetCategory:
		return DeriveCategory(p), true
	case models.FacetBrand:
		v := strings.TrimSpace(p.Brand)
		return v, v != ""
	case models.FacetOS:
		return DeriveOS(p.Brand), true
	case models.FacetColor:
		return p.Specs.Get(models.SpecColor)
	case models.FacetStorage:
		return p.Specs.Get(models.SpecStorage)
	case models.FacetCarrier:
		return p.Specs.Get(models.SpecCarrier)
	case models.FacetLockStatus:
		return p.Specs.Get(models.SpecLockStatus)
	case models.FacetGrade:
		return p.Specs.Get(models.SpecGrade)
	}
	return "", false
}

// matchesFacet reports whether p satisfies the selection for f. An empty selection
// matches everything; a product without a value never matches a non-empty selection.
func matchesFacet(p models.Product, f models.Facet, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	v, ok := FacetValue(p, f)
	if !ok {
		return false
	}
	for _, s := range selected {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
