package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog entry.
// InStock always equals StockCount > 0; use SetStock to change either.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Tags        []string        `json:"tags"`
	Specs       ProductSpecs    `json:"specs"`
	InStock     bool            `json:"inStock"`
	StockCount  int             `json:"stockCount"`
	Category    string          `json:"category,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// SetStock sets the stock count, clamping negatives to zero, and keeps InStock in step
func (p *Product) SetStock(count int) {
	if count < 0 {
		count = 0
	}
	p.StockCount = count
	p.InStock = count > 0
}

// Clone returns a deep copy so callers can mutate tags without touching the original
func (p Product) Clone() Product {
	if p.Tags != nil {
		tags := make([]string, len(p.Tags))
		copy(tags, p.Tags)
		p.Tags = tags
	}
	return p
}

// CreateProductParams represents the parameters for creating a product
type CreateProductParams struct {
	Name        string            `json:"name"`
	Brand       string            `json:"brand"`
	Model       string            `json:"model"`
	Price       decimal.Decimal   `json:"price"`
	Description string            `json:"description,omitempty"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Specs       map[string]string `json:"specs,omitempty"`
	StockCount  int               `json:"stockCount"`
	Category    string            `json:"category,omitempty"`
}

// UpdateProductParams represents a partial product update; nil fields are left unchanged
type UpdateProductParams struct {
	Name        *string            `json:"name,omitempty"`
	Brand       *string            `json:"brand,omitempty"`
	Model       *string            `json:"model,omitempty"`
	Price       *decimal.Decimal   `json:"price,omitempty"`
	Description *string            `json:"description,omitempty"`
	ImageURL    *string            `json:"imageUrl,omitempty"`
	Tags        *[]string          `json:"tags,omitempty"`
	Specs       *map[string]string `json:"specs,omitempty"`
	StockCount  *int               `json:"stockCount,omitempty"`
	Category    *string            `json:"category,omitempty"`
}

// ProductListResponse is a page of filtered products with facet summaries
type ProductListResponse struct {
	Products    []Product      `json:"products"`
	Total       int            `json:"total"`
	Facets      []FacetSummary `json:"facets"`
	PriceBounds PriceRange     `json:"priceBounds"`
}
