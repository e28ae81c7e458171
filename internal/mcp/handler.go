package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/johnrirwin/devicedesk/internal/filter"
	"github.com/johnrirwin/devicedesk/internal/logging"
	"github.com/johnrirwin/devicedesk/internal/models"
	"github.com/johnrirwin/devicedesk/internal/products"
)

// Catalog is the read side of the product service
type Catalog interface {
	Snapshot(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
}

type Handler struct {
	catalog    Catalog
	filterOpts filter.Options
	logger     *logging.Logger
}

func NewHandler(catalog Catalog, filterOpts filter.Options, logger *logging.Logger) *Handler {
	return &Handler{
		catalog:    catalog,
		filterOpts: filterOpts,
		logger:     logger,
	}
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// FilterParams are the arguments shared by the browse tools
type FilterParams struct {
	Query      string              `json:"query"`
	Selections map[string][]string `json:"selections"`
	MinPrice   *string             `json:"minPrice"`
	MaxPrice   *string             `json:"maxPrice"`
	Stock      string              `json:"stock"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

type GetProductParams struct {
	ID string `json:"id"`
}

const filterSchema = `{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "Free-text search over name, brand, model and tags"
		},
		"selections": {
			"type": "object",
			"description": "Facet selections, e.g. {\"brand\": [\"Apple\"], \"color\": [\"Blue\", \"Black\"]}. Facets: category, brand, os, color, storage, carrier, lockStatus, grade",
			"additionalProperties": {"type": "array", "items": {"type": "string"}}
		},
		"minPrice": {"type": "string", "description": "Inclusive lower price bound"},
		"maxPrice": {"type": "string", "description": "Inclusive upper price bound"},
		"stock": {"type": "string", "enum": ["any", "in", "out"]},
		"limit": {"type": "integer", "description": "Maximum products to return (default: 20)"},
		"offset": {"type": "integer"}
	}
}`

func (h *Handler) GetTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "list_products",
			Description: "List catalog products in catalog order, optionally narrowed by a free-text query.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Free-text search"},
					"limit": {"type": "integer", "description": "Maximum products to return (default: 20)"},
					"offset": {"type": "integer"}
				}
			}`),
		},
		{
			Name:        "filter_products",
			Description: "Filter the catalog by facet selections, price range and stock status. Returns matching products with facet counts.",
			InputSchema: json.RawMessage(filterSchema),
		},
		{
			Name:        "get_facets",
			Description: "Get the available facet values with product counts and the observed price range.",
			InputSchema: json.RawMessage(filterSchema),
		},
		{
			Name:        "get_product",
			Description: "Get a single product by ID.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string", "description": "Product ID"}
				},
				"required": ["id"]
			}`),
		},
	}
}

func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case "list_products", "filter_products":
		return h.handleFilter(ctx, arguments, true)
	case "get_facets":
		return h.handleFilter(ctx, arguments, false)
	case "get_product":
		return h.handleGetProduct(ctx, arguments)
	default:
		return nil, &ToolError{Message: "Unknown tool: " + name}
	}
}

func (h *Handler) handleFilter(ctx context.Context, arguments json.RawMessage, withProducts bool) (interface{}, error) {
	var params FilterParams
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &params); err != nil {
			return nil, &ToolError{Message: "Invalid arguments: " + err.Error()}
		}
	}

	snapshot, err := h.catalog.Snapshot(ctx)
	if err != nil {
		h.logger.Error("Failed to load catalog", logging.WithField("error", err.Error()))
		return nil, &ToolError{Message: "Failed to load catalog"}
	}

	candidates := filter.Search(snapshot, params.Query)
	state, err := params.state(filter.PriceBounds(candidates))
	if err != nil {
		return nil, err
	}
	result := filter.Apply(candidates, state, h.filterOpts)

	if !withProducts {
		return map[string]interface{}{
			"facets":      result.Facets,
			"priceBounds": result.PriceBounds,
			"total":       result.Total,
		}, nil
	}

	return models.ProductListResponse{
		Products:    page(result.Products, params.Limit, params.Offset),
		Total:       result.Total,
		Facets:      result.Facets,
		PriceBounds: result.PriceBounds,
	}, nil
}

// state converts tool arguments into a filter state; unknown facets are rejected
func (p FilterParams) state(bounds models.PriceRange) (models.FilterState, error) {
	state := filter.NewState()
	for name, values := range p.Selections {
		f, ok := models.ParseFacet(name)
		if !ok {
			return state, &ToolError{Message: "Unknown facet: " + name}
		}
		clean := make([]string, 0, len(values))
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				clean = append(clean, v)
			}
		}
		if len(clean) > 0 {
			state.Selections[f] = clean
		}
	}

	if p.MinPrice != nil || p.MaxPrice != nil {
		r := bounds
		if p.MinPrice != nil {
			d, err := decimal.NewFromString(*p.MinPrice)
			if err != nil {
				return state, &ToolError{Message: "Invalid minPrice: " + *p.MinPrice}
			}
			r.Min = d
		}
		if p.MaxPrice != nil {
			d, err := decimal.NewFromString(*p.MaxPrice)
			if err != nil {
				return state, &ToolError{Message: "Invalid maxPrice: " + *p.MaxPrice}
			}
			r.Max = d
		}
		// A lone bound outside the observed range stays as given and matches nothing
		if p.MinPrice != nil && p.MaxPrice != nil && r.Min.GreaterThan(r.Max) {
			r.Min, r.Max = r.Max, r.Min
		}
		state.Price = &r
	}

	state.Stock = models.ParseStockFilter(p.Stock)
	return state, nil
}

func page(list []models.Product, limit, offset int) []models.Product {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 || offset >= len(list) {
		return []models.Product{}
	}
	list = list[offset:]
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

func (h *Handler) handleGetProduct(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params GetProductParams
	if err := json.Unmarshal(arguments, &params); err != nil || params.ID == "" {
		return nil, &ToolError{Message: "id is required"}
	}

	p, err := h.catalog.Get(ctx, params.ID)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			return nil, &ToolError{Message: "Product not found: " + params.ID}
		}
		return nil, &ToolError{Message: err.Error()}
	}
	return p, nil
}

type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}
