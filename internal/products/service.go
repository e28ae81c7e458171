package products

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/johnrirwin/devicedesk/internal/enrichment"
	"github.com/johnrirwin/devicedesk/internal/logging"
	"github.com/johnrirwin/devicedesk/internal/models"
)

// Enricher fills in images and specs for a product
type Enricher interface {
	Enrich(ctx context.Context, p *models.Product, opts enrichment.Options) enrichment.Report
}

// ServiceError is a validation failure the caller can fix
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a ServiceError
func IsValidationError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// Service handles catalog operations
type Service struct {
	store    Store
	enricher Enricher
	logger   *logging.Logger
}

// NewService creates a catalog service; enricher may be nil
func NewService(store Store, enricher Enricher, logger *logging.Logger) *Service {
	return &Service{
		store:    store,
		enricher: enricher,
		logger:   logger,
	}
}

// Create validates params and stores a new product
func (s *Service) Create(ctx context.Context, params models.CreateProductParams) (*models.Product, error) {
	p := models.Product{
		Name:        params.Name,
		Brand:       params.Brand,
		Model:       params.Model,
		Price:       params.Price,
		Description: params.Description,
		ImageURL:    params.ImageURL,
		Tags:        params.Tags,
		Specs:       models.SpecsFromMap(params.Specs),
		Category:    params.Category,
	}
	if params.StockCount < 0 {
		return nil, &ServiceError{Message: "stockCount must not be negative"}
	}
	p.SetStock(params.StockCount)
	return s.Add(ctx, p)
}

// Add validates and stores an already-built product, assigning an ID when it has none.
// The import pipeline stores derived products through here.
func (s *Service) Add(ctx context.Context, p models.Product) (*models.Product, error) {
	if err := normalize(&p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.logger.Debug("Adding product", logging.WithFields(map[string]interface{}{
		"brand": p.Brand,
		"model": p.Model,
	}))

	if err := s.store.Create(ctx, &p); err != nil {
		s.logger.Error("Failed to add product", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.logger.Info("Added product", logging.WithField("id", p.ID))
	return &p, nil
}

// Get retrieves a product by ID
func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	if id == "" {
		return nil, &ServiceError{Message: "product ID is required"}
	}
	return s.store.Get(ctx, id)
}

// List returns every product in catalog order
func (s *Service) List(ctx context.Context) ([]models.Product, error) {
	return s.store.List(ctx)
}

// Snapshot returns an immutable copy of the catalog for the filter engine
func (s *Service) Snapshot(ctx context.Context) ([]models.Product, error) {
	return s.store.List(ctx)
}

// Update applies a partial update
func (s *Service) Update(ctx context.Context, id string, params models.UpdateProductParams) (*models.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		p.Name = *params.Name
	}
	if params.Brand != nil {
		p.Brand = *params.Brand
	}
	if params.Model != nil {
		p.Model = *params.Model
	}
	if params.Price != nil {
		p.Price = *params.Price
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.ImageURL != nil {
		p.ImageURL = *params.ImageURL
	}
	if params.Tags != nil {
		p.Tags = append([]string(nil), (*params.Tags)...)
	}
	if params.Specs != nil {
		p.Specs = models.SpecsFromMap(*params.Specs)
	}
	if params.StockCount != nil {
		if *params.StockCount < 0 {
			return nil, &ServiceError{Message: "stockCount must not be negative"}
		}
		p.SetStock(*params.StockCount)
	}
	if params.Category != nil {
		p.Category = *params.Category
	}

	if err := normalize(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()

	s.logger.Debug("Updating product", logging.WithField("id", id))

	if err := s.store.Update(ctx, p); err != nil {
		s.logger.Error("Failed to update product", logging.WithFields(map[string]interface{}{
			"id":    id,
			"error": err.Error(),
		}))
		return nil, err
	}

	s.logger.Info("Updated product", logging.WithField("id", id))
	return p, nil
}

// Delete removes a product
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &ServiceError{Message: "product ID is required"}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("Failed to delete product", logging.WithFields(map[string]interface{}{
				"id":    id,
				"error": err.Error(),
			}))
		}
		return err
	}

	s.logger.Info("Deleted product", logging.WithField("id", id))
	return nil
}

// Enrich runs image and spec lookup for a stored product and saves the result
func (s *Service) Enrich(ctx context.Context, id string, opts enrichment.Options) (*models.Product, enrichment.Report, error) {
	if s.enricher == nil {
		return nil, enrichment.Report{}, &ServiceError{Message: "enrichment is not configured"}
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, enrichment.Report{}, err
	}

	report := s.enricher.Enrich(ctx, p, opts)
	if !report.Changed() {
		return p, report, nil
	}

	if err := s.store.Update(ctx, p); err != nil {
		return nil, report, err
	}
	s.logger.Info("Enriched product", logging.WithFields(map[string]interface{}{
		"id":             id,
		"image_strategy": imageStrategy(report),
		"specs_filled":   specsFilled(report),
	}))
	return p, report, nil
}

func imageStrategy(r enrichment.Report) string {
	if r.Image == nil {
		return ""
	}
	return r.Image.Strategy
}

func specsFilled(r enrichment.Report) int {
	if r.Specs == nil {
		return 0
	}
	return len(r.Specs.Filled)
}

const priceScale = 2

var maxPrice = decimal.New(1, 10)

// normalize validates p and brings it into canonical form
func normalize(p *models.Product) error {
	p.Brand = strings.TrimSpace(p.Brand)
	p.Model = strings.TrimSpace(p.Model)
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))

	if p.Brand == "" {
		return &ServiceError{Message: "brand is required"}
	}
	if p.Model == "" {
		return &ServiceError{Message: "model is required"}
	}
	if p.Price.IsNegative() {
		return &ServiceError{Message: "price must not be negative"}
	}
	// Stored as NUMERIC(12,2): whole cents, at most 10 integer digits
	p.Price = p.Price.Round(priceScale)
	if p.Price.GreaterThanOrEqual(maxPrice) {
		return &ServiceError{Message: "price is too large"}
	}
	if p.Name == "" {
		p.Name = p.Brand + " " + p.Model
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.SetStock(p.StockCount)
	return nil
}
