package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/johnrirwin/devicedesk/internal/auth"
	"github.com/johnrirwin/devicedesk/internal/enrichment"
	"github.com/johnrirwin/devicedesk/internal/filter"
	"github.com/johnrirwin/devicedesk/internal/images"
	"github.com/johnrirwin/devicedesk/internal/logging"
	"github.com/johnrirwin/devicedesk/internal/models"
	"github.com/johnrirwin/devicedesk/internal/products"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// CatalogAPI handles product CRUD and storefront browsing
type CatalogAPI struct {
	productSvc     *products.Service
	thumbnails     *images.Service
	authMiddleware *auth.Middleware
	filterOpts     filter.Options
	logger         *logging.Logger
}

// NewCatalogAPI creates a new catalog API handler
func NewCatalogAPI(productSvc *products.Service, thumbnails *images.Service, authMiddleware *auth.Middleware, filterOpts filter.Options, logger *logging.Logger) *CatalogAPI {
	return &CatalogAPI{
		productSvc:     productSvc,
		thumbnails:     thumbnails,
		authMiddleware: authMiddleware,
		filterOpts:     filterOpts,
		logger:         logger,
	}
}

// RegisterRoutes registers catalog routes on the given mux
func (api *CatalogAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/products", corsMiddleware(api.handleProducts))
	mux.HandleFunc("/api/products/", corsMiddleware(api.handleProductByID))
	mux.HandleFunc("/api/filters", corsMiddleware(api.handleFilters))
}

func (api *CatalogAPI) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.listProducts(w, r)
	case http.MethodPost:
		api.authMiddleware.RequireAdmin(api.createProduct)(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// browse runs search and the filter engine over the current catalog snapshot
func (api *CatalogAPI) browse(ctx context.Context, r *http.Request) (filter.Result, error) {
	snapshot, err := api.productSvc.Snapshot(ctx)
	if err != nil {
		return filter.Result{}, err
	}

	query := r.URL.Query()
	candidates := filter.Search(snapshot, query.Get("q"))
	state := filter.ParseQuery(query, filter.PriceBounds(candidates))
	return filter.Apply(candidates, state, api.filterOpts), nil
}

func (api *CatalogAPI) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	result, err := api.browse(ctx, r)
	if err != nil {
		writeServiceError(w, api.logger, "List products", err)
		return
	}

	limit, offset := parsePagination(r, defaultPageSize, maxPageSize)
	page := result.Products
	if offset >= len(page) {
		page = []models.Product{}
	} else {
		page = page[offset:]
		if len(page) > limit {
			page = page[:limit]
		}
	}

	writeJSON(w, http.StatusOK, models.ProductListResponse{
		Products:    page,
		Total:       result.Total,
		Facets:      result.Facets,
		PriceBounds: result.PriceBounds,
	})
}

func (api *CatalogAPI) handleFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	result, err := api.browse(ctx, r)
	if err != nil {
		writeServiceError(w, api.logger, "Get filters", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"facets":      result.Facets,
		"priceBounds": result.PriceBounds,
		"total":       result.Total,
	})
}

func (api *CatalogAPI) createProduct(w http.ResponseWriter, r *http.Request) {
	var params models.CreateProductParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	product, err := api.productSvc.Create(ctx, params)
	if err != nil {
		writeServiceError(w, api.logger, "Create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// handleProductByID serves /api/products/{id}, /api/products/{id}/enrich and /api/products/{id}/thumbnail
func (api *CatalogAPI) handleProductByID(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/products/"), "/")
	if path == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "product ID is required")
		return
	}

	id, action, _ := strings.Cut(path, "/")
	switch action {
	case "":
	case "enrich":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		api.authMiddleware.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
			api.enrichProduct(w, r, id)
		})(w, r)
		return
	case "thumbnail":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		api.getThumbnail(w, r, id)
		return
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown product resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		api.getProduct(w, r, id)
	case http.MethodPut, http.MethodPatch:
		api.authMiddleware.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
			api.updateProduct(w, r, id)
		})(w, r)
	case http.MethodDelete:
		api.authMiddleware.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
			api.deleteProduct(w, r, id)
		})(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *CatalogAPI) getProduct(w http.ResponseWriter, r *http.Request, id string) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	product, err := api.productSvc.Get(ctx, id)
	if err != nil {
		writeServiceError(w, api.logger, "Get product", err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (api *CatalogAPI) updateProduct(w http.ResponseWriter, r *http.Request, id string) {
	var params models.UpdateProductParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	product, err := api.productSvc.Update(ctx, id, params)
	if err != nil {
		writeServiceError(w, api.logger, "Update product", err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (api *CatalogAPI) deleteProduct(w http.ResponseWriter, r *http.Request, id string) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := api.productSvc.Delete(ctx, id); err != nil {
		writeServiceError(w, api.logger, "Delete product", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type enrichRequest struct {
	FetchImages *bool `json:"fetchImages"`
	FetchSpecs  *bool `json:"fetchSpecs"`
}

func (api *CatalogAPI) enrichProduct(w http.ResponseWriter, r *http.Request, id string) {
	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	opts := enrichment.Options{FetchImages: true, FetchSpecs: true}
	if req.FetchImages != nil {
		opts.FetchImages = *req.FetchImages
	}
	if req.FetchSpecs != nil {
		opts.FetchSpecs = *req.FetchSpecs
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	product, report, err := api.productSvc.Enrich(ctx, id, opts)
	if err != nil {
		writeServiceError(w, api.logger, "Enrich product", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product": product,
		"report":  report,
	})
}

func (api *CatalogAPI) getThumbnail(w http.ResponseWriter, r *http.Request, id string) {
	if api.thumbnails == nil {
		writeError(w, http.StatusNotFound, "not_found", "thumbnails are not enabled")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	product, err := api.productSvc.Get(ctx, id)
	if err != nil {
		writeServiceError(w, api.logger, "Get product", err)
		return
	}

	data, err := api.thumbnails.Thumbnail(ctx, product.ImageURL)
	if err != nil {
		switch {
		case errors.Is(err, images.ErrNoImage):
			writeError(w, http.StatusNotFound, "no_image", err.Error())
		case errors.Is(err, images.ErrUnsupportedImage), errors.Is(err, images.ErrImageTooLarge):
			writeError(w, http.StatusUnprocessableEntity, "invalid_image", err.Error())
		default:
			api.logger.Warn("Thumbnail failed", logging.WithFields(map[string]interface{}{
				"id":    id,
				"error": err.Error(),
			}))
			writeError(w, http.StatusBadGateway, "image_unavailable", "product image could not be fetched")
		}
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
