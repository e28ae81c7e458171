// Package httpapi serves the catalog REST API used by the admin portal and the storefront.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/johnrirwin/devicedesk/internal/auth"
	"github.com/johnrirwin/devicedesk/internal/filter"
	"github.com/johnrirwin/devicedesk/internal/images"
	"github.com/johnrirwin/devicedesk/internal/importer"
	"github.com/johnrirwin/devicedesk/internal/logging"
	"github.com/johnrirwin/devicedesk/internal/products"
)

// ImportDefaults are the enrichment flags used when an upload does not set them
type ImportDefaults struct {
	FetchImages    bool
	FetchSpecs     bool
	MaxUploadBytes int64
}

type Server struct {
	productSvc     *products.Service
	importSvc      *importer.Service
	thumbnails     *images.Service
	authMiddleware *auth.Middleware
	filterOpts     filter.Options
	importDefaults ImportDefaults
	allowedOrigins map[string]struct{}
	logger         *logging.Logger
	server         *http.Server
	healthChecks   []healthCheck
}

type healthCheck struct {
	name  string
	check func(context.Context) error
}

func New(productSvc *products.Service, importSvc *importer.Service, thumbnails *images.Service, authMiddleware *auth.Middleware, filterOpts filter.Options, importDefaults ImportDefaults, allowedOrigins []string, logger *logging.Logger) *Server {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &Server{
		productSvc:     productSvc,
		importSvc:      importSvc,
		thumbnails:     thumbnails,
		authMiddleware: authMiddleware,
		filterOpts:     filterOpts,
		importDefaults: importDefaults,
		allowedOrigins: origins,
		logger:         logger,
	}
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	catalogAPI := NewCatalogAPI(s.productSvc, s.thumbnails, s.authMiddleware, s.filterOpts, s.logger)
	catalogAPI.RegisterRoutes(mux, s.corsMiddleware)

	if s.importSvc != nil {
		importAPI := NewImportAPI(s.importSvc, s.authMiddleware, s.importDefaults, s.logger)
		importAPI.RegisterRoutes(mux, s.corsMiddleware)
	}

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// AddHealthCheck registers a dependency probe reported by /health. Register before serving.
func (s *Server) AddHealthCheck(name string, check func(context.Context) error) {
	s.healthChecks = append(s.healthChecks, healthCheck{name: name, check: check})
}

func (s *Server) Start(addr string) error {
	if !s.authMiddleware.Enabled() {
		s.logger.Warn("Admin auth disabled: set AUTH_JWT_SECRET to protect catalog changes")
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) allowOrigin(origin string) string {
	if len(s.allowedOrigins) == 0 {
		return "*"
	}
	if _, ok := s.allowedOrigins["*"]; ok {
		return "*"
	}
	if _, ok := s.allowedOrigins[origin]; ok {
		return origin
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if len(s.healthChecks) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	checks := make(map[string]string, len(s.healthChecks))
	for _, hc := range s.healthChecks {
		if err := hc.check(ctx); err != nil {
			s.logger.Warn("Health check failed", logging.WithFields(map[string]interface{}{
				"check": hc.name,
				"error": err.Error(),
			}))
			checks[hc.name] = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[hc.name] = "ok"
	}

	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// writeServiceError maps catalog errors to responses: validation 400, missing 404, anything else 500
func writeServiceError(w http.ResponseWriter, logger *logging.Logger, op string, err error) {
	var svcErr *products.ServiceError
	switch {
	case errors.As(err, &svcErr):
		writeError(w, http.StatusBadRequest, "invalid_input", svcErr.Message)
	case errors.Is(err, products.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "product not found")
	default:
		logger.Error(op+" failed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func parsePagination(r *http.Request, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	offset = 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}

func parseBool(s string, defaultVal bool) bool {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return v
}
