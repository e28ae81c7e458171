package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/johnrirwin/devicedesk/internal/auth"
	"github.com/johnrirwin/devicedesk/internal/importer"
	"github.com/johnrirwin/devicedesk/internal/logging"
	"github.com/johnrirwin/devicedesk/internal/models"
)

// multipart envelope allowance on top of the file itself
const multipartOverhead = 1 << 20

// ImportAPI handles bulk catalog uploads
type ImportAPI struct {
	importSvc      *importer.Service
	authMiddleware *auth.Middleware
	defaults       ImportDefaults
	logger         *logging.Logger
}

// NewImportAPI creates a new import API handler
func NewImportAPI(importSvc *importer.Service, authMiddleware *auth.Middleware, defaults ImportDefaults, logger *logging.Logger) *ImportAPI {
	if defaults.MaxUploadBytes <= 0 {
		defaults.MaxUploadBytes = importer.DefaultMaxUploadBytes
	}
	return &ImportAPI{
		importSvc:      importSvc,
		authMiddleware: authMiddleware,
		defaults:       defaults,
		logger:         logger,
	}
}

// RegisterRoutes registers import routes
func (api *ImportAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/import", corsMiddleware(api.authMiddleware.RequireAdmin(api.handleImport)))
}

// handleImport handles POST /api/import with a multipart "file" field
func (api *ImportAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, api.defaults.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(api.defaults.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "upload exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_form", "expected multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", "file is required")
		return
	}
	defer file.Close()

	req := models.ImportRequest{
		Filename:    header.Filename,
		Body:        file,
		FetchImages: parseBool(r.FormValue("fetchImages"), api.defaults.FetchImages),
		FetchSpecs:  parseBool(r.FormValue("fetchSpecs"), api.defaults.FetchSpecs),
	}

	// Enrichment runs with an inter-batch delay, so large imports take a while
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	result, err := api.importSvc.Import(ctx, req)
	if err != nil {
		api.logger.Warn("Import rejected", logging.WithFields(map[string]interface{}{
			"file":  header.Filename,
			"error": err.Error(),
		}))
		writeError(w, http.StatusBadRequest, "import_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
