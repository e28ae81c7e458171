// Package importer runs bulk catalog uploads: layout detection, row validation,
// optional enrichment in throttled batches and persistence with partial-failure results.
package importer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/johnrirwin/devicedesk/internal/catalog"
	"github.com/johnrirwin/devicedesk/internal/config"
	"github.com/johnrirwin/devicedesk/internal/enrichment"
	"github.com/johnrirwin/devicedesk/internal/inventory"
	"github.com/johnrirwin/devicedesk/internal/logging"
	"github.com/johnrirwin/devicedesk/internal/models"
)

const (
	DefaultBatchSize      = 5
	DefaultBatchDelay     = time.Second
	DefaultMaxUploadBytes = 20 << 20
)

// Saver persists one imported product
type Saver interface {
	Add(ctx context.Context, p models.Product) (*models.Product, error)
}

// Enricher fills in images and specs before a product is saved
type Enricher interface {
	Enrich(ctx context.Context, p *models.Product, opts enrichment.Options) enrichment.Report
}

// Config controls batching and upload limits
type Config struct {
	BatchSize      int
	BatchDelay     time.Duration
	MaxUploadBytes int64
}

// ConfigFrom converts the import section of the service config
func ConfigFrom(cfg config.ImportConfig) Config {
	return Config{
		BatchSize:      cfg.BatchSize,
		BatchDelay:     cfg.BatchDelay,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Service imports catalog files
type Service struct {
	saver    Saver
	enricher Enricher
	cfg      Config
	logger   *logging.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewService creates an import service; enricher may be nil
func NewService(saver Saver, enricher Enricher, cfg Config, logger *logging.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Service{
		saver:    saver,
		enricher: enricher,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// entry tracks one data row through validation and saving
type entry struct {
	num     int
	product models.Product
	saved   *models.Product
	err     string
}

// Import reads the uploaded file and stores every valid row. Row-level problems are
// reported in the result's Errors as "Row N: ..." and never abort the import; only an
// unreadable, empty or headerless file fails the whole call.
func (s *Service) Import(ctx context.Context, req models.ImportRequest) (*models.ImportResult, error) {
	if req.Body == nil {
		return nil, ErrEmptyFile
	}
	data, err := io.ReadAll(io.LimitReader(req.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("import file exceeds %d bytes", s.cfg.MaxUploadBytes)
	}

	records, err := readRecords(req.Filename, data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	entries, layout, err := s.validate(records)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Importing catalog file", logging.WithFields(map[string]interface{}{
		"file":         req.Filename,
		"layout":       layout,
		"rows":         len(entries),
		"fetch_images": req.FetchImages,
		"fetch_specs":  req.FetchSpecs,
	}))

	opts := enrichment.Options{FetchImages: req.FetchImages, FetchSpecs: req.FetchSpecs}
	s.process(ctx, entries, opts)

	result := &models.ImportResult{
		Errors:   make([]string, 0),
		Products: make([]models.Product, 0, len(entries)),
	}
	for _, e := range entries {
		if e.err != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", e.num, e.err))
			continue
		}
		result.Products = append(result.Products, *e.saved)
	}
	result.Imported = len(result.Products)

	s.logger.Info("Import finished", logging.WithFields(map[string]interface{}{
		"file":     req.Filename,
		"imported": result.Imported,
		"errors":   len(result.Errors),
	}))
	return result, nil
}

// validate turns data rows into entries using the layout named by the header.
// A header that is neither the inventory nor a product sheet layout but is wide enough
// is treated as a renamed inventory header, since inventory columns are positional.
func (s *Service) validate(records []record) ([]*entry, string, error) {
	header, rows := records[0], records[1:]

	if inventory.IsInventoryHeader(header.cols) {
		return s.inventoryEntries(rows), "inventory", nil
	}

	layout, ok := newSheetLayout(header.cols)
	if !ok {
		if len(header.cols) >= models.InventoryColumns {
			return s.inventoryEntries(rows), "inventory", nil
		}
		return nil, "", ErrNoHeader
	}

	entries := make([]*entry, 0, len(rows))
	for _, r := range rows {
		e := &entry{num: r.num}
		p, err := layout.product(r.cols)
		if err != nil {
			e.err = err.Error()
		} else {
			e.product = p
		}
		entries = append(entries, e)
	}
	return entries, "products", nil
}

func (s *Service) inventoryEntries(rows []record) []*entry {
	deriver := catalog.NewDeriver()
	entries := make([]*entry, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		item, ok := inventory.FromColumns(r.cols)
		if !ok {
			dropped++
			continue
		}
		e := &entry{num: r.num}
		switch {
		case !models.Present(item.Manufacturer):
			e.err = "manufacturer is required"
		case !models.Present(item.Model):
			e.err = "model is required"
		default:
			e.product = deriver.Derive(item)
		}
		entries = append(entries, e)
	}
	if dropped > 0 {
		s.logger.Warn("Skipped short inventory rows", logging.WithField("count", dropped))
	}
	return entries
}

// process saves valid entries in batches. Rows inside a batch run concurrently and
// batches are separated by the configured delay.
func (s *Service) process(ctx context.Context, entries []*entry, opts enrichment.Options) {
	pending := make([]*entry, 0, len(entries))
	for _, e := range entries {
		if e.err == "" {
			pending = append(pending, e)
		}
	}

	enrich := s.enricher != nil && (opts.FetchImages || opts.FetchSpecs)
	size := s.cfg.BatchSize

	for start := 0; start < len(pending); start += size {
		if start > 0 && enrich {
			if err := s.sleep(ctx, s.cfg.BatchDelay); err != nil {
				cancelRemaining(pending[start:], err)
				return
			}
		}
		if err := ctx.Err(); err != nil {
			cancelRemaining(pending[start:], err)
			return
		}

		end := start + size
		if end > len(pending) {
			end = len(pending)
		}

		var wg sync.WaitGroup
		for _, e := range pending[start:end] {
			wg.Add(1)
			go func(e *entry) {
				defer wg.Done()
				s.importRow(ctx, e, opts, enrich)
			}(e)
		}
		wg.Wait()

		s.logger.Debug("Import batch done", logging.WithFields(map[string]interface{}{
			"batch": start/size + 1,
			"rows":  end - start,
		}))
	}
}

func (s *Service) importRow(ctx context.Context, e *entry, opts enrichment.Options, enrich bool) {
	if enrich {
		report := s.enricher.Enrich(ctx, &e.product, opts)
		if report.Image != nil && len(report.Image.Failures) > 0 {
			s.logger.Debug("Image lookup fell back", logging.WithFields(map[string]interface{}{
				"row":      e.num,
				"failures": report.Image.Failures,
			}))
		}
	}

	saved, err := s.saver.Add(ctx, e.product)
	if err != nil {
		s.logger.Warn("Failed to save imported row", logging.WithFields(map[string]interface{}{
			"row":   e.num,
			"error": err.Error(),
		}))
		e.err = err.Error()
		return
	}
	e.saved = saved
}

func cancelRemaining(entries []*entry, err error) {
	for _, e := range entries {
		e.err = "import cancelled: " + err.Error()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
