package enrichment

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/johnrirwin/devicedesk/internal/cache"
	"github.com/johnrirwin/devicedesk/internal/config"
	"github.com/johnrirwin/devicedesk/internal/logging"
	"github.com/johnrirwin/devicedesk/internal/models"
	"github.com/johnrirwin/devicedesk/internal/ratelimit"
)

// DefaultConfidenceFloor discards candidates scoring below three fields' worth
const DefaultConfidenceFloor = 0.3

// Config tunes a Normalizer
type Config struct {
	PlaceholderImage string
	ConfidenceFloor  float64
	CacheTTL         time.Duration
}

// ImageResult is the outcome of an image lookup. URL is always set; Placeholder
// reports that every strategy failed.
type ImageResult struct {
	URL         string   `json:"url"`
	Strategy    string   `json:"strategy"`
	Placeholder bool     `json:"placeholder"`
	Cached      bool     `json:"cached"`
	Failures    []string `json:"failures,omitempty"`
}

// SpecResult is the outcome of a spec lookup. Specs is the input merged with
// whatever was found; Filled lists the keys that were added.
type SpecResult struct {
	Specs    models.ProductSpecs `json:"specs"`
	Filled   []string            `json:"filled"`
	Sources  []string            `json:"sources,omitempty"`
	Failures []string            `json:"failures,omitempty"`
}

// Options selects which enrichment steps run
type Options struct {
	FetchImages bool
	FetchSpecs  bool
}

// Report describes what Enrich changed on a product
type Report struct {
	Image *ImageResult `json:"image,omitempty"`
	Specs *SpecResult  `json:"specs,omitempty"`
}

// Changed reports whether the product was modified
func (r Report) Changed() bool {
	return (r.Image != nil && r.Image.URL != "") || (r.Specs != nil && len(r.Specs.Filled) > 0)
}

// Normalizer runs image strategies and spec sources in order
type Normalizer struct {
	images []ImageStrategy
	specs  []SpecSource
	cache  cache.Cache
	config Config
	logger *logging.Logger
}

// New creates a Normalizer. Strategies and sources are tried in the given order; c may be nil.
func New(cfg Config, c cache.Cache, logger *logging.Logger, images []ImageStrategy, specs []SpecSource) *Normalizer {
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = DefaultConfidenceFloor
	}
	if cfg.PlaceholderImage == "" {
		cfg.PlaceholderImage = "/placeholder.svg"
	}
	return &Normalizer{
		images: images,
		specs:  specs,
		cache:  c,
		config: cfg,
		logger: logger,
	}
}

// FromConfig wires the standard chains: brand CDN probe then image search for images,
// the HTML spec site then the JSON spec API for specs
func FromConfig(cfg config.EnrichmentConfig, c cache.Cache, limiter *ratelimit.Limiter, logger *logging.Logger) *Normalizer {
	fetcher := NewFetcher(limiter, FetcherConfig{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
	})

	images := []ImageStrategy{NewBrandCDNProbe(fetcher, nil)}
	if cfg.ImageSearchURL != "" {
		images = append(images, NewImageSearch(fetcher, cfg.ImageSearchURL))
	}

	var specs []SpecSource
	if cfg.SpecSearchURL != "" {
		specs = append(specs, NewHTMLSpecSource(fetcher, cfg.SpecSearchURL, DefaultHTMLSelectors()))
	}
	if cfg.SpecAPIURL != "" {
		specs = append(specs, NewJSONSpecSource(fetcher, cfg.SpecAPIURL))
	}

	return New(Config{
		PlaceholderImage: cfg.PlaceholderImage,
		ConfidenceFloor:  cfg.ConfidenceFloor,
		CacheTTL:         cfg.CacheTTL,
	}, c, logger, images, specs)
}

// FindImage walks the image chain, falling back to the placeholder
func (n *Normalizer) FindImage(ctx context.Context, brand, model, color string) ImageResult {
	q := ImageQuery{Brand: brand, Model: model, Color: color}
	key := "image:" + models.CatalogKey(brand, model) + "|" + models.NormalizeKeyPart(color)

	var cached ImageResult
	if cache.GetJSON(n.cache, key, &cached) && cached.URL != "" {
		cached.Cached = true
		cached.Failures = nil
		return cached
	}

	result := ImageResult{}
	for _, strategy := range n.images {
		if ctx.Err() != nil {
			result.Failures = append(result.Failures, strategy.Name()+": "+ctx.Err().Error())
			break
		}
		url, err := strategy.FindImage(ctx, q)
		if err != nil {
			result.Failures = append(result.Failures, strategy.Name()+": "+err.Error())
			n.logger.Debug("Image strategy failed", logging.WithFields(map[string]interface{}{
				"strategy": strategy.Name(),
				"brand":    brand,
				"model":    model,
				"error":    err.Error(),
			}))
			continue
		}
		result.URL = url
		result.Strategy = strategy.Name()
		if err := cache.SetJSON(n.cache, key, result, n.config.CacheTTL); err != nil {
			n.logger.Warn("Failed to cache image result", logging.WithField("error", err.Error()))
		}
		return result
	}

	result.URL = n.config.PlaceholderImage
	result.Strategy = "placeholder"
	result.Placeholder = true
	return result
}

// FillSpecs looks up specs for a device and fills keys absent from existing.
// Candidates under the confidence floor are dropped; the rest are merged highest confidence first.
func (n *Normalizer) FillSpecs(ctx context.Context, brand, model string, existing models.ProductSpecs) SpecResult {
	result := SpecResult{Specs: existing}
	if len(existing.Missing()) == 0 {
		return result
	}

	candidates, failures := n.candidates(ctx, brand, model)
	result.Failures = failures

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	for _, c := range candidates {
		filled := result.Specs.FillMissing(c.Specs)
		if len(filled) > 0 {
			result.Filled = append(result.Filled, filled...)
			result.Sources = append(result.Sources, c.Source)
		}
		if len(result.Specs.Missing()) == 0 {
			break
		}
	}
	return result
}

func (n *Normalizer) candidates(ctx context.Context, brand, model string) ([]SpecCandidate, []string) {
	key := "specs:" + models.CatalogKey(brand, model)

	var cached []SpecCandidate
	if cache.GetJSON(n.cache, key, &cached) {
		return cached, nil
	}

	var (
		out      []SpecCandidate
		failures []string
	)
	for _, source := range n.specs {
		if ctx.Err() != nil {
			failures = append(failures, source.Name()+": "+ctx.Err().Error())
			break
		}
		c, err := source.Lookup(ctx, brand, model)
		if err != nil {
			failures = append(failures, source.Name()+": "+err.Error())
			n.logger.Debug("Spec source failed", logging.WithFields(map[string]interface{}{
				"source": source.Name(),
				"brand":  brand,
				"model":  model,
				"error":  err.Error(),
			}))
			continue
		}
		if c == nil || c.Confidence < n.config.ConfidenceFloor {
			conf := 0.0
			if c != nil {
				conf = c.Confidence
			}
			failures = append(failures, source.Name()+": confidence below floor")
			n.logger.Debug("Spec candidate discarded", logging.WithFields(map[string]interface{}{
				"source":     source.Name(),
				"confidence": conf,
			}))
			continue
		}
		out = append(out, *c)
	}

	if len(out) > 0 {
		if err := cache.SetJSON(n.cache, key, out, n.config.CacheTTL); err != nil {
			n.logger.Warn("Failed to cache spec candidates", logging.WithField("error", err.Error()))
		}
	}
	return out, failures
}

// Enrich applies the selected steps to p in place: an image only when p has none,
// specs only into absent keys
func (n *Normalizer) Enrich(ctx context.Context, p *models.Product, opts Options) Report {
	var report Report
	if p == nil {
		return report
	}

	if opts.FetchImages && strings.TrimSpace(p.ImageURL) == "" {
		img := n.FindImage(ctx, p.Brand, p.Model, p.Specs.Color)
		p.ImageURL = img.URL
		report.Image = &img
	}

	if opts.FetchSpecs {
		specs := n.FillSpecs(ctx, p.Brand, p.Model, p.Specs)
		p.Specs = specs.Specs
		report.Specs = &specs
	}

	if report.Changed() {
		p.UpdatedAt = time.Now()
	}
	return report
}
