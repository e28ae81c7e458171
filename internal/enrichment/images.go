package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ImageQuery identifies the device an image is wanted for
type ImageQuery struct {
	Brand string
	Model string
	Color string
}

// ImageStrategy is one link in the image lookup chain
type ImageStrategy interface {
	Name() string
	FindImage(ctx context.Context, q ImageQuery) (string, error)
}

// DefaultCDNTemplates are per-brand product image URL patterns, keyed by lower-cased brand
var DefaultCDNTemplates = map[string][]string{
	"apple": {
		"https://store.storeimages.cdn-apple.com/4982/as-images.apple.com/is/{slug}-finish-select-{color}",
		"https://store.storeimages.cdn-apple.com/4982/as-images.apple.com/is/{slug}",
	},
	"samsung": {
		"https://images.samsung.com/is/image/samsung/p6pim/us/{slug}-{color}/gallery/front.jpg",
	},
	"google": {
		"https://lh3.googleusercontent.com/store/{slug}-{color}.png",
	},
}

// BrandCDNProbe tries brand-specific image URLs and accepts the first that answers
// a HEAD request with 200 and an image content type
type BrandCDNProbe struct {
	fetcher   *Fetcher
	templates map[string][]string
}

// NewBrandCDNProbe creates a probe; nil templates means DefaultCDNTemplates
func NewBrandCDNProbe(fetcher *Fetcher, templates map[string][]string) *BrandCDNProbe {
	if templates == nil {
		templates = DefaultCDNTemplates
	}
	return &BrandCDNProbe{fetcher: fetcher, templates: templates}
}

func (p *BrandCDNProbe) Name() string {
	return "brand-cdn"
}

func (p *BrandCDNProbe) FindImage(ctx context.Context, q ImageQuery) (string, error) {
	templates := p.templates[strings.ToLower(strings.TrimSpace(q.Brand))]
	if len(templates) == 0 {
		return "", fmt.Errorf("no CDN templates for brand %q: %w", q.Brand, ErrNotFound)
	}

	var lastErr error = ErrNotFound
	for _, tmpl := range templates {
		if strings.Contains(tmpl, "{color}") && strings.TrimSpace(q.Color) == "" {
			continue
		}
		candidate := expand(tmpl, q)
		status, contentType, err := p.fetcher.Head(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}
		if status == 200 && strings.HasPrefix(strings.ToLower(contentType), "image/") {
			return candidate, nil
		}
	}
	return "", lastErr
}

// ImageSearch scrapes the first usable <img> from a web image search results page
type ImageSearch struct {
	fetcher   *Fetcher
	searchURL string
}

// NewImageSearch creates a scraper; searchURL must contain a {query} placeholder
func NewImageSearch(fetcher *Fetcher, searchURL string) *ImageSearch {
	return &ImageSearch{fetcher: fetcher, searchURL: searchURL}
}

func (s *ImageSearch) Name() string {
	return "image-search"
}

func (s *ImageSearch) FindImage(ctx context.Context, q ImageQuery) (string, error) {
	if s.searchURL == "" {
		return "", fmt.Errorf("image search not configured: %w", ErrNotFound)
	}
	pageURL := expand(s.searchURL, q)

	body, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse search results: %w", err)
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		for _, attr := range []string{"data-src", "src"} {
			src, ok := img.Attr(attr)
			if ok && usableImage(src) {
				found = resolveURL(pageURL, src)
				return false
			}
		}
		return true
	})

	if found == "" {
		return "", ErrNotFound
	}
	return found, nil
}

func usableImage(src string) bool {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "data:") {
		return false
	}
	lower := strings.ToLower(src)
	for _, skip := range []string{".svg", ".gif", "logo", "sprite", "1x1"} {
		if strings.Contains(lower, skip) {
			return false
		}
	}
	return true
}
