package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/johnrirwin/devicedesk/internal/models"
)

const (
	confidencePerField = 0.1
	deepScrapeBonus    = 0.2
)

// SpecCandidate is one source's answer for a device
type SpecCandidate struct {
	Source     string              `json:"source"`
	URL        string              `json:"url,omitempty"`
	Specs      models.ProductSpecs `json:"specs"`
	Confidence float64             `json:"confidence"`
}

// SpecSource is one place specs can be looked up
type SpecSource interface {
	Name() string
	Lookup(ctx context.Context, brand, model string) (*SpecCandidate, error)
}

// Confidence scores a candidate: 0.1 per field found, +0.2 for a product-page scrape, capped at 1
func Confidence(fields int, deep bool) float64 {
	c := confidencePerField * float64(fields)
	if deep {
		c += deepScrapeBonus
	}
	// round away float noise so 3 fields compare equal to 0.3
	c = math.Round(c*100) / 100
	return math.Min(c, 1.0)
}

// labelAliases maps lower-cased spec table labels and JSON keys to spec keys
var labelAliases = map[string]string{
	"display":          models.SpecDisplay,
	"screen":           models.SpecDisplay,
	"size":             models.SpecDisplay,
	"display size":     models.SpecDisplay,
	"screen size":      models.SpecDisplay,
	"processor":        models.SpecProcessor,
	"chipset":          models.SpecProcessor,
	"cpu":              models.SpecProcessor,
	"chip":             models.SpecProcessor,
	"memory":           models.SpecMemory,
	"ram":              models.SpecMemory,
	"storage":          models.SpecStorage,
	"internal":         models.SpecStorage,
	"internal storage": models.SpecStorage,
	"capacity":         models.SpecStorage,
	"camera":           models.SpecCamera,
	"main camera":      models.SpecCamera,
	"rear camera":      models.SpecCamera,
	"battery":          models.SpecBattery,
	"battery capacity": models.SpecBattery,
	"os":               models.SpecOS,
	"operating system": models.SpecOS,
	"platform":         models.SpecOS,
	"color":            models.SpecColor,
	"colors":           models.SpecColor,
	"colour":           models.SpecColor,
}

func specKeyForLabel(label string) (string, bool) {
	label = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label), ":")))
	key, ok := labelAliases[label]
	if !ok && models.IsSpecKey(label) {
		return label, true
	}
	return key, ok
}

// HTMLSelectors locate things on spec site pages
type HTMLSelectors struct {
	ResultLink string
	SpecRow    string
}

// DefaultHTMLSelectors match common phone-spec sites
func DefaultHTMLSelectors() HTMLSelectors {
	return HTMLSelectors{
		ResultLink: ".makers a, .search-results a, a.product-link",
		SpecRow:    "table tr",
	}
}

// HTMLSpecSource searches a spec site, follows the first product link and scrapes its spec table
type HTMLSpecSource struct {
	fetcher   *Fetcher
	searchURL string
	selectors HTMLSelectors
}

// NewHTMLSpecSource creates a source; searchURL must contain a {query} placeholder
func NewHTMLSpecSource(fetcher *Fetcher, searchURL string, selectors HTMLSelectors) *HTMLSpecSource {
	return &HTMLSpecSource{fetcher: fetcher, searchURL: searchURL, selectors: selectors}
}

func (s *HTMLSpecSource) Name() string {
	return "html"
}

func (s *HTMLSpecSource) Lookup(ctx context.Context, brand, model string) (*SpecCandidate, error) {
	if s.searchURL == "" {
		return nil, fmt.Errorf("spec search not configured: %w", ErrNotFound)
	}
	searchURL := expand(s.searchURL, ImageQuery{Brand: brand, Model: model})

	doc, err := s.document(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	link, ok := doc.Find(s.selectors.ResultLink).First().Attr("href")
	if ok && strings.TrimSpace(link) != "" {
		productURL := resolveURL(searchURL, link)
		if page, err := s.document(ctx, productURL); err == nil {
			if specs := scrapeSpecTable(page, s.selectors.SpecRow); !specs.IsEmpty() {
				return &SpecCandidate{
					Source:     s.Name(),
					URL:        productURL,
					Specs:      specs,
					Confidence: Confidence(len(specs.Keys()), true),
				}, nil
			}
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	// Some sites render specs straight onto the search page for an exact match
	specs := scrapeSpecTable(doc, s.selectors.SpecRow)
	if specs.IsEmpty() {
		return nil, ErrNotFound
	}
	return &SpecCandidate{
		Source:     s.Name(),
		URL:        searchURL,
		Specs:      specs,
		Confidence: Confidence(len(specs.Keys()), false),
	}, nil
}

func (s *HTMLSpecSource) document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := s.fetcher.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	return doc, nil
}

// scrapeSpecTable reads label/value rows; the label is the th or first td, the value the last td
func scrapeSpecTable(doc *goquery.Document, rowSelector string) models.ProductSpecs {
	var specs models.ProductSpecs
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		label := row.Find("th").First()
		if label.Length() == 0 {
			label = row.Find("td").First()
		}
		cells := row.Find("td")
		if cells.Length() == 0 || (label.Is("td") && cells.Length() < 2) {
			return
		}
		value := collapse(cells.Last().Text())
		key, ok := specKeyForLabel(label.Text())
		if !ok || value == "" {
			return
		}
		if _, taken := specs.Get(key); !taken {
			specs.Set(key, value)
		}
	})
	return specs
}

// JSONSpecSource reads a JSON spec endpoint. The URL template may use {brand}, {model} and {query}.
// Specs may sit at the top level or under "specs" or "data".
type JSONSpecSource struct {
	fetcher *Fetcher
	apiURL  string
}

// NewJSONSpecSource creates a JSON endpoint source
func NewJSONSpecSource(fetcher *Fetcher, apiURL string) *JSONSpecSource {
	return &JSONSpecSource{fetcher: fetcher, apiURL: apiURL}
}

func (s *JSONSpecSource) Name() string {
	return "json"
}

func (s *JSONSpecSource) Lookup(ctx context.Context, brand, model string) (*SpecCandidate, error) {
	if s.apiURL == "" {
		return nil, fmt.Errorf("spec API not configured: %w", ErrNotFound)
	}
	apiURL := expand(s.apiURL, ImageQuery{Brand: brand, Model: model})

	body, err := s.fetcher.Get(ctx, apiURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var payload map[string]interface{}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode spec response: %w", err)
	}

	for _, wrapper := range []string{"specs", "data"} {
		if inner, ok := payload[wrapper].(map[string]interface{}); ok {
			payload = inner
			break
		}
	}

	var specs models.ProductSpecs
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key, ok := specKeyForLabel(k)
		if !ok {
			continue
		}
		value := stringify(payload[k])
		if value == "" {
			continue
		}
		if _, taken := specs.Get(key); !taken {
			specs.Set(key, value)
		}
	}

	if specs.IsEmpty() {
		return nil, ErrNotFound
	}
	return &SpecCandidate{
		Source:     s.Name(),
		URL:        apiURL,
		Specs:      specs,
		Confidence: Confidence(len(specs.Keys()), false),
	}, nil
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return collapse(val)
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
