// Package enrichment looks up product images and technical specs on the web.
// Every lookup is best effort: callers get result records, never errors.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/johnrirwin/devicedesk/internal/ratelimit"
)

// ErrNotFound is returned by strategies and sources that reached the site but found nothing usable
var ErrNotFound = errors.New("not found")

// FetcherConfig configures outbound HTTP
type FetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64
}

// DefaultFetcherConfig returns conservative defaults
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:   10 * time.Second,
		UserAgent: "DeviceDesk/1.0 (+catalog enrichment)",
		MaxBytes:  2 << 20,
	}
}

// Fetcher performs polite HTTP requests: one limiter slot per host, fixed user agent
type Fetcher struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	config  FetcherConfig
}

// NewFetcher creates a fetcher; a nil limiter disables spacing
func NewFetcher(limiter *ratelimit.Limiter, config FetcherConfig) *Fetcher {
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultFetcherConfig().MaxBytes
	}
	return &Fetcher{
		client:  &http.Client{Timeout: config.Timeout},
		limiter: limiter,
		config:  config,
	}
}

func (f *Fetcher) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.WaitContext(ctx, ratelimit.HostOf(rawURL)); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", ratelimit.HostOf(rawURL), err)
	}
	return resp, nil
}

// Head issues a HEAD request and returns status code and content type
func (f *Fetcher) Head(ctx context.Context, rawURL string) (int, string, error) {
	resp, err := f.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, "", err
	}
	resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

// Get fetches rawURL and returns a size-capped body; non-200 responses are errors
func (f *Fetcher) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s returned status %d", ratelimit.HostOf(rawURL), resp.StatusCode)
	}
	return limitedBody{Reader: io.LimitReader(resp.Body, f.config.MaxBytes), Closer: resp.Body}, nil
}

type limitedBody struct {
	io.Reader
	io.Closer
}

// expand fills {query}, {brand}, {model}, {slug} and {color} placeholders
func expand(template string, q ImageQuery) string {
	query := strings.TrimSpace(strings.Join(nonEmpty(q.Brand, q.Model, q.Color), " "))
	return strings.NewReplacer(
		"{query}", url.QueryEscape(query),
		"{brand}", url.PathEscape(strings.ToLower(q.Brand)),
		"{model}", url.QueryEscape(q.Model),
		"{slug}", slug(q.Model),
		"{color}", slug(q.Color),
	).Replace(template)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// resolveURL makes ref absolute against base
func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
